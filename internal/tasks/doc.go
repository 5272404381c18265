// Package tasks runs Mascot MS/MS searches for peak lists.
//
// # Lifecycle
//
// A [SearchTask] moves WAITING → PROCESSING → FINISHED, ERROR or CANCELED and never leaves a
// terminal state. [SearchTask.Run] performs, on the caller's goroutine:
//
//  1. Export: every row whose best peak has an MS/MS scan is written to a temporary MGF file,
//     titled with the row's index.
//  2. Submit: the file is posted as a multipart form; it is deleted as soon as the request is sent.
//     Percentages in the streamed response drive [SearchTask.FinishedPercentage].
//  3. Fetch: the result file is downloaded from the location found in the response.
//  4. Correlate: each query's title names the row its spectrum came from; see [Correlate].
//
// # Cancellation
//
// [SearchTask.Cancel] sets a flag that is checked before each row is exported and before each
// response line is read. Context cancellation is honored at the same checkpoints.
//
// # State
//
// Status, progress, and error message live in an immutable [State] published atomically, so
// getters never block the running search.
//
// # Progress Reporting
//
// Options.Progress receives [ProgressUpdate] values; sends use select with default to prevent blocking.
//
// # Recording
//
// The optional [Recorder] (repositories.SearchRecorder) persists start, result location and
// outcome. Recording failures are logged and ignored.
package tasks
