// Package services talks to a Mascot server.
//
// # Submission
//
// [BuildSubmission] renders the search parameters and an MGF export into a multipart/form-data
// body using a text/template (the embedded submission.tmpl unless a custom one is configured).
// [MascotService.Submit] POSTs the body and scrapes the streamed HTML response one line at a time:
//
//   - a number of up to three digits directly before "%" is a progress report
//   - an anchor whose href contains data/<date>/<job> locates the result file; the last one wins
//
// The [ResponseObserver] is asked whether the search was canceled before each line is read.
//
// # Results
//
// [MascotService.FetchResults] downloads the result file through ms-status.exe and hands the
// stream to a [ResultParser]. [DatParser] reads the Mascot .dat MIME format.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrConfiguration] : bad install URL or template
//   - [shared.ErrTransport] : connection, I/O or non-2xx status
//   - [shared.ErrProtocol] : response ended without a result location
//   - [shared.ErrParse] : result file could not be read
//   - [shared.ErrCanceled] : observer requested cancellation
//
// Nothing is retried.
package services
