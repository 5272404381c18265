// Package repositories implements SQLite persistence for search history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Searches support soft deletes via deleted_at timestamps and are excluded from queries once deleted.
//
// Key Implementations:
//   - [SearchRepository] : Search runs with status, result location, and outcome
//   - [IdentificationRepository] : Peptide identifications recorded per search and row
//   - [SearchRecorder] : Adapts both to tasks.Recorder so a running search records itself
//
// Sequence numbers provide stable, human-readable ordering (e.g., search #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
