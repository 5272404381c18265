// Package ui implements an interactive terminal progress monitor using bubbletea's Elm architecture.
//
// The TUI walks one search through three views:
//  1. [ConfirmView] : Peak list summary, submit or abort
//  2. [SearchView] : Spinner, phase checklist and progress bar while the task runs
//  3. [ResultView] : Final status and a scrollable list of identified rows
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through the task's progress channel; the task never blocks on a slow UI.
//
// Pressing q while searching requests cooperative cancellation. The task stops at its next checkpoint
// and the result view then reports CANCELED.
package ui
