package tasks

import (
	"fmt"

	"github.com/desertthunder/mzsearch/internal/models"
)

// ProgressUpdate represents a progress event during a search.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Search phase enumeration
type Phase int

const (
	Exporting Phase = iota
	Submitting
	Searching
	Fetching
	Correlating
	Done
)

func (p Phase) String() string {
	switch p {
	case Exporting:
		return "export"
	case Submitting:
		return "submit"
	case Searching:
		return "search"
	case Fetching:
		return "fetch"
	case Correlating:
		return "correlate"
	case Done:
		return "done"
	default:
		return ""
	}
}

func exportRowUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Exporting,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting spectra...", step, total),
	}
}

func submitUpdate(units int, size string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submitting,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Submitting %d spectra (%s)...", units, size),
	}
}

func searchProgressUpdate(percent int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Searching,
		Step:    percent,
		Total:   100,
		Message: fmt.Sprintf("Searching... %d%%", percent),
	}
}

func fetchUpdate(resultURL string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetching,
		Step:    1,
		Total:   1,
		Message: "Fetching results...",
		Data:    resultURL,
	}
}

func correlateUpdate(queries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Correlating,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Matching %d queries to rows...", queries),
	}
}

func doneUpdate(state State) ProgressUpdate {
	var msg string
	switch state.Status {
	case models.StatusFinished:
		msg = fmt.Sprintf("✓ Search finished: %d identifications", state.Identified)
	case models.StatusCanceled:
		msg = "Search canceled"
	default:
		msg = fmt.Sprintf("✗ Search failed: %s", state.Message)
	}
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    state,
	}
}
