package tasks

import (
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/services"
)

// nominalTotal is the denominator for progress: the server reports percentages.
const nominalTotal = 100

// State is an immutable snapshot of a task. A new value is published on every change.
type State struct {
	Status       models.SearchStatus            `json:"status"`
	FinishedRows int                            `json:"finished_rows"`
	TotalRows    int                            `json:"total_rows"`
	Identified   int                            `json:"identified"`
	Message      string                         `json:"error,omitempty"`
	Location     *services.SubmissionDescriptor `json:"location,omitempty"`
	ResultURL    string                         `json:"result_url,omitempty"`
}

// Percentage returns progress in [0, 1].
func (s State) Percentage() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.FinishedRows) / float64(s.TotalRows)
}
