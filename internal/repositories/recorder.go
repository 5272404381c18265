package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/tasks"
)

// SearchRecorder stores a running search's lifecycle in the history database.
type SearchRecorder struct {
	searches        *SearchRepository
	identifications *IdentificationRepository
}

var _ tasks.Recorder = (*SearchRecorder)(nil)

// NewSearchRecorder creates a recorder backed by db.
func NewSearchRecorder(db *sql.DB) *SearchRecorder {
	return &SearchRecorder{
		searches:        NewSearchRepository(db),
		identifications: NewIdentificationRepository(db),
	}
}

// Started creates the search record under the task's ID.
func (r *SearchRecorder) Started(_ context.Context, taskID, peakList string, at time.Time) error {
	job := models.NewSearchJob(0, peakList)
	job.SetID(taskID)
	job.Start(at)
	if err := r.searches.Create(job); err != nil {
		return fmt.Errorf("failed to record search start: %w", err)
	}
	return nil
}

// Located stores the result file location.
func (r *SearchRecorder) Located(_ context.Context, taskID string, state tasks.State) error {
	job, err := r.searches.Get(taskID)
	if err != nil {
		return err
	}
	if state.Location != nil {
		job.SetLocation(state.Location.DateDir, state.Location.JobFile, state.ResultURL)
	}
	job.SetProgress(state.Percentage())
	return r.searches.Update(job)
}

// Finished stores the terminal state and the attached identifications.
func (r *SearchRecorder) Finished(_ context.Context, taskID string, state tasks.State, attached []tasks.Attachment, at time.Time) error {
	job, err := r.searches.Get(taskID)
	if err != nil {
		return err
	}
	job.Complete(state.Status, state.Message, at)
	job.SetProgress(state.Percentage())
	job.SetIdentifications(len(attached))
	if err := r.searches.Update(job); err != nil {
		return err
	}

	items := make([]*models.PersistedIdentification, 0, len(attached))
	for _, a := range attached {
		items = append(items, models.NewPersistedIdentification(taskID, a.RowIndex, a.Identification))
	}
	return r.identifications.CreateAll(items)
}
