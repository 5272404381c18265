package models

import (
	"fmt"
	"time"
)

// SearchStatus is the lifecycle state of a search task.
type SearchStatus string

const (
	StatusWaiting    SearchStatus = "WAITING"
	StatusProcessing SearchStatus = "PROCESSING"
	StatusFinished   SearchStatus = "FINISHED"
	StatusError      SearchStatus = "ERROR"
	StatusCanceled   SearchStatus = "CANCELED"
)

// Terminal reports whether no further transitions are possible from s.
func (s SearchStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError || s == StatusCanceled
}

// Valid reports whether s is one of the known statuses.
func (s SearchStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusProcessing, StatusFinished, StatusError, StatusCanceled:
		return true
	}
	return false
}

// SearchJob tracks one submission to a Mascot server.
type SearchJob struct {
	id              string
	sequence        int
	peakList        string
	status          SearchStatus
	progress        float64
	dateDir         string
	jobID           string
	resultURL       string
	identifications int
	errorMessage    string
	startedAt       *time.Time
	completedAt     *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewSearchJob creates a waiting search for the named peak list.
func NewSearchJob(sequence int, peakList string) *SearchJob {
	now := time.Now()
	return &SearchJob{
		sequence:  sequence,
		peakList:  peakList,
		status:    StatusWaiting,
		createdAt: now,
		updatedAt: now,
	}
}

func (j *SearchJob) ID() string              { return j.id }
func (j *SearchJob) Sequence() int           { return j.sequence }
func (j *SearchJob) PeakList() string        { return j.peakList }
func (j *SearchJob) Status() SearchStatus    { return j.status }
func (j *SearchJob) Progress() float64       { return j.progress }
func (j *SearchJob) DateDir() string         { return j.dateDir }
func (j *SearchJob) JobID() string           { return j.jobID }
func (j *SearchJob) ResultURL() string       { return j.resultURL }
func (j *SearchJob) Identifications() int    { return j.identifications }
func (j *SearchJob) ErrorMessage() string    { return j.errorMessage }
func (j *SearchJob) StartedAt() *time.Time   { return j.startedAt }
func (j *SearchJob) CompletedAt() *time.Time { return j.completedAt }
func (j *SearchJob) CreatedAt() time.Time    { return j.createdAt }
func (j *SearchJob) UpdatedAt() time.Time    { return j.updatedAt }

func (j *SearchJob) SetID(id string)               { j.id = id }
func (j *SearchJob) SetSequence(seq int)           { j.sequence = seq }
func (j *SearchJob) SetProgress(p float64)         { j.progress = p }
func (j *SearchJob) SetIdentifications(n int)      { j.identifications = n }
func (j *SearchJob) SetCreatedAt(t time.Time)      { j.createdAt = t }
func (j *SearchJob) SetUpdatedAt(t time.Time)      { j.updatedAt = t }
func (j *SearchJob) SetStartedAt(t *time.Time)     { j.startedAt = t }
func (j *SearchJob) SetCompletedAt(t *time.Time)   { j.completedAt = t }
func (j *SearchJob) SetErrorMessage(msg string)    { j.errorMessage = msg }
func (j *SearchJob) SetStatus(status SearchStatus) { j.status = status }

// SetLocation records where the completed result file lives.
func (j *SearchJob) SetLocation(dateDir, jobID, resultURL string) {
	j.dateDir = dateDir
	j.jobID = jobID
	j.resultURL = resultURL
}

// Start marks the job as processing.
func (j *SearchJob) Start(at time.Time) {
	j.status = StatusProcessing
	j.startedAt = &at
}

// Complete moves the job to a terminal status.
func (j *SearchJob) Complete(status SearchStatus, message string, at time.Time) {
	j.status = status
	j.errorMessage = message
	j.completedAt = &at
}

// Validate checks required fields.
func (j *SearchJob) Validate() error {
	if j.id == "" {
		return fmt.Errorf("search ID is required")
	}
	if j.peakList == "" {
		return fmt.Errorf("peak list name is required")
	}
	if !j.status.Valid() {
		return fmt.Errorf("invalid status %q", j.status)
	}
	if j.progress < 0 || j.progress > 1 {
		return fmt.Errorf("progress %v out of range [0, 1]", j.progress)
	}
	return nil
}

// PersistedIdentification is an [Identification] recorded against a search and row.
type PersistedIdentification struct {
	id        string
	searchID  string
	rowIndex  int
	ident     Identification
	createdAt time.Time
}

// NewPersistedIdentification wraps ident for storage.
func NewPersistedIdentification(searchID string, rowIndex int, ident Identification) *PersistedIdentification {
	return &PersistedIdentification{
		searchID:  searchID,
		rowIndex:  rowIndex,
		ident:     ident,
		createdAt: time.Now(),
	}
}

func (p *PersistedIdentification) ID() string                     { return p.id }
func (p *PersistedIdentification) SearchID() string               { return p.searchID }
func (p *PersistedIdentification) RowIndex() int                  { return p.rowIndex }
func (p *PersistedIdentification) Identification() Identification { return p.ident }
func (p *PersistedIdentification) CreatedAt() time.Time           { return p.createdAt }

func (p *PersistedIdentification) SetID(id string)          { p.id = id }
func (p *PersistedIdentification) SetCreatedAt(t time.Time) { p.createdAt = t }

// Validate checks required fields.
func (p *PersistedIdentification) Validate() error {
	if p.id == "" {
		return fmt.Errorf("identification ID is required")
	}
	if p.searchID == "" {
		return fmt.Errorf("search ID is required")
	}
	if p.rowIndex < 0 {
		return fmt.Errorf("row index must be non-negative, got %d", p.rowIndex)
	}
	if p.ident.Sequence == "" {
		return fmt.Errorf("peptide sequence is required")
	}
	return nil
}
