package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

const searchColumns = `
	id, sequence, peak_list, status, progress, date_dir, job_id, result_url,
	identifications, error_message, started_at, completed_at, created_at,
	updated_at
`

// SearchRepository is the [models.Store] for search history.
//
// Handles search CRUD operations with soft delete support and status-based queries.
type SearchRepository struct {
	db *sql.DB
}

var _ models.Store[*models.SearchJob] = (*SearchRepository)(nil)

// NewSearchRepository creates a new SearchRepository with the given database connection
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Create inserts a new search with a generated sequence. An ID is generated unless already set.
func (r *SearchRepository) Create(job *models.SearchJob) error {
	sequence, err := NextSequence(r.db, "searches")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	job.SetSequence(sequence)

	if job.ID() == "" {
		job.SetID(shared.GenerateID())
	}

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO searches (
			id, sequence, peak_list, status, progress, date_dir, job_id, result_url,
			identifications, error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		job.ID(),
		sequence,
		job.PeakList(),
		string(job.Status()),
		job.Progress(),
		nullable(job.DateDir()),
		nullable(job.JobID()),
		nullable(job.ResultURL()),
		job.Identifications(),
		nullable(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}

	return nil
}

// Get retrieves a search by ID, excluding soft-deleted searches
func (r *SearchRepository) Get(id string) (*models.SearchJob, error) {
	query := `SELECT ` + searchColumns + ` FROM searches WHERE id = ? AND deleted_at IS NULL`

	job, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: search %s", shared.ErrNotFound, id)
	}
	return job, err
}

// GetBySequence retrieves a search by its sequence number
func (r *SearchRepository) GetBySequence(sequence int) (*models.SearchJob, error) {
	query := `SELECT ` + searchColumns + ` FROM searches WHERE sequence = ? AND deleted_at IS NULL`

	job, err := r.scan(r.db.QueryRow(query, sequence))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: search #%d", shared.ErrNotFound, sequence)
	}
	return job, err
}

// Update modifies an existing search in the database
func (r *SearchRepository) Update(job *models.SearchJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE searches
		SET status = ?, progress = ?, date_dir = ?, job_id = ?, result_url = ?,
			identifications = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(job.Status()),
		job.Progress(),
		nullable(job.DateDir()),
		nullable(job.JobID()),
		nullable(job.ResultURL()),
		job.Identifications(),
		nullable(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update search: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: search not found or already deleted: %s", shared.ErrNotFound, job.ID())
	}

	return nil
}

// Delete soft-deletes a search by ID
func (r *SearchRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE searches
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: search not found or already deleted: %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves searches matching the given criteria, newest first, excluding soft-deleted searches.
//
// Supported criteria: "status" (string), "peak_list" (string), "limit" (int).
func (r *SearchRepository) List(criteria models.Criteria) ([]*models.SearchJob, error) {
	query := `SELECT ` + searchColumns + ` FROM searches WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria.Text("status"); ok {
		query += " AND status = ?"
		args = append(args, status)
	}

	if peakList, ok := criteria.Text("peak_list"); ok {
		query += " AND peak_list = ?"
		args = append(args, peakList)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria.Limit(); ok {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SearchJob
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// scan reads one row into a [models.SearchJob]. [sql.ErrNoRows] is returned unwrapped.
func (r *SearchRepository) scan(row rowScanner) (*models.SearchJob, error) {
	var (
		id              string
		sequence        int
		peakList        string
		status          string
		progress        float64
		dateDir         sql.NullString
		jobID           sql.NullString
		resultURL       sql.NullString
		identifications int
		errorMessage    sql.NullString
		startedAt       sql.NullTime
		completedAt     sql.NullTime
		createdAt       time.Time
		updatedAt       time.Time
	)

	err := row.Scan(
		&id, &sequence, &peakList, &status, &progress, &dateDir, &jobID, &resultURL,
		&identifications, &errorMessage, &startedAt, &completedAt, &createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search: %w", err)
	}

	job := models.NewSearchJob(sequence, peakList)
	job.SetID(id)
	job.SetStatus(models.SearchStatus(status))
	job.SetProgress(progress)
	job.SetLocation(dateDir.String, jobID.String, resultURL.String)
	job.SetIdentifications(identifications)
	job.SetErrorMessage(errorMessage.String)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if startedAt.Valid {
		job.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}

	return job, nil
}
