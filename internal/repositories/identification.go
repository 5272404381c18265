package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

const identificationColumns = `
	id, search_id, row_index, query, peptide, modified_peptide, ions_score,
	expect, calc_mass, delta, missed_cleavages, proteins, created_at
`

// IdentificationRepository is the [models.Store] for recorded identifications.
//
// Identifications belong to a search and are removed with it.
type IdentificationRepository struct {
	db *sql.DB
}

var _ models.Store[*models.PersistedIdentification] = (*IdentificationRepository)(nil)

// NewIdentificationRepository creates a new IdentificationRepository with the given database connection
func NewIdentificationRepository(db *sql.DB) *IdentificationRepository {
	return &IdentificationRepository{db: db}
}

// Create inserts a new identification with a generated ID
func (r *IdentificationRepository) Create(p *models.PersistedIdentification) error {
	return r.insert(r.db, p)
}

// CreateAll inserts identifications for one search in a single transaction.
func (r *IdentificationRepository) CreateAll(items []*models.PersistedIdentification) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range items {
		if err := r.insert(tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit identifications: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (r *IdentificationRepository) insert(db execer, p *models.PersistedIdentification) error {
	p.SetID(shared.GenerateID())

	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ident := p.Identification()
	query := `
		INSERT INTO identifications (` + identificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		p.ID(),
		p.SearchID(),
		p.RowIndex(),
		ident.Query,
		ident.Sequence,
		nullable(ident.ModifiedSequence),
		ident.IonsScore,
		ident.Expect,
		ident.CalcMass,
		ident.Delta,
		ident.MissedCleavages,
		nullable(strings.Join(ident.Proteins, ";")),
		p.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert identification: %w", err)
	}

	return nil
}

// Get retrieves an identification by ID
func (r *IdentificationRepository) Get(id string) (*models.PersistedIdentification, error) {
	query := `SELECT ` + identificationColumns + ` FROM identifications WHERE id = ?`

	p, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: identification %s", shared.ErrNotFound, id)
	}
	return p, err
}

// Update rewrites the peptide fields of an identification
func (r *IdentificationRepository) Update(p *models.PersistedIdentification) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ident := p.Identification()
	query := `
		UPDATE identifications
		SET peptide = ?, modified_peptide = ?, ions_score = ?, expect = ?, calc_mass = ?,
			delta = ?, missed_cleavages = ?, proteins = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		ident.Sequence,
		nullable(ident.ModifiedSequence),
		ident.IonsScore,
		ident.Expect,
		ident.CalcMass,
		ident.Delta,
		ident.MissedCleavages,
		nullable(strings.Join(ident.Proteins, ";")),
		p.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update identification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: identification %s", shared.ErrNotFound, p.ID())
	}

	return nil
}

// Delete removes an identification by ID
func (r *IdentificationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM identifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete identification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: identification %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves identifications ordered by search and row.
//
// Supported criteria: "search_id" (string), "min_score" (float64).
func (r *IdentificationRepository) List(criteria models.Criteria) ([]*models.PersistedIdentification, error) {
	query := `SELECT ` + identificationColumns + ` FROM identifications WHERE 1 = 1`
	args := []any{}

	if searchID, ok := criteria.Text("search_id"); ok {
		query += " AND search_id = ?"
		args = append(args, searchID)
	}

	if minScore, ok := criteria.Float("min_score"); ok {
		query += " AND ions_score >= ?"
		args = append(args, minScore)
	}

	query += " ORDER BY search_id, row_index ASC, query ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifications: %w", err)
	}
	defer rows.Close()

	var items []*models.PersistedIdentification
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// ListBySearch retrieves every identification recorded for a search
func (r *IdentificationRepository) ListBySearch(searchID string) ([]*models.PersistedIdentification, error) {
	return r.List(models.Criteria{"search_id": searchID})
}

func (r *IdentificationRepository) scan(row rowScanner) (*models.PersistedIdentification, error) {
	var (
		id              string
		searchID        string
		rowIndex        int
		query           int
		peptide         string
		modifiedPeptide sql.NullString
		ionsScore       float64
		expect          float64
		calcMass        float64
		delta           float64
		missedCleavages int
		proteins        sql.NullString
		createdAt       time.Time
	)

	err := row.Scan(
		&id, &searchID, &rowIndex, &query, &peptide, &modifiedPeptide, &ionsScore,
		&expect, &calcMass, &delta, &missedCleavages, &proteins, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan identification: %w", err)
	}

	hit := &models.PeptideHit{
		Sequence:         peptide,
		ModifiedSequence: modifiedPeptide.String,
		IonsScore:        ionsScore,
		Expect:           expect,
		CalcMass:         calcMass,
		Delta:            delta,
		MissedCleavages:  missedCleavages,
	}
	if proteins.String != "" {
		hit.Proteins = strings.Split(proteins.String, ";")
	}

	p := models.NewPersistedIdentification(searchID, rowIndex, models.NewIdentification(query, hit))
	p.SetID(id)
	p.SetCreatedAt(createdAt)
	return p, nil
}
