package tasks

import (
	"fmt"

	"github.com/desertthunder/mzsearch/internal/formatter"
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/services"
	"github.com/desertthunder/mzsearch/internal/shared"
)

// Attachment is an identification applied to a row.
type Attachment struct {
	RowIndex       int
	Identification models.Identification
}

// Correlate maps every query with a peptide hit back to its row through the row index embedded
// in the query title, and attaches the hit as the row's preferred identification.
//
// All titles are validated before anything is attached; a malformed title or an index that does
// not name a row is an [shared.ErrParse]. Returns the number of identifications attached.
func Correlate(rs services.ResultSet, rows []*models.Row) (int, error) {
	attached, err := correlate(rs, rows)
	return len(attached), err
}

func correlate(rs services.ResultSet, rows []*models.Row) ([]Attachment, error) {
	var pending []Attachment
	for q := 1; q <= rs.QueryCount(); q++ {
		hit, ok := rs.PeptideHit(q)
		if !ok || hit == nil {
			continue
		}

		title := rs.QueryTitle(q)
		idx, err := formatter.ParseTitle(title)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", q, err)
		}
		if idx >= len(rows) {
			return nil, fmt.Errorf("%w: query %d names row %d of %d", shared.ErrParse, q, idx, len(rows))
		}
		if rows[idx].Index != idx {
			return nil, fmt.Errorf("%w: query %d names row %d, found row %d at that position", shared.ErrParse, q, idx, rows[idx].Index)
		}

		pending = append(pending, Attachment{RowIndex: idx, Identification: models.NewIdentification(q, hit)})
	}

	for _, a := range pending {
		rows[a.RowIndex].AddIdentification(a.Identification, true)
	}
	return pending, nil
}
