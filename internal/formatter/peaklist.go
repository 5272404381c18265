package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

type peakListFile struct {
	Name string       `json:"name"`
	Rows []peakRecord `json:"rows"`
}

type peakRecord struct {
	Index    *int         `json:"index,omitempty"`
	BestPeak *models.Peak `json:"best_peak"`
}

// ReadPeakList loads a JSON peak list from path. The name defaults to the file's base name.
func ReadPeakList(path string) (*models.PeakList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open peak list: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return DecodePeakList(f, name)
}

// DecodePeakList decodes a JSON peak list. Row indices default to their position and must match it.
func DecodePeakList(r io.Reader, defaultName string) (*models.PeakList, error) {
	var doc peakListFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid peak list: %v", shared.ErrInvalidInput, err)
	}

	name := doc.Name
	if name == "" {
		name = defaultName
	}

	pl := &models.PeakList{Name: name, Rows: make([]*models.Row, 0, len(doc.Rows))}
	for pos, rec := range doc.Rows {
		if rec.Index != nil && *rec.Index != pos {
			return nil, fmt.Errorf("%w: row at position %d declares index %d", shared.ErrInvalidInput, pos, *rec.Index)
		}
		pl.Rows = append(pl.Rows, models.NewRow(pos, rec.BestPeak))
	}
	return pl, nil
}

// MSMSCount returns the number of rows carrying a fragmentation scan.
func MSMSCount(pl *models.PeakList) int {
	n := 0
	for _, row := range pl.Rows {
		if row.BestScan().IsMSMS() {
			n++
		}
	}
	return n
}
