package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

// Format is a report output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unsupported output format for %s", shared.ErrInvalidArgument, path)
	}
}

// IdentifiedRow is the report view of a row and its preferred identification.
type IdentifiedRow struct {
	Row            int                   `json:"row"`
	MZ             float64               `json:"mz"`
	RetentionTime  float64               `json:"rt"`
	Identification models.Identification `json:"identification"`
}

// IdentifiedRows collects rows that have a preferred identification, in row order.
func IdentifiedRows(pl *models.PeakList) []IdentifiedRow {
	var out []IdentifiedRow
	for _, row := range pl.Rows {
		ident, ok := row.PreferredIdentification()
		if !ok {
			continue
		}
		r := IdentifiedRow{Row: row.Index, Identification: ident}
		if row.BestPeak != nil {
			r.MZ = row.BestPeak.MZ
			r.RetentionTime = row.BestPeak.RetentionTime
		}
		out = append(out, r)
	}
	return out
}

var csvHeader = []string{
	"row", "mz", "rt", "query", "sequence", "modified_sequence",
	"ions_score", "expect", "calc_mass", "delta", "missed_cleavages", "proteins",
}

// ExportIdentificationsCSV renders identified rows as CSV.
func ExportIdentificationsCSV(pl *models.PeakList) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range IdentifiedRows(pl) {
		id := r.Identification
		record := []string{
			strconv.Itoa(r.Row),
			formatFloat(r.MZ),
			formatFloat(r.RetentionTime),
			strconv.Itoa(id.Query),
			id.Sequence,
			id.ModifiedSequence,
			formatFloat(roundTo(id.IonsScore, 2)),
			strconv.FormatFloat(id.Expect, 'g', 4, 64),
			formatFloat(id.CalcMass),
			formatFloat(id.Delta),
			strconv.Itoa(id.MissedCleavages),
			strings.Join(id.Proteins, ";"),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportIdentificationsJSON renders identified rows as indented JSON.
func ExportIdentificationsJSON(pl *models.PeakList) ([]byte, error) {
	rows := IdentifiedRows(pl)
	if rows == nil {
		rows = []IdentifiedRow{}
	}
	doc := struct {
		Name string          `json:"name"`
		Rows []IdentifiedRow `json:"rows"`
	}{pl.Name, rows}
	return shared.MarshalJSON(doc, true)
}

// ExportIdentificationsMarkdown renders identified rows as a Markdown table.
func ExportIdentificationsMarkdown(pl *models.PeakList) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", pl.Name)

	rows := IdentifiedRows(pl)
	if len(rows) == 0 {
		b.WriteString("No identifications.\n")
		return []byte(b.String()), nil
	}

	b.WriteString("| Row | m/z | RT | Peptide | Score | Expect | Proteins |\n")
	b.WriteString("|-----|-----|----|---------|-------|--------|----------|\n")
	for _, r := range rows {
		id := r.Identification
		fmt.Fprintf(&b, "| %d | %.4f | %.1f | %s | %.1f | %.3g | %s |\n",
			r.Row, r.MZ, r.RetentionTime, escapeMarkdown(id.Sequence), id.IonsScore, id.Expect,
			escapeMarkdown(strings.Join(id.Proteins, ", ")))
	}
	return []byte(b.String()), nil
}

// WriteIdentifications writes a report to path in the format implied by its extension.
// It returns the number of bytes written.
func WriteIdentifications(pl *models.PeakList, path string) (int, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return 0, err
	}

	var data []byte
	switch format {
	case FormatCSV:
		data, err = ExportIdentificationsCSV(pl)
	case FormatJSON:
		data, err = ExportIdentificationsJSON(pl)
	case FormatMarkdown:
		data, err = ExportIdentificationsMarkdown(pl)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to render %s report: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write report: %w", err)
	}
	return len(data), nil
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
