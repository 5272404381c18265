// package formatter converts peak list data to and from files: MGF exports for submission,
// JSON peak list input, and identification reports (CSV, JSON, Markdown).
package formatter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mzsearch/internal/centroid"
	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

// TitleMarker is the first token of every exported TITLE; the row index follows it.
const TitleMarker = "RowIdx"

// Centroider turns a profile-mode scan into discrete peaks.
type Centroider interface {
	Centroid(scan *models.Scan) []models.DataPoint
}

// MGFWriter writes one BEGIN IONS/END IONS block per qualifying row.
type MGFWriter struct {
	w          *bufio.Writer
	centroider Centroider
	logger     *log.Logger
	units      int
}

// NewMGFWriter creates an [MGFWriter]. A nil centroider defaults to [centroid.LocalMaxima].
func NewMGFWriter(w io.Writer, c Centroider, logger *log.Logger) *MGFWriter {
	if c == nil {
		c = centroid.LocalMaxima{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MGFWriter{w: bufio.NewWriter(w), centroider: c, logger: logger}
}

// Units returns how many blocks have been written.
func (m *MGFWriter) Units() int { return m.units }

// WriteRow writes the row's best fragmentation scan and flushes.
//
// Rows without an MS level 2 scan are skipped with a warning and report false.
// The block title carries row.Index, never a running counter.
func (m *MGFWriter) WriteRow(row *models.Row) (bool, error) {
	scan := row.BestScan()
	if scan == nil {
		m.logger.Warn("row has no fragmentation scan", "row", row.Index)
		return false, nil
	}
	if !scan.IsMSMS() {
		m.logger.Warn("scan is not a MS/MS scan", "row", row.Index, "scan", scan.Number, "ms_level", scan.MSLevel)
		return false, nil
	}

	var b strings.Builder
	b.WriteString("\nBEGIN IONS\n")
	fmt.Fprintf(&b, "TITLE=%s\n", FormatTitle(row.Index, scan))
	fmt.Fprintf(&b, "PEPMASS=%s\n", formatFloat(scan.PrecursorMZ))
	if scan.RetentionTime > 0 {
		fmt.Fprintf(&b, "RTINSECONDS=%s\n", formatFloat(scan.RetentionTime))
	}
	if charge := formatCharge(scan.PrecursorCharge); charge != "" {
		fmt.Fprintf(&b, "CHARGE=%s\n", charge)
	}
	for _, dp := range m.peakSource(scan) {
		fmt.Fprintf(&b, "%s\t%s\n", formatFloat(dp.MZ), formatFloat(dp.Intensity))
	}
	b.WriteString("END IONS\n")

	if _, err := m.w.WriteString(b.String()); err != nil {
		return false, fmt.Errorf("failed to write MGF block for row %d: %w", row.Index, err)
	}
	if err := m.w.Flush(); err != nil {
		return false, fmt.Errorf("failed to flush MGF block for row %d: %w", row.Index, err)
	}

	m.units++
	return true, nil
}

// peakSource decides once per scan where its peak list comes from.
func (m *MGFWriter) peakSource(scan *models.Scan) []models.DataPoint {
	if scan.Centroided {
		return scan.DataPoints
	}
	return m.centroider.Centroid(scan)
}

// ExportMGF writes every qualifying row of rows to w and returns the number of blocks written.
func ExportMGF(w io.Writer, rows []*models.Row, c Centroider, logger *log.Logger) (int, error) {
	mw := NewMGFWriter(w, c, logger)
	for _, row := range rows {
		if _, err := mw.WriteRow(row); err != nil {
			return mw.Units(), err
		}
	}
	return mw.Units(), nil
}

// FormatTitle renders "RowIdx <index> (scan=<n> rt=<rt>)".
func FormatTitle(index int, scan *models.Scan) string {
	return fmt.Sprintf("%s %d (scan=%d rt=%s)", TitleMarker, index, scan.Number, formatFloat(scan.RetentionTime))
}

// ParseTitle recovers the row index embedded by [FormatTitle].
func ParseTitle(title string) (int, error) {
	tokens := strings.Fields(title)
	if len(tokens) < 2 {
		return 0, fmt.Errorf("%w: title %q has no row index", shared.ErrParse, title)
	}
	if tokens[0] != TitleMarker {
		return 0, fmt.Errorf("%w: title %q does not start with %s", shared.ErrParse, title, TitleMarker)
	}

	idx, err := strconv.Atoi(tokens[1])
	if err != nil {
		return 0, fmt.Errorf("%w: title %q has non-numeric row index: %v", shared.ErrParse, title, err)
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: title %q has negative row index", shared.ErrParse, title)
	}
	return idx, nil
}

func formatCharge(z int) string {
	switch {
	case z > 0:
		return strconv.Itoa(z) + "+"
	case z < 0:
		return strconv.Itoa(-z) + "-"
	default:
		return ""
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExportFile is a temporary MGF file written one row at a time.
type ExportFile struct {
	*MGFWriter
	f        *os.File
	closed   bool
	released *bool
}

// ExportToTempFile creates an empty temporary MGF file in dir (the system temp dir when empty).
func ExportToTempFile(dir string, c Centroider, logger *log.Logger) (*ExportFile, error) {
	f, err := os.CreateTemp(dir, "mzsearch-*.mgf")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	return &ExportFile{MGFWriter: NewMGFWriter(f, c, logger), f: f}, nil
}

// Path returns the file's location on disk.
func (e *ExportFile) Path() string { return e.f.Name() }

// Size returns the current file size in bytes.
func (e *ExportFile) Size() int64 {
	info, err := os.Stat(e.f.Name())
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close flushes and closes the file, keeping it on disk.
func (e *ExportFile) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.w.Flush(); err != nil {
		e.f.Close()
		return fmt.Errorf("failed to flush export file: %w", err)
	}
	return e.f.Close()
}

// Release closes and deletes the file. Deletion that fails is deferred to process exit.
//
// Only the first call acts; later calls report its outcome.
func (e *ExportFile) Release() bool {
	if e.released != nil {
		return *e.released
	}
	_ = e.Close()
	released := shared.ReleaseFile(e.f.Name())
	if !released {
		e.logger.Warn("could not delete export file, deferring to exit", "path", e.f.Name())
	}
	e.released = &released
	return released
}

var _ Centroider = centroid.LocalMaxima{}

