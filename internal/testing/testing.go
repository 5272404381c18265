// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/mzsearch/internal/models"
)

// MSMSScan builds a centroided MS level 2 scan with two fragment peaks.
func MSMSScan(number int, rt, precursorMZ float64, charge int) *models.Scan {
	return &models.Scan{
		Number:          number,
		MSLevel:         2,
		RetentionTime:   rt,
		PrecursorMZ:     precursorMZ,
		PrecursorCharge: charge,
		Centroided:      true,
		DataPoints: []models.DataPoint{
			{MZ: 175.119, Intensity: 1200},
			{MZ: 262.151, Intensity: 850.5},
		},
	}
}

// MS1Scan builds a survey scan, which is never exported.
func MS1Scan(number int, rt float64) *models.Scan {
	return &models.Scan{
		Number:        number,
		MSLevel:       1,
		RetentionTime: rt,
		Centroided:    true,
		DataPoints:    []models.DataPoint{{MZ: 500.25, Intensity: 10000}},
	}
}

// NewPeakList builds a peak list with one row per scan; a nil scan yields a row without one.
func NewPeakList(name string, scans ...*models.Scan) *models.PeakList {
	pl := &models.PeakList{Name: name}
	for i, scan := range scans {
		var mz, rt float64
		if scan != nil {
			mz, rt = scan.PrecursorMZ, scan.RetentionTime
		}
		pl.Rows = append(pl.Rows, models.NewRow(i, &models.Peak{
			MZ:            mz,
			RetentionTime: rt,
			Height:        1e6,
			FragmentScan:  scan,
		}))
	}
	return pl
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
