package models

import "sync"

// DataPoint is a single m/z and intensity pair.
type DataPoint struct {
	MZ        float64 `json:"mz"`
	Intensity float64 `json:"intensity"`
}

// Scan is one mass spectrum.
//
// DataPoints hold discrete peaks when Centroided is set, raw profile points otherwise.
type Scan struct {
	Number          int         `json:"number"`
	MSLevel         int         `json:"ms_level"`
	RetentionTime   float64     `json:"rt"` // seconds
	PrecursorMZ     float64     `json:"precursor_mz"`
	PrecursorCharge int         `json:"precursor_charge"` // sign encodes polarity
	Centroided      bool        `json:"centroided"`
	DataPoints      []DataPoint `json:"data_points"`
}

// IsMSMS reports whether the scan is a fragmentation (MS level 2) scan.
func (s *Scan) IsMSMS() bool {
	return s != nil && s.MSLevel == 2
}

// Peak is a detected chromatographic feature.
type Peak struct {
	MZ            float64 `json:"mz"`
	RetentionTime float64 `json:"rt"`
	Height        float64 `json:"height"`
	FragmentScan  *Scan   `json:"fragment_scan,omitempty"` // most intense fragmentation scan, may be nil
}

// Row is one entry of a [PeakList].
//
// Index is the row's stable position; identifications may be appended concurrently with readers.
type Row struct {
	Index    int   `json:"index"`
	BestPeak *Peak `json:"best_peak,omitempty"`

	mu              sync.RWMutex
	identifications []Identification
	preferred       int
}

// NewRow creates a row at position index.
func NewRow(index int, best *Peak) *Row {
	return &Row{Index: index, BestPeak: best, preferred: -1}
}

// BestScan returns the fragmentation scan of the row's best peak, or nil.
func (r *Row) BestScan() *Scan {
	if r == nil || r.BestPeak == nil {
		return nil
	}
	return r.BestPeak.FragmentScan
}

// AddIdentification appends id, making it the preferred identification when preferred is set.
func (r *Row) AddIdentification(id Identification, preferred bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identifications = append(r.identifications, id)
	if preferred || len(r.identifications) == 1 {
		r.preferred = len(r.identifications) - 1
	}
}

// Identifications returns a copy of the row's identifications.
func (r *Row) Identifications() []Identification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Identification, len(r.identifications))
	copy(out, r.identifications)
	return out
}

// PreferredIdentification returns the preferred identification, if any.
func (r *Row) PreferredIdentification() (Identification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.identifications) == 0 || r.preferred < 0 {
		return Identification{}, false
	}
	return r.identifications[r.preferred], true
}

// PeakList is an ordered collection of rows. Row order must not change while a search is running.
type PeakList struct {
	Name string
	Rows []*Row
}
