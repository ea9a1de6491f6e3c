package spectrum

import (
	"errors"
	"sort"
)

// Scan contains the metadata of one acquired spectrum
type Scan struct {
	Index         int     // Position of the scan in the run, ascending in time
	RetentionTime float64 // Seconds
	MsLevel       int
	PrecursorMz   float64 // Selected ion m/z, 0 for MS1 scans
}

// IsMs2 returns true for fragment (MS2 or higher) scans
func (s Scan) IsMs2() bool {
	return s.MsLevel >= 2
}

// Storage gives access to the scans of a run and their spectra
type Storage interface {
	// Scans returns all scans ordered by ascending index.
	// The returned slice must not be modified.
	Scans() []Scan
	// Spectrum returns the mass sorted spectrum of a scan
	Spectrum(scanIndex int) (Simple, error)
}

// Run is an in-memory Storage
type Run struct {
	scans   []Scan
	spectra []Simple
}

var (
	// ErrInvalidScanIndex means an invalid scan index is supplied
	ErrInvalidScanIndex = errors.New("spectrum: invalid scan index")
	// ErrScanOrder means scans were not added in ascending index order
	ErrScanOrder = errors.New("spectrum: scan index not ascending")
)

// NewRun returns an empty run
func NewRun() *Run {
	return &Run{}
}

// Add appends a scan with its spectrum. Scan indices must be strictly
// ascending.
func (r *Run) Add(scan Scan, spec Simple) error {
	if n := len(r.scans); n > 0 && r.scans[n-1].Index >= scan.Index {
		return ErrScanOrder
	}
	r.scans = append(r.scans, scan)
	r.spectra = append(r.spectra, spec)
	return nil
}

// Len returns the number of scans
func (r *Run) Len() int {
	return len(r.scans)
}

// Scans returns all scans ordered by index
func (r *Run) Scans() []Scan {
	return r.scans
}

func (r *Run) position(scanIndex int) (int, error) {
	i := sort.Search(len(r.scans), func(i int) bool { return r.scans[i].Index >= scanIndex })
	if i == len(r.scans) || r.scans[i].Index != scanIndex {
		return 0, ErrInvalidScanIndex
	}
	return i, nil
}

// Scan returns the metadata of a scan
func (r *Run) Scan(scanIndex int) (Scan, error) {
	i, err := r.position(scanIndex)
	if err != nil {
		return Scan{}, err
	}
	return r.scans[i], nil
}

// Spectrum returns the spectrum of a scan
func (r *Run) Spectrum(scanIndex int) (Simple, error) {
	i, err := r.position(scanIndex)
	if err != nil {
		return Simple{}, err
	}
	return r.spectra[i], nil
}
