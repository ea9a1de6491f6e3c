// Package processing prepares an LC-MS run for trace extraction: it reads
// the run, estimates MS1 and MS2 noise and sets up a builder with an
// empty trace cache.
package processing

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/524D/mztrace/config"
	"github.com/524D/mztrace/internal/mzml"
	"github.com/524D/mztrace/masstrace"
	"github.com/524D/mztrace/noise"
	"github.com/524D/mztrace/spectrum"
)

// Session holds everything needed to extract traces from one run.
// A Session is not safe for concurrent use.
type Session struct {
	Sample  *masstrace.Sample
	Builder *masstrace.Builder
	Cache   *masstrace.Cache
	// Ms2Noise is nil if the run has no fragment spectra
	Ms2Noise *noise.Ms2Model
}

// New estimates the noise of all scans in storage and returns a session
// for it
func New(storage spectrum.Storage, cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := noise.NewStatistics(cfg.Noise.BandWidth, cfg.Noise.Percentile)
	var ms2Stats *noise.Ms2Statistics
	for _, scan := range storage.Scans() {
		spec, err := storage.Spectrum(scan.Index)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", scan.Index, err)
		}
		if scan.IsMs2() {
			if ms2Stats == nil {
				ms2Stats = noise.NewMs2Statistics(cfg.Ms2.Seed)
			}
			ms2Stats.Add(scan, spec)
			continue
		}
		stats.Add(scan, spec)
	}

	var model noise.Model
	if stats.Len() > 0 {
		model = stats.LocalModel()
	} else {
		model = stats.GlobalModel()
	}
	s := &Session{
		Sample:  masstrace.NewSample(storage, model),
		Builder: masstrace.NewBuilder(cfg.Tolerance),
		Cache:   masstrace.NewCache(),
	}
	if ms2Stats != nil {
		s.Ms2Noise = ms2Stats.Done()
	}
	log.Printf("noise estimated over %d MS1 scans", stats.Len())
	return s, nil
}

// Open reads an mzML file and returns a session for it
func Open(path string, cfg config.Config) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mzml.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	run, err := m.Run()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(run, cfg)
}

// Trace returns the trace through the most intense peak near mz in the
// scan with index scanIndex
func (s *Session) Trace(scanIndex int, mz float64) (*masstrace.MassTrace, error) {
	scans := s.Sample.Storage.Scans()
	i := sort.Search(len(scans), func(i int) bool { return scans[i].Index >= scanIndex })
	if i == len(scans) || scans[i].Index != scanIndex {
		return nil, spectrum.ErrInvalidScanIndex
	}
	return s.Builder.Detect(s.Cache, s.Sample, scans[i], mz)
}

// TraceInRange returns the trace through the most intense peak near mz
// in the MS1 scans with index from..to
func (s *Session) TraceInRange(from, to int, mz float64) (*masstrace.MassTrace, error) {
	return s.Builder.DetectInRange(s.Cache, s.Sample, from, to, mz)
}
