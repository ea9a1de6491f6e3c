// Package spectrum holds mass-sorted peak lists and the scan metadata
// of an LC-MS run.
package spectrum

import (
	"sort"

	"github.com/524D/mztrace/deviation"
)

// Peak contains the actual ms peak info
type Peak struct {
	Mz        float64
	Intensity float64
}

// Simple is an immutable list of peaks, ordered by m/z
type Simple struct {
	peaks []Peak
}

// NewSimple makes a spectrum from a copy of peaks, sorted by m/z.
// The caller's slice is not modified.
func NewSimple(peaks []Peak) Simple {
	p := make([]Peak, len(peaks))
	copy(p, peaks)
	sort.SliceStable(p, func(i, j int) bool { return p[i].Mz < p[j].Mz })
	return Simple{peaks: p}
}

// Len returns the number of peaks
func (s Simple) Len() int {
	return len(s.peaks)
}

// Peak returns peak i
func (s Simple) Peak(i int) Peak {
	return s.peaks[i]
}

// Mz returns the m/z of peak i
func (s Simple) Mz(i int) float64 {
	return s.peaks[i].Mz
}

// Intensity returns the intensity of peak i
func (s Simple) Intensity(i int) float64 {
	return s.peaks[i].Intensity
}

// Intensities returns a copy of all intensities, in m/z order
func (s Simple) Intensities() []float64 {
	intens := make([]float64, len(s.peaks))
	for i, p := range s.peaks {
		intens[i] = p.Intensity
	}
	return intens
}

// window returns the half open index range [i1, i2) of peaks that lie
// within the tolerance window around mz
func (s Simple) window(mz float64, dev deviation.Deviation) (int, int) {
	a := dev.AbsoluteFor(mz)
	i1 := sort.Search(len(s.peaks), func(i int) bool { return s.peaks[i].Mz >= mz-a })
	i2 := sort.Search(len(s.peaks), func(i int) bool { return s.peaks[i].Mz > mz+a })
	return i1, i2
}

// FirstWithin returns the index of the lowest m/z peak within the
// tolerance window around mz. ok is false if there is none.
func (s Simple) FirstWithin(mz float64, dev deviation.Deviation) (int, bool) {
	i1, i2 := s.window(mz, dev)
	if i1 < i2 {
		return i1, true
	}
	return -1, false
}

// Search returns the index of the peak closest to mz, if it lies
// within the tolerance window
func (s Simple) Search(mz float64, dev deviation.Deviation) (int, bool) {
	i1, i2 := s.window(mz, dev)
	best := -1
	for i := i1; i < i2; i++ {
		if best < 0 || abs(s.peaks[i].Mz-mz) < abs(s.peaks[best].Mz-mz) {
			best = i
		}
	}
	return best, best >= 0
}

// MostIntenseWithin returns the index of the highest intensity peak in
// the tolerance window around mz. Of equally intense peaks, the one with
// the lowest m/z is returned.
func (s Simple) MostIntenseWithin(mz float64, dev deviation.Deviation) (int, bool) {
	i1, i2 := s.window(mz, dev)
	best := -1
	for i := i1; i < i2; i++ {
		if best < 0 || s.peaks[i].Intensity > s.peaks[best].Intensity {
			best = i
		}
	}
	return best, best >= 0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
