// Package deviation implements the mass tolerance used to decide whether
// two m/z values belong to the same ion.
package deviation

import "math"

// Deviation is a combined relative (ppm) and absolute mass tolerance.
// The larger of the two applies for a given mass.
type Deviation struct {
	PPM      float64 `json:"ppm" yaml:"ppm"`
	Absolute float64 `json:"absolute" yaml:"absolute"`
}

// New returns a Deviation of ppm parts per million with an absolute
// lower bound of ppm*1e-4 Da (e.g. 10 ppm -> 1 mDa).
func New(ppm float64) Deviation {
	return Deviation{PPM: ppm, Absolute: ppm * 1e-4}
}

// AbsoluteFor returns the absolute tolerance in Da at mass mz
func (d Deviation) AbsoluteFor(mz float64) float64 {
	return math.Max(mz*d.PPM*1e-6, d.Absolute)
}

// InErrorWindow reports whether candidate lies within the tolerance
// window around reference. The window width is computed at reference.
func (d Deviation) InErrorWindow(reference, candidate float64) bool {
	return math.Abs(reference-candidate) <= d.AbsoluteFor(reference)
}
