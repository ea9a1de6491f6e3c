// Package masstrace extracts mass traces (extracted-ion chromatograms)
// from an LC-MS run and caches them, so that queries that hit the same
// chromatographic peak get the same trace.
//
// Nothing in this package is safe for concurrent use. Workers that
// extract traces in parallel should each use their own Cache and
// combine them afterwards with Cache.Merge.
package masstrace

import (
	"fmt"
	"sort"
)

// ScanPoint is a single detector observation
type ScanPoint struct {
	ScanIndex     int
	RetentionTime float64 // Seconds
	Mz            float64
	Intensity     float64
}

// Range is a closed interval
type Range struct {
	Min float64
	Max float64
}

// Contains returns true if x lies within r
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// Segment marks a chromatographic peak within a trace by the point
// indices of its apex and boundaries. Traces are currently never split
// into segments.
type Segment struct {
	Apex  int
	Start int
	End   int
}

// MassTrace is an immutable sequence of points, strictly ascending by
// scan index. The m/z of consecutive points is within tolerance, the
// trace as a whole may drift further.
type MassTrace struct {
	points   []ScanPoint
	mzRange  Range
	rtRange  Range
	segments []Segment
}

// emptyTrace is returned wherever no trace was found
var emptyTrace = &MassTrace{}

// Empty returns the shared empty trace
func Empty() *MassTrace {
	return emptyTrace
}

// NewMassTrace makes a trace from a copy of points. It panics if the
// points are not strictly ascending by scan index. No points gives the
// empty trace.
func NewMassTrace(points []ScanPoint) *MassTrace {
	if len(points) == 0 {
		return emptyTrace
	}
	t := &MassTrace{points: make([]ScanPoint, len(points))}
	copy(t.points, points)
	t.mzRange = Range{Min: points[0].Mz, Max: points[0].Mz}
	t.rtRange = Range{Min: points[0].RetentionTime, Max: points[0].RetentionTime}
	for i, p := range t.points {
		if i > 0 && p.ScanIndex <= t.points[i-1].ScanIndex {
			panic(fmt.Sprintf("masstrace: scan %d follows scan %d", p.ScanIndex, t.points[i-1].ScanIndex))
		}
		t.mzRange.Min = min(t.mzRange.Min, p.Mz)
		t.mzRange.Max = max(t.mzRange.Max, p.Mz)
		t.rtRange.Min = min(t.rtRange.Min, p.RetentionTime)
		t.rtRange.Max = max(t.rtRange.Max, p.RetentionTime)
	}
	return t
}

// IsEmpty returns true for a trace without points
func (t *MassTrace) IsEmpty() bool {
	return len(t.points) == 0
}

// Len returns the number of points
func (t *MassTrace) Len() int {
	return len(t.points)
}

// Point returns point i
func (t *MassTrace) Point(i int) ScanPoint {
	return t.points[i]
}

// Points returns a copy of all points
func (t *MassTrace) Points() []ScanPoint {
	p := make([]ScanPoint, len(t.points))
	copy(p, t.points)
	return p
}

// MzRange returns the lowest and highest m/z of the trace
func (t *MassTrace) MzRange() Range {
	return t.mzRange
}

// RtRange returns the first and last retention time of the trace
func (t *MassTrace) RtRange() Range {
	return t.rtRange
}

// Segments returns the chromatographic peaks of the trace, if known
func (t *MassTrace) Segments() []Segment {
	return t.segments
}

// Find returns the point measured in scan scanIndex
func (t *MassTrace) Find(scanIndex int) (ScanPoint, bool) {
	i := sort.Search(len(t.points), func(i int) bool { return t.points[i].ScanIndex >= scanIndex })
	if i < len(t.points) && t.points[i].ScanIndex == scanIndex {
		return t.points[i], true
	}
	return ScanPoint{}, false
}
