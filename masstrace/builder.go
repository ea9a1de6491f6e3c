package masstrace

import (
	"math"
	"sort"

	"github.com/524D/mztrace/deviation"
	"github.com/524D/mztrace/spectrum"
)

// seedDeviation is the tolerance for finding the seed peak of a trace
var seedDeviation = deviation.New(15)

// Variance of the log intensity ratio between consecutive points
const intensityVariance = float64(1)

// Builder extends seed peaks into mass traces
type Builder struct {
	dev deviation.Deviation
}

// NewBuilder returns a builder that accepts a peak in the next scan if
// its m/z is within dev of the last point of the trace
func NewBuilder(dev deviation.Deviation) *Builder {
	return &Builder{dev: dev}
}

// DetectExact builds the trace through the peak closest to mz in scan
func (b *Builder) DetectExact(cache *Cache, sample *Sample, scan spectrum.Scan, mz float64) (*MassTrace, error) {
	spec, err := sample.Storage.Spectrum(scan.Index)
	if err != nil {
		return nil, err
	}
	i, ok := spec.Search(mz, seedDeviation)
	if !ok {
		return emptyTrace, nil
	}
	return b.BuildTrace(cache, sample, newPoint(scan, spec, i))
}

// Detect builds the trace through the most intense peak near mz in scan
func (b *Builder) Detect(cache *Cache, sample *Sample, scan spectrum.Scan, mz float64) (*MassTrace, error) {
	spec, err := sample.Storage.Spectrum(scan.Index)
	if err != nil {
		return nil, err
	}
	i, ok := spec.MostIntenseWithin(mz, seedDeviation)
	if !ok {
		return emptyTrace, nil
	}
	return b.BuildTrace(cache, sample, newPoint(scan, spec, i))
}

// DetectInRange builds the trace through the most intense peak near mz
// in any MS1 scan with index from..to (inclusive)
func (b *Builder) DetectInRange(cache *Cache, sample *Sample, from, to int, mz float64) (*MassTrace, error) {
	scans := sample.Storage.Scans()
	var seed ScanPoint
	found := false
	for k := sort.Search(len(scans), func(i int) bool { return scans[i].Index >= from }); k < len(scans) && scans[k].Index <= to; k++ {
		if scans[k].IsMs2() {
			continue
		}
		spec, err := sample.Storage.Spectrum(scans[k].Index)
		if err != nil {
			return nil, err
		}
		i, ok := spec.MostIntenseWithin(mz, seedDeviation)
		if ok && (!found || spec.Intensity(i) > seed.Intensity) {
			seed = newPoint(scans[k], spec, i)
			found = true
		}
	}
	if !found {
		return emptyTrace, nil
	}
	return b.BuildTrace(cache, sample, seed)
}

// BuildTrace returns the cached trace that contains seed, or else
// extends seed in both directions through the MS1 scans of the sample,
// adds the result to the cache and returns it.
// Extension in a direction stops at the first scan without a matching
// peak.
func (b *Builder) BuildTrace(cache *Cache, sample *Sample, seed ScanPoint) (*MassTrace, error) {
	if t, ok := cache.Retrieve(seed); ok {
		cacheHits.Inc()
		return t, nil
	}
	cacheMisses.Inc()

	scans := sample.Storage.Scans()
	var err error
	var ok bool

	forward := []ScanPoint{seed}
	first := sort.Search(len(scans), func(i int) bool { return scans[i].Index > seed.ScanIndex })
	for k := first; k < len(scans); k++ {
		if scans[k].IsMs2() {
			continue
		}
		forward, ok, err = b.tryToExtend(sample, forward, scans[k])
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}

	backward := []ScanPoint{seed}
	last := sort.Search(len(scans), func(i int) bool { return scans[i].Index >= seed.ScanIndex }) - 1
	for k := last; k >= 0; k-- {
		if scans[k].IsMs2() {
			continue
		}
		backward, ok, err = b.tryToExtend(sample, backward, scans[k])
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}

	// Reversed backward points without the seed, then the seed and
	// the forward points
	points := make([]ScanPoint, 0, len(backward)-1+len(forward))
	for k := len(backward) - 1; k >= 1; k-- {
		points = append(points, backward[k])
	}
	points = append(points, forward...)

	t := NewMassTrace(points)
	if !t.IsEmpty() {
		cache.Add(t)
		tracesBuilt.Inc()
	}
	return t, nil
}

// tryToExtend appends the best matching peak of scan to trace. If no peak
// above the noise level matches the last point of trace, ok is false and
// trace is returned unchanged.
func (b *Builder) tryToExtend(sample *Sample, trace []ScanPoint, scan spectrum.Scan) ([]ScanPoint, bool, error) {
	prev := trace[len(trace)-1]
	spec, err := sample.Storage.Spectrum(scan.Index)
	if err != nil {
		return trace, false, err
	}
	halfWidth := b.dev.AbsoluteFor(prev.Mz) / 2
	mzStd := halfWidth * halfWidth
	noiseLevel := sample.Noise.NoiseLevel(scan.Index, prev.Mz)

	start, ok := spec.FirstWithin(prev.Mz, b.dev)
	if !ok {
		extendFailed.Inc()
		return trace, false, nil
	}
	end := start
	for end < spec.Len() && b.dev.InErrorWindow(prev.Mz, spec.Mz(end)) &&
		spec.Intensity(end) >= noiseLevel {
		end++
	}

	switch end - start {
	case 0:
		extendFailed.Inc()
		return trace, false, nil
	case 1:
		extendedSingle.Inc()
		return append(trace, newPoint(scan, spec, start)), true, nil
	}

	best := start
	bestScore := score(prev, spec.Peak(start), noiseLevel, mzStd)
	for k := start + 1; k < end; k++ {
		if s := score(prev, spec.Peak(k), noiseLevel, mzStd); s > bestScore {
			best = k
			bestScore = s
		}
	}
	extendedScored.Inc()
	return append(trace, newPoint(scan, spec, best)), true, nil
}

// score rates how well peak continues prev, combining a Gaussian on the
// m/z difference with a Gaussian on the log intensity ratio
func score(prev ScanPoint, peak spectrum.Peak, noiseLevel, mzStd float64) float64 {
	dMz := peak.Mz - prev.Mz
	dInt := math.Log(noiseLevel+peak.Intensity) - math.Log(noiseLevel+prev.Intensity)
	return math.Exp(-(dMz*dMz/(4*mzStd) + dInt*dInt/(4*intensityVariance)))
}

func newPoint(scan spectrum.Scan, spec spectrum.Simple, i int) ScanPoint {
	return ScanPoint{
		ScanIndex:     scan.Index,
		RetentionTime: scan.RetentionTime,
		Mz:            spec.Mz(i),
		Intensity:     spec.Intensity(i),
	}
}
