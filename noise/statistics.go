package noise

import (
	"log"
	"math"

	"github.com/524D/mztrace/spectrum"
)

// Spectra with fewer non-zero peaks than this get their noise level from
// the lowest peak instead of a percentile
const minPeaksForPercentile = 100

// lowestPeakDivisor scales the lowest non-zero intensity into a noise level
const lowestPeakDivisor = 5

// Statistics estimates a noise level per scan and smooths it with a
// moving average over the last bandWidth scans.
type Statistics struct {
	bandWidth  int
	percentile float64

	// Circular buffer with the raw estimates of the last bandWidth scans
	buffer []float64
	filled int // Number of valid values in buffer, at most bandWidth
	offset int // Position of the oldest value once buffer is full
	sum    float64

	levels      []float64 // Smoothed levels, one per scan once buffer was filled
	scanIndices []int
}

// NewStatistics returns an estimator that takes the intensity at the
// given percentile (0 <= percentile < 1) of each spectrum as raw noise
// estimate
func NewStatistics(bandWidth int, percentile float64) *Statistics {
	if bandWidth < 1 {
		bandWidth = 1
	}
	return &Statistics{
		bandWidth:  bandWidth,
		percentile: percentile,
		buffer:     make([]float64, bandWidth),
	}
}

// Len returns the number of scans added
func (s *Statistics) Len() int {
	return len(s.scanIndices)
}

// Add adds the spectrum of a scan. Scans must be added in ascending
// index order.
func (s *Statistics) Add(scan spectrum.Scan, spec spectrum.Simple) {
	noise := s.rawNoise(spec)
	s.scanIndices = append(s.scanIndices, scan.Index)

	if s.filled < s.bandWidth {
		s.buffer[s.filled] = noise
		s.filled++
		s.sum += noise
		if s.filled == s.bandWidth {
			// Scans seen so far get the first full average
			avg := s.sum / float64(s.bandWidth)
			for i := 0; i < s.bandWidth; i++ {
				s.levels = append(s.levels, avg)
			}
		}
		return
	}
	s.sum -= s.buffer[s.offset]
	s.buffer[s.offset] = noise
	s.sum += noise
	s.offset = (s.offset + 1) % s.bandWidth
	s.levels = append(s.levels, s.sum/float64(s.bandWidth))
}

// rawNoise computes the unsmoothed noise level of a single spectrum
func (s *Statistics) rawNoise(spec spectrum.Simple) float64 {
	intens := spec.Intensities()
	nonZero := 0
	lowest := math.Inf(1)
	for _, v := range intens {
		if v > 0 {
			nonZero++
			if v < lowest {
				lowest = v
			}
		}
	}
	if nonZero == 0 {
		return 0
	}
	if nonZero >= minPeaksForPercentile {
		noise := selectKth(intens, int(float64(len(intens))*s.percentile))
		if noise > 0 {
			return noise
		}
	}
	return lowest / lowestPeakDivisor
}

// finalLevels returns the smoothed levels of all scans, padding scans of
// a partially filled buffer with the average of that buffer
func (s *Statistics) finalLevels() []float64 {
	levels := make([]float64, len(s.levels), len(s.scanIndices))
	copy(levels, s.levels)
	if s.filled > 0 && s.filled < s.bandWidth {
		avg := s.sum / float64(s.filled)
		for len(levels) < len(s.scanIndices) {
			levels = append(levels, avg)
		}
	}
	return levels
}

// LocalModel returns a model with the smoothed noise level of every
// added scan. The estimator may be used further afterwards.
func (s *Statistics) LocalModel() *LocalModel {
	return NewLocalModel(s.finalLevels(), s.scanIndices)
}

// GlobalModel returns the median of the smoothed levels as noise level,
// and ten times that as signal level
func (s *Statistics) GlobalModel() GlobalModel {
	levels := s.finalLevels()
	if len(levels) == 0 {
		log.Printf("noise: no scans for global noise model, using zero levels")
		return NewGlobalModel(0, 0)
	}
	median := selectKth(levels, len(levels)/2)
	return NewGlobalModel(median, signalFactor*median)
}
