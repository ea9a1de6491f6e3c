package noise

import (
	"log"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/524D/mztrace/internal/formula"
	"github.com/524D/mztrace/spectrum"
)

const (
	ms2SampleTarget     = 100  // Expected number of sampled peaks per spectrum
	ms2PrecursorMargin  = 20.0 // Signal peaks may lie up to this far above the precursor
	ms2MinNoiseSamples  = 10
	ms2MinSignalSamples = 5
	ms2TopSignalPeaks   = 15
	ms2SignalQuantile   = 0.15
	ms2SignalToNoise    = 3
)

// Ms2Statistics estimates noise and signal levels of fragment spectra.
// Peaks that can be explained as a fragment of the precursor count as
// signal, all others as noise.
type Ms2Statistics struct {
	rng        *rand.Rand
	decomposer *formula.Decomposer

	noiseIntensities  []float64
	noiseMeans        []float64
	noiseMedians      []float64
	signalIntensities []float64
}

// NewMs2Statistics returns an estimator. seed drives peak subsampling,
// so equal input gives equal models.
func NewMs2Statistics(seed int64) *Ms2Statistics {
	return &Ms2Statistics{
		rng:        rand.New(rand.NewSource(seed)),
		decomposer: formula.Default(),
	}
}

// Add adds a fragment spectrum. scan.PrecursorMz must be set.
func (s *Ms2Statistics) Add(scan spectrum.Scan, spec spectrum.Simple) {
	n := spec.Len()
	if n == 0 {
		return
	}
	rate := math.Min(1, float64(ms2SampleTarget)/float64(n))
	var signal, noise []float64
	for i := 0; i < n; i++ {
		if rate < 1 && s.rng.Float64() >= rate {
			continue
		}
		mz := spec.Mz(i)
		if mz <= scan.PrecursorMz+ms2PrecursorMargin && s.decomposer.Explainable(mz) {
			signal = append(signal, spec.Intensity(i))
		} else {
			noise = append(noise, spec.Intensity(i))
		}
	}
	if len(noise) >= ms2MinNoiseSamples {
		s.noiseIntensities = append(s.noiseIntensities, noise...)
		s.noiseMeans = append(s.noiseMeans, stat.Mean(noise, nil))
		s.noiseMedians = append(s.noiseMedians, selectKth(noise, len(noise)/2))
	}
	if len(signal) >= ms2MinSignalSamples {
		// Of the top 15 signal peaks, about 15*rate made it into the sample
		top := int(math.Round(ms2TopSignalPeaks * rate))
		if top < 1 {
			top = 1
		}
		s.signalIntensities = append(s.signalIntensities, selectKth(signal, len(signal)-top))
	}
}

// Done computes the model from all added spectra
func (s *Ms2Statistics) Done() *Ms2Model {
	if len(s.noiseIntensities) == 0 {
		log.Printf("noise: no MS2 noise peaks recorded, using zero levels")
		return &Ms2Model{tail: distuv.Pareto{Xm: 1, Alpha: 1}}
	}
	m := &Ms2Model{
		meanNoise:   stat.Mean(s.noiseMeans, nil),
		medianNoise: stat.Mean(s.noiseMedians, nil),
	}
	if len(s.signalIntensities) > 0 {
		sorted := make([]float64, len(s.signalIntensities))
		copy(sorted, s.signalIntensities)
		sort.Float64s(sorted)
		m.signal = sorted[int(float64(len(sorted))*ms2SignalQuantile)]
	}

	noise := make([]float64, len(s.noiseIntensities))
	copy(noise, s.noiseIntensities)
	found := false
	for i := 5; i >= 1; i-- {
		x := float64(i) / 10
		m.noise = selectKth(noise, int(float64(len(noise))*x))
		if m.signal >= ms2SignalToNoise*m.noise {
			found = true
			break
		}
	}
	if !found {
		m.noise = m.signal / 2
	}
	m.tail = fitPareto(s.noiseIntensities)
	return m
}

// fitPareto estimates a Pareto distribution by maximum likelihood from the
// values at or above the 15th percentile
func fitPareto(values []float64) distuv.Pareto {
	xm := quantile(values, ms2SignalQuantile)
	if xm <= 0 {
		// Zero intensities carry no tail information
		xm = math.Inf(1)
		for _, v := range values {
			if v > 0 && v < xm {
				xm = v
			}
		}
		if math.IsInf(xm, 1) {
			return distuv.Pareto{Xm: 1, Alpha: 1}
		}
	}
	var n int
	var sumLog float64
	for _, v := range values {
		if v >= xm {
			n++
			sumLog += math.Log(v / xm)
		}
	}
	alpha := float64(1)
	if sumLog > 0 {
		alpha = float64(n) / sumLog
	}
	return distuv.Pareto{Xm: xm, Alpha: alpha}
}

// Ms2Model contains constant noise and signal levels for fragment
// spectra, plus a Pareto model of the noise intensities
type Ms2Model struct {
	noise       float64
	signal      float64
	meanNoise   float64
	medianNoise float64
	tail        distuv.Pareto
}

// NoiseLevel returns the noise level, independent of scan and m/z
func (m *Ms2Model) NoiseLevel(int, float64) float64 {
	return m.noise
}

// SignalLevel returns the signal level, independent of scan and m/z
func (m *Ms2Model) SignalLevel(int, float64) float64 {
	return m.signal
}

// Tail returns the Pareto distribution fitted to the noise intensities
func (m *Ms2Model) Tail() distuv.Pareto {
	return m.tail
}

// PValue returns the probability that a noise peak is at least as
// intense as intensity
func (m *Ms2Model) PValue(intensity float64) float64 {
	return m.tail.Survival(intensity)
}

// MeanNoise returns the average over spectra of the mean noise intensity
func (m *Ms2Model) MeanNoise() float64 {
	return m.meanNoise
}

// MedianNoise returns the average over spectra of the median noise
// intensity
func (m *Ms2Model) MedianNoise() float64 {
	return m.medianNoise
}
