package masstrace

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/524D/mztrace/deviation"
	"github.com/524D/mztrace/noise"
	"github.com/524D/mztrace/spectrum"
)

// makeSample builds a run with one scan per entry of peaks, 1.5 s apart.
// Scans listed in ms2Scans are MS2 scans.
func makeSample(t *testing.T, noiseLevel float64, peaks [][]spectrum.Peak, ms2Scans ...int) *Sample {
	t.Helper()
	isMs2 := make(map[int]bool)
	for _, i := range ms2Scans {
		isMs2[i] = true
	}
	run := spectrum.NewRun()
	for i, p := range peaks {
		scan := spectrum.Scan{Index: i, RetentionTime: 1.5 * float64(i), MsLevel: 1}
		if isMs2[i] {
			scan.MsLevel = 2
			scan.PrecursorMz = 500
		}
		require.NoError(t, run.Add(scan, spectrum.NewSimple(p)))
	}
	return NewSample(run, noise.NewGlobalModel(noiseLevel, 10*noiseLevel))
}

func scanOf(t *testing.T, s *Sample, index int) spectrum.Scan {
	t.Helper()
	scan, err := s.Storage.(*spectrum.Run).Scan(index)
	require.NoError(t, err)
	return scan
}

// checkTrace verifies ordering and ranges of a trace against its points
func checkTrace(t *testing.T, tr *MassTrace) {
	t.Helper()
	p := tr.Points()
	require.NotEmpty(t, p)
	mz := Range{Min: p[0].Mz, Max: p[0].Mz}
	rt := Range{Min: p[0].RetentionTime, Max: p[0].RetentionTime}
	for i := range p {
		if i > 0 {
			assert.Greater(t, p[i].ScanIndex, p[i-1].ScanIndex, "scan indices must increase")
		}
		mz.Min = min(mz.Min, p[i].Mz)
		mz.Max = max(mz.Max, p[i].Mz)
		rt.Min = min(rt.Min, p[i].RetentionTime)
		rt.Max = max(rt.Max, p[i].RetentionTime)
	}
	assert.Equal(t, mz, tr.MzRange())
	assert.Equal(t, rt, tr.RtRange())
}

func TestIsolatedPeak(t *testing.T) {
	s := makeSample(t, 0, [][]spectrum.Peak{
		{{Mz: 100.5, Intensity: 50}},
		{{Mz: 200.0, Intensity: 10}},
		{{Mz: 100.0, Intensity: 50}},
		{{Mz: 100.1, Intensity: 50}},
		nil,
	})
	b := NewBuilder(deviation.New(10))
	tr, err := b.Detect(NewCache(), s, scanOf(t, s, 2), 100.0)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, ScanPoint{ScanIndex: 2, RetentionTime: 3, Mz: 100.0, Intensity: 50}, tr.Point(0))
	checkTrace(t, tr)
}

func decaySample(t *testing.T) *Sample {
	var peaks [][]spectrum.Peak
	for i, v := range []float64{100, 80, 60, 40, 20} {
		peaks = append(peaks, []spectrum.Peak{
			{Mz: 120.0, Intensity: 5},
			{Mz: 250.0 + 0.0003*float64(i), Intensity: v},
			{Mz: 400.0, Intensity: 7},
		})
	}
	return makeSample(t, 1, peaks)
}

func TestCleanDecay(t *testing.T) {
	s := decaySample(t)
	cache := NewCache()
	b := NewBuilder(deviation.New(10))

	tr, err := b.Detect(cache, s, scanOf(t, s, 0), 250.0)
	require.NoError(t, err)
	require.Equal(t, 5, tr.Len())
	for i, want := range []float64{100, 80, 60, 40, 20} {
		assert.Equal(t, i, tr.Point(i).ScanIndex)
		assert.Equal(t, want, tr.Point(i).Intensity)
	}
	checkTrace(t, tr)
	assert.Equal(t, 1, cache.Len())
}

func TestConvergence(t *testing.T) {
	s := decaySample(t)
	cache := NewCache()
	b := NewBuilder(deviation.New(10))

	// Seed in the middle: both directions are walked
	tr1, err := b.DetectExact(cache, s, scanOf(t, s, 2), 250.0006)
	require.NoError(t, err)
	require.Equal(t, 5, tr1.Len())
	checkTrace(t, tr1)

	hits := testutil.ToFloat64(cacheHits)
	built := testutil.ToFloat64(tracesBuilt)
	for _, scan := range []int{0, 1, 3, 4} {
		tr2, err := b.Detect(cache, s, scanOf(t, s, scan), 250.0)
		require.NoError(t, err)
		assert.Same(t, tr1, tr2, "seed in scan %d", scan)
	}
	tr3, err := b.DetectInRange(cache, s, 0, 4, 250.0)
	require.NoError(t, err)
	assert.Same(t, tr1, tr3)

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, hits+5, testutil.ToFloat64(cacheHits))
	assert.Equal(t, built, testutil.ToFloat64(tracesBuilt))
}

func TestAmbiguousContinuation(t *testing.T) {
	s := makeSample(t, 0, [][]spectrum.Peak{
		{{Mz: 300.0, Intensity: 1000}},
		{
			{Mz: 300.0005, Intensity: 10}, // closest in mass
			{Mz: 300.002, Intensity: 990}, // similar intensity
		},
	})
	b := NewBuilder(deviation.New(10))
	tr, err := b.Detect(NewCache(), s, scanOf(t, s, 0), 300.0)
	require.NoError(t, err)
	require.Equal(t, 2, tr.Len())
	assert.Equal(t, 300.002, tr.Point(1).Mz)
	assert.Equal(t, 990.0, tr.Point(1).Intensity)

	// The highest peak must win against the mass-closest when scoring
	// for the same intensity ratio
	prev := ScanPoint{Mz: 300.0, Intensity: 1000}
	mzStd := (deviation.New(10).AbsoluteFor(300.0) / 2) * (deviation.New(10).AbsoluteFor(300.0) / 2)
	closer := score(prev, spectrum.Peak{Mz: 300.0005, Intensity: 1000}, 0, mzStd)
	farther := score(prev, spectrum.Peak{Mz: 300.002, Intensity: 1000}, 0, mzStd)
	assert.Greater(t, closer, farther)
	assert.InDelta(t, 1.0, score(prev, spectrum.Peak{Mz: 300.0, Intensity: 1000}, 0, mzStd), 1e-12)
}

func TestNoiseFloorStopsExtension(t *testing.T) {
	s := makeSample(t, 5, [][]spectrum.Peak{
		{{Mz: 300.0, Intensity: 1000}},
		{
			// First candidate is below the noise level: no candidates at all
			{Mz: 300.0005, Intensity: 1},
			{Mz: 300.002, Intensity: 990},
		},
		{{Mz: 300.0, Intensity: 900}},
	})
	b := NewBuilder(deviation.New(10))
	tr, err := b.Detect(NewCache(), s, scanOf(t, s, 0), 300.0)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len())
}

func TestGapStopsExtension(t *testing.T) {
	peak := []spectrum.Peak{{Mz: 500.0, Intensity: 100}}
	s := makeSample(t, 0, [][]spectrum.Peak{
		peak,
		nil, // gap
		peak,
		peak,
		{{Mz: 123.0, Intensity: 3}}, // MS2 without the peak is skipped
		peak,
		nil,
		peak,
	}, 4)
	b := NewBuilder(deviation.New(10))
	tr, err := b.Detect(NewCache(), s, scanOf(t, s, 3), 500.0)
	require.NoError(t, err)
	var scans []int
	for _, p := range tr.Points() {
		scans = append(scans, p.ScanIndex)
	}
	assert.Equal(t, []int{2, 3, 5}, scans)
	checkTrace(t, tr)
}

func TestMassDrift(t *testing.T) {
	// Each step is within 10 ppm, the whole trace is not
	var peaks [][]spectrum.Peak
	for i := 0; i < 10; i++ {
		peaks = append(peaks, []spectrum.Peak{{Mz: 400.0 + 0.003*float64(i), Intensity: 100}})
	}
	s := makeSample(t, 0, peaks)
	tr, err := NewBuilder(deviation.New(10)).Detect(NewCache(), s, scanOf(t, s, 0), 400.0)
	require.NoError(t, err)
	assert.Equal(t, 10, tr.Len())
	assert.InDelta(t, 0.027, tr.MzRange().Max-tr.MzRange().Min, 1e-9)
}

func TestDetectInRange(t *testing.T) {
	s := makeSample(t, 0, [][]spectrum.Peak{
		{{Mz: 600.0, Intensity: 10}},
		{{Mz: 600.001, Intensity: 40}},
		{{Mz: 600.0, Intensity: 5000}}, // MS2, ignored
		{{Mz: 600.002, Intensity: 30}},
		{{Mz: 700.0, Intensity: 1}},
	}, 2)
	cache := NewCache()
	b := NewBuilder(deviation.New(10))

	tr, err := b.DetectInRange(cache, s, 1, 4, 600.0)
	require.NoError(t, err)
	require.Equal(t, 3, tr.Len())
	assert.Equal(t, 0, tr.Point(0).ScanIndex)
	seed, ok := tr.Find(1)
	require.True(t, ok)
	assert.Equal(t, 40.0, seed.Intensity)
	_, ok = tr.Find(2)
	assert.False(t, ok, "MS2 scans are not part of a trace")

	tr, err = b.DetectInRange(cache, s, 0, 4, 800.0)
	require.NoError(t, err)
	assert.Same(t, Empty(), tr)
}

func TestNoSeed(t *testing.T) {
	s := makeSample(t, 0, [][]spectrum.Peak{{{Mz: 100.0, Intensity: 1}}})
	cache := NewCache()
	b := NewBuilder(deviation.New(10))

	tr, err := b.Detect(cache, s, scanOf(t, s, 0), 150.0)
	require.NoError(t, err)
	assert.Same(t, Empty(), tr)
	assert.True(t, tr.IsEmpty())

	tr, err = b.DetectExact(cache, s, scanOf(t, s, 0), 150.0)
	require.NoError(t, err)
	assert.Same(t, Empty(), tr)
	assert.Equal(t, 0, cache.Len())

	_, err = b.Detect(cache, s, spectrum.Scan{Index: 42}, 100.0)
	assert.ErrorIs(t, err, spectrum.ErrInvalidScanIndex)
}

func TestNewMassTrace(t *testing.T) {
	assert.Same(t, Empty(), NewMassTrace(nil))
	assert.Nil(t, Empty().Segments())

	in := []ScanPoint{
		{ScanIndex: 1, RetentionTime: 10, Mz: 100.2, Intensity: 1},
		{ScanIndex: 3, RetentionTime: 12, Mz: 100.1, Intensity: 2},
		{ScanIndex: 4, RetentionTime: 13, Mz: 100.3, Intensity: 3},
	}
	tr := NewMassTrace(in)
	in[0].Mz = 0
	assert.Equal(t, 100.2, tr.Point(0).Mz, "NewMassTrace must copy its input")
	assert.Equal(t, Range{Min: 100.1, Max: 100.3}, tr.MzRange())
	assert.Equal(t, Range{Min: 10, Max: 13}, tr.RtRange())
	assert.True(t, tr.MzRange().Contains(100.2))
	assert.False(t, tr.RtRange().Contains(14))
	_, ok := tr.Find(2)
	assert.False(t, ok)

	assert.Panics(t, func() {
		NewMassTrace([]ScanPoint{{ScanIndex: 2}, {ScanIndex: 2}})
	})
}

func TestSeedAndTieSelection(t *testing.T) {
	tie := []spectrum.Peak{
		{Mz: 299.999, Intensity: 1000},
		{Mz: 300.001, Intensity: 1000},
	}
	closeAndIntense := []spectrum.Peak{
		{Mz: 300.0005, Intensity: 10},
		{Mz: 300.003, Intensity: 500},
	}
	tests := []struct {
		name   string
		peaks  [][]spectrum.Peak
		exact  bool
		wantMz []float64
	}{
		{
			"equal scores keep the lower m/z",
			[][]spectrum.Peak{{{Mz: 300.0, Intensity: 1000}}, tie},
			false,
			[]float64{300.0, 299.999},
		},
		{"exact seeds on the closest peak", [][]spectrum.Peak{closeAndIntense}, true, []float64{300.0005}},
		{"seeds on the most intense peak", [][]spectrum.Peak{closeAndIntense}, false, []float64{300.003}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := makeSample(t, 0, tc.peaks)
			b := NewBuilder(deviation.New(10))
			detect := b.Detect
			if tc.exact {
				detect = b.DetectExact
			}
			tr, err := detect(NewCache(), s, scanOf(t, s, 0), 300.0)
			require.NoError(t, err)
			var got []float64
			for _, p := range tr.Points() {
				got = append(got, p.Mz)
			}
			assert.Equal(t, tc.wantMz, got)
		})
	}
}
