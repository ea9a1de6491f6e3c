// Package noise estimates the intensity below which peaks are considered
// chemical or electronic noise.
//
// Estimators (Statistics, Ms2Statistics) consume the scans of a run once
// and produce a Model. Models are immutable and may be shared between
// goroutines; estimators may not.
package noise

import (
	"fmt"
	"sort"
)

// Model returns noise and signal intensity levels for a scan and m/z
type Model interface {
	NoiseLevel(scanIndex int, mz float64) float64
	SignalLevel(scanIndex int, mz float64) float64
}

// GlobalModel has the same levels for all scans and masses
type GlobalModel struct {
	noise  float64
	signal float64
}

// NewGlobalModel returns a constant model
func NewGlobalModel(noiseLevel, signalLevel float64) GlobalModel {
	return GlobalModel{noise: noiseLevel, signal: signalLevel}
}

// NoiseLevel returns the constant noise level
func (m GlobalModel) NoiseLevel(int, float64) float64 {
	return m.noise
}

// SignalLevel returns the constant signal level
func (m GlobalModel) SignalLevel(int, float64) float64 {
	return m.signal
}

// signalFactor is the ratio between signal and noise level of
// LocalModel and of the global model derived from Statistics
const signalFactor = 10

// LocalModel has one noise level per scan
type LocalModel struct {
	levels      []float64
	scanIndices []int
}

// NewLocalModel returns a model with levels[i] as noise level of the scan
// with index scanIndices[i]. scanIndices must be sorted ascending and have
// the same length as levels.
func NewLocalModel(levels []float64, scanIndices []int) *LocalModel {
	if len(levels) != len(scanIndices) {
		panic(fmt.Sprintf("noise: %d levels for %d scans", len(levels), len(scanIndices)))
	}
	m := &LocalModel{
		levels:      make([]float64, len(levels)),
		scanIndices: make([]int, len(scanIndices)),
	}
	copy(m.levels, levels)
	copy(m.scanIndices, scanIndices)
	return m
}

// NoiseLevel returns the noise level of a scan. It panics if the scan
// was not seen during estimation.
func (m *LocalModel) NoiseLevel(scanIndex int, _ float64) float64 {
	i := sort.SearchInts(m.scanIndices, scanIndex)
	if i == len(m.scanIndices) || m.scanIndices[i] != scanIndex {
		panic(fmt.Sprintf("noise: no noise level for scan %d", scanIndex))
	}
	return m.levels[i]
}

// SignalLevel returns ten times the noise level of a scan
func (m *LocalModel) SignalLevel(scanIndex int, mz float64) float64 {
	return signalFactor * m.NoiseLevel(scanIndex, mz)
}
