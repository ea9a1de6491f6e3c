package masstrace

import (
	"github.com/524D/mztrace/noise"
	"github.com/524D/mztrace/spectrum"
)

// Sample bundles the scans of a run with their noise model
type Sample struct {
	Storage spectrum.Storage
	Noise   noise.Model
}

// NewSample returns a sample
func NewSample(storage spectrum.Storage, model noise.Model) *Sample {
	return &Sample{Storage: storage, Noise: model}
}
