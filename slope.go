package cw

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SlopeShape selects the amplitude envelope applied to a tone's
// rise/fall region (spec §4.C).
type SlopeShape int

const (
	SlopeLinear SlopeShape = iota
	SlopeRaisedCosine
	SlopeSine
	SlopeRectangular
)

// SlopeTable is a precomputed amplitude envelope for one generator's
// current shape/duration/sample-rate combination (spec §4.C). It is
// immutable once built; Generator swaps in a new one atomically
// whenever shape, slope duration or sample rate changes (spec §5:
// "slope table is copy-on-update").
type SlopeTable struct {
	shape      SlopeShape
	slopeUS    int
	sampleRate int
	envelope   []float64 // len N, in [0, 1], N = slopeUS*sampleRate/1e6
}

// NewSlopeTable precomputes the envelope for shape over slopeUS
// microseconds at sampleRate samples/sec.
func NewSlopeTable(shape SlopeShape, slopeUS, sampleRate int) *SlopeTable {
	st := &SlopeTable{shape: shape, slopeUS: slopeUS, sampleRate: sampleRate}
	if shape == SlopeRectangular || slopeUS <= 0 || sampleRate <= 0 {
		st.envelope = nil
		return st
	}

	n := slopeUS * sampleRate / 1_000_000
	if n < 2 {
		st.envelope = nil
		return st
	}

	idx := make([]float64, n)
	floats.Span(idx, 0, float64(n-1)) // idx[i] = i, 0..N-1

	env := make([]float64, n)
	denom := float64(n - 1)
	switch shape {
	case SlopeLinear:
		for i, v := range idx {
			env[i] = v / denom
		}
	case SlopeRaisedCosine:
		for i, v := range idx {
			env[i] = (1 - math.Cos(math.Pi*v/denom)) / 2
		}
	case SlopeSine:
		for i, v := range idx {
			env[i] = math.Sin(math.Pi * v / (2 * denom))
		}
	default:
		env = nil
	}
	st.envelope = env
	return st
}

// N returns the number of samples in the rise (or fall) region.
func (st *SlopeTable) N() int {
	return len(st.envelope)
}

// At returns the envelope amplitude, in [0, 1], for sample index i
// counted from the start of the rising slope (or, mirrored, from the
// start of the falling slope).
func (st *SlopeTable) At(i int) float64 {
	if st.envelope == nil {
		return 1
	}
	if i < 0 {
		return 0
	}
	if i >= len(st.envelope) {
		return 1
	}
	return st.envelope[i]
}
