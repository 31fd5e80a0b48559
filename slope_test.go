package cw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlopeTableRectangularHasNoEnvelope(t *testing.T) {
	st := NewSlopeTable(SlopeRectangular, 5000, 8000)
	assert.Equal(t, 0, st.N())
	assert.Equal(t, float64(1), st.At(0))
}

func TestSlopeTableLinearEndpoints(t *testing.T) {
	st := NewSlopeTable(SlopeLinear, 5000, 8000)
	n := st.N()
	if !assert.Greater(t, n, 1) {
		return
	}
	assert.InDelta(t, 0, st.At(0), 1e-9)
	assert.InDelta(t, 1, st.At(n-1), 1e-9)
}

func TestSlopeTableRaisedCosineEndpoints(t *testing.T) {
	st := NewSlopeTable(SlopeRaisedCosine, 5000, 8000)
	n := st.N()
	if !assert.Greater(t, n, 1) {
		return
	}
	assert.InDelta(t, 0, st.At(0), 1e-9)
	assert.InDelta(t, 1, st.At(n-1), 1e-9)
}

func TestSlopeTableOutOfRangeIndices(t *testing.T) {
	st := NewSlopeTable(SlopeLinear, 5000, 8000)
	assert.Equal(t, float64(0), st.At(-1))
	assert.Equal(t, float64(1), st.At(st.N()+10))
}

func TestSlopeTableTooShortForEnvelope(t *testing.T) {
	st := NewSlopeTable(SlopeLinear, 0, 8000)
	assert.Equal(t, 0, st.N())
}
