package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistogram(t *testing.T) {
	data := []float64{0, 0.1, 0.2, 0.5, 0.9, 1.0, math.NaN()}

	h := NewHistogram(data, 2)

	require.Len(t, h.Edges, 3)
	require.Len(t, h.Counts, 2)
	assert.InDelta(t, 0.0, h.Edges[0], 1e-12)
	assert.InDelta(t, 0.5, h.Edges[1], 1e-12)
	assert.InDelta(t, 1.0, h.Edges[2], 1e-12)
	assert.Equal(t, []float64{3, 3}, h.Counts)
}

func TestNewHistogram_CountsEverySample(t *testing.T) {
	data := []float64{-0.03, 0.01, 0.002, -0.004, 0.02, 0.0, 0.015}

	h := NewHistogram(data, 30)

	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, float64(len(data)), total)
}

func TestNewHistogram_ConstantSample(t *testing.T) {
	h := NewHistogram([]float64{0.01, 0.01}, 4)
	require.Len(t, h.Counts, 4)

	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 2.0, total)
}

func TestNewHistogram_Empty(t *testing.T) {
	assert.Empty(t, NewHistogram(nil, 30).Counts)
	assert.Empty(t, NewHistogram([]float64{1}, 0).Counts)
}
