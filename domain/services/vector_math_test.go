package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	v := []float64{0.5, 0.3, 0.8}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{10, 20, 30}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float64{0.1, 0.9, 0.2}
	b := []float64{0.7, 0.3, 0.5}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestCosineSimilarity_OppositeVectors(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-1, -2, -3}
	assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_UndefinedInputsReportZero(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
	}{
		{"mismatched lengths", []float64{1, 2}, []float64{1, 2, 3}},
		{"both empty", nil, nil},
		{"zero magnitude", []float64{0, 0, 0}, []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, CosineSimilarity(tt.a, tt.b))
		})
	}
}
