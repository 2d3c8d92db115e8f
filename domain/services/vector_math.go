package services

import "math"

// CosineSimilarity computes dot(a,b) / (|a|*|b|) between two embeddings.
//
// For the embedding model in use the observed range is approximately [0,1],
// though the mathematical range is [-1,1]. Zero-magnitude or mismatched-length
// input is undefined similarity; it is reported as 0 so callers exclude the
// pair instead of propagating NaN or Inf. Deterministic, no side effects.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	sim := dot / denom
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}
