package drift

import "math"

// cosineSimilarity returns the cosine of the angle between two vectors.
// Zero vectors have similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// minSimilarity returns the smallest cosine similarity between v and any
// vector in set.
func minSimilarity(v []float32, set [][]float32) float64 {
	minSim := math.Inf(1)
	for _, s := range set {
		if sim := cosineSimilarity(v, s); sim < minSim {
			minSim = sim
		}
	}
	return minSim
}
