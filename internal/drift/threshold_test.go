package drift

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeBandRejectsEmptyTrainingSet(t *testing.T) {
	_, err := ComputeBand(nil, 4)
	require.ErrorIs(t, err, ErrEmptyTrainingSet)
}

func TestComputeBandThresholds(t *testing.T) {
	// Two unit vectors 60 degrees apart: pairwise minimum similarity 0.5.
	train := [][]float32{
		{1, 0},
		{0.5, 0.8660254037844386},
	}

	band, err := ComputeBand(train, 4)
	require.NoError(t, err)
	require.InDelta(t, 0.45, band.Upper, 1e-9)
	require.InDelta(t, 0.20, band.Lower, 1e-9)
	require.Less(t, band.Lower, band.Upper)
}

func TestComputeBandScansWithinBatchesOnly(t *testing.T) {
	// Orthogonal clusters split across batch boundaries. The cross-batch
	// similarity of 0 must never enter the minimum: each batch is
	// internally identical, so minimum_sim stays 1.
	var train [][]float32
	for i := 0; i < 4; i++ {
		train = append(train, []float32{1, 0})
	}
	for i := 0; i < 4; i++ {
		train = append(train, []float32{0, 1})
	}

	band, err := ComputeBand(train, 4)
	require.NoError(t, err)
	require.InDelta(t, 0.9, band.Upper, 1e-9)
	require.InDelta(t, 0.4, band.Lower, 1e-9)
}

func TestComputeBandInvariant(t *testing.T) {
	sets := map[string][][]float32{
		"identical":  {{1, 0}, {1, 0}, {1, 0}},
		"close":      {{1, 0}, {0.9805806, 0.19611613}},
		"spread":     {{1, 0}, {0.5, 0.8660254}, {0.8660254, 0.5}},
		"single":     {{0.3, 0.7, 0.2}},
		"final-part": {{1, 0}, {1, 0}, {1, 0}, {1, 0}, {0.7071068, 0.7071068}},
	}

	for name, train := range sets {
		band, err := ComputeBand(train, 4)
		require.NoError(t, err, name)
		require.Less(t, band.Lower, band.Upper, name)
	}
}

func TestBandContainsIsStrict(t *testing.T) {
	band := SimilarityBand{Upper: 0.45, Lower: 0.2}

	tests := []struct {
		name       string
		similarity float64
		want       bool
	}{
		{"inside", 0.3, true},
		{"upper boundary", 0.45, false},
		{"lower boundary", 0.2, false},
		{"above", 0.5, false},
		{"below", 0.1, false},
		{"just inside upper", 0.4499999, true},
		{"just inside lower", 0.2000001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, band.Contains(tt.similarity))
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"sixty degrees", []float32{1, 0}, []float32{0.5, 0.8660254037844386}, 0.5},
		{"scale invariant", []float32{2, 0}, []float32{5, 0}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-7)
		})
	}
}
