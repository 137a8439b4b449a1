package drift

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/course-compass/backend/internal/storage/models"
)

type fakeHistory struct {
	batches [][]models.DriftEvent
}

func (f *fakeHistory) InsertDriftEvents(_ context.Context, events []models.DriftEvent) error {
	f.batches = append(f.batches, events)
	return nil
}

func TestDetectFlagsOnlyBandInterior(t *testing.T) {
	train := [][]float32{
		{1, 0},
		{0.5, 0.8660254037844386},
	}
	band := SimilarityBand{Upper: 0.45, Lower: 0.2}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	queries := []string{
		"what electives pair well with distributed systems",
		"how hard is the algorithms course",
		"best pizza near campus",
	}
	// Nearest-train similarities: 0.3 (drift), 0.5 (covered), 0.1 (noise).
	test := [][]float32{
		{0.3, 0.9539392014169457},
		{0.5, 0.8660254037844386},
		{0.1, 0.99498743710662},
	}

	history := &fakeHistory{}
	report, err := NewDetector(history).Detect(context.Background(), queries, test, train, band, now)
	require.NoError(t, err)

	require.True(t, report.Drift)
	require.Len(t, report.Events, 1)
	require.Equal(t, queries[0], report.Events[0].Query)
	require.InDelta(t, 0.3, report.Events[0].Similarity, 1e-6)
	require.Equal(t, now, report.Events[0].Timestamp)

	require.Len(t, history.batches, 1, "single batch write")
	require.Len(t, history.batches[0], 1)
}

func TestDetectNoDriftWritesNothing(t *testing.T) {
	train := [][]float32{{1, 0}}
	band := SimilarityBand{Upper: 0.9, Lower: 0.4}

	history := &fakeHistory{}
	report, err := NewDetector(history).Detect(
		context.Background(),
		[]string{"known question"},
		[][]float32{{1, 0}},
		train,
		band,
		time.Now(),
	)
	require.NoError(t, err)

	require.False(t, report.Drift)
	require.Empty(t, report.Events)
	require.Empty(t, history.batches)
}

func TestDetectEventSimilaritiesStayInsideBand(t *testing.T) {
	train := [][]float32{
		{1, 0},
		{0.5, 0.8660254037844386},
	}
	band := SimilarityBand{Upper: 0.45, Lower: 0.2}

	queries := []string{"a", "b", "c", "d"}
	test := [][]float32{
		{0.25, 0.9682458365518543},
		{0.44, 0.8979977728140113},
		{0.21, 0.9776502441137378},
		{0.9, 0.4358898943540674},
	}

	history := &fakeHistory{}
	report, err := NewDetector(history).Detect(context.Background(), queries, test, train, band, time.Now())
	require.NoError(t, err)

	for _, e := range report.Events {
		require.Greater(t, e.Similarity, band.Lower)
		require.Less(t, e.Similarity, band.Upper)
	}
}

func TestDetectRejectsMismatchedInput(t *testing.T) {
	history := &fakeHistory{}
	_, err := NewDetector(history).Detect(
		context.Background(),
		[]string{"one", "two"},
		[][]float32{{1, 0}},
		[][]float32{{1, 0}},
		SimilarityBand{Upper: 1, Lower: 0},
		time.Now(),
	)
	require.Error(t, err)
}
