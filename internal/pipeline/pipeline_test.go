package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/course-compass/backend/internal/artifact"
	"github.com/course-compass/backend/internal/drift"
	"github.com/course-compass/backend/internal/retrain"
	"github.com/course-compass/backend/internal/samples"
	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/internal/trend"
	"github.com/course-compass/backend/pkg/retry"
)

// fakeWarehouse backs every storage-facing stage: population reads, drift
// history, pipeline state, sample ingestion, and archival.
type fakeWarehouse struct {
	trainQuestions []string
	liveQueries    []string
	driftEvents    []models.DriftEvent
	state          map[string]string
	ingested       []models.TrainingSample
	archived       bool
	liveCount      int64
}

func (f *fakeWarehouse) TrainQuestions(context.Context) ([]string, error) {
	return f.trainQuestions, nil
}

func (f *fakeWarehouse) LiveQueries(context.Context) ([]string, error) {
	return f.liveQueries, nil
}

func (f *fakeWarehouse) InsertDriftEvents(_ context.Context, events []models.DriftEvent) error {
	f.driftEvents = append(f.driftEvents, events...)
	return nil
}

func (f *fakeWarehouse) DriftEventsSince(_ context.Context, t time.Time) ([]models.DriftEvent, error) {
	var out []models.DriftEvent
	for _, e := range f.driftEvents {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWarehouse) GetState(_ context.Context, key string) (string, bool, error) {
	v, ok := f.state[key]
	return v, ok, nil
}

func (f *fakeWarehouse) SetState(_ context.Context, key, value string) error {
	if f.state == nil {
		f.state = make(map[string]string)
	}
	f.state[key] = value
	return nil
}

func (f *fakeWarehouse) InsertTrainingSamples(_ context.Context, samples []models.TrainingSample) error {
	f.ingested = append(f.ingested, samples...)
	return nil
}

func (f *fakeWarehouse) ArchiveUserQueries(context.Context) (int64, error) {
	f.archived = true
	moved := f.liveCount
	f.liveCount = 0
	return moved, nil
}

// fakeEmbedder maps each query to a fixed vector.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

type fakeRetriever struct{ calls int }

func (f *fakeRetriever) SemanticSearch(_ context.Context, query string) (*samples.SearchContext, error) {
	f.calls++
	return &samples.SearchContext{Content: "grounding for " + query}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(context.Context, string) (string, error) {
	return "generated answer", nil
}

type fakeStore struct {
	localPath  string
	objectName string
}

func (f *fakeStore) Upload(_ context.Context, localPath, objectName string) error {
	f.localPath = localPath
	f.objectName = objectName
	return nil
}

type fakeWorkflow struct{ calls int }

func (f *fakeWorkflow) TriggerRetraining(context.Context) error {
	f.calls++
	return nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      0,
		BaseDelay:       time.Microsecond,
		MaxDelay:        time.Microsecond,
		ExponentialBase: 2.0,
	}
}

func newRunner(t *testing.T, warehouse *fakeWarehouse, embedder *fakeEmbedder, workflow retrain.Workflow) (*Runner, *fakeStore, *fakeRetriever) {
	t.Helper()

	fetcher := drift.NewBatchFetcher(embedder, 4, fastPolicy())
	detector := drift.NewDetector(warehouse)
	analyzer := trend.NewAnalyzer(warehouse, warehouse, 7, 2)
	retriever := &fakeRetriever{}
	synthesizer := samples.NewSynthesizer(retriever, fakeGenerator{}, fastPolicy(), 50)
	store := &fakeStore{}
	trigger := retrain.NewTrigger(workflow, warehouse)

	runner := NewRunner(warehouse, fetcher, detector, analyzer, synthesizer, store, trigger, Config{
		SimilarityBatchSize: 4,
		EmbeddingTask:       "CLUSTERING",
		ArtifactLocalDir:    t.TempDir(),
		ArtifactObjectName:  "processed_trace_data/llm_train_data_drift.jsonl",
	})
	return runner, store, retriever
}

// Training vectors whose minimum pairwise similarity is 0.5, giving the
// band (0.2, 0.45). The drifting live query lands at similarity 0.3; the
// familiar one lands exactly on the training minimum, outside the band.
func scenarioVectors() map[string][]float32 {
	return map[string][]float32{
		"train one":        {1, 0},
		"train two":        {0.5, 0.8660254037844386},
		"drifting query":   {0.3, 0.9539392014169457},
		"familiar query":   {1, 0},
		"borderline query": {0.5, 0.8660254037844386},
	}
}

func TestRunQuietWhenTrendBelowThreshold(t *testing.T) {
	warehouse := &fakeWarehouse{
		trainQuestions: []string{"train one", "train two"},
		liveQueries:    []string{"drifting query", "familiar query"},
		liveCount:      2,
	}
	runner, store, retriever := newRunner(t, warehouse, &fakeEmbedder{vectors: scenarioVectors()}, &fakeWorkflow{})
	runner.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeStop, report.Outcome)
	require.InDelta(t, 0.45, report.Band.Upper, 1e-9)
	require.InDelta(t, 0.2, report.Band.Lower, 1e-9)

	// One new drift event was logged, but a single event is noise, not a
	// trend: no synthesis, no ingestion, no upload.
	require.Equal(t, 1, report.DriftEvents)
	require.Len(t, warehouse.driftEvents, 1)
	require.Equal(t, "drifting query", warehouse.driftEvents[0].Query)
	require.Zero(t, report.SamplesGenerated)
	require.Empty(t, warehouse.ingested)
	require.Empty(t, store.objectName)
	require.Zero(t, retriever.calls)

	// Archival still runs on the quiet branch.
	require.True(t, warehouse.archived)
	require.Equal(t, int64(2), report.ArchivedQueries)
}

func TestRunEscalatesOnTrend(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	warehouse := &fakeWarehouse{
		trainQuestions: []string{"train one", "train two"},
		liveQueries:    []string{"drifting query", "familiar query"},
		liveCount:      2,
		driftEvents: []models.DriftEvent{
			{Query: "earlier drifted query", Similarity: 0.25, Timestamp: now.Add(-48 * time.Hour)},
		},
	}
	workflow := &fakeWorkflow{}
	runner, store, retriever := newRunner(t, warehouse, &fakeEmbedder{vectors: scenarioVectors()}, workflow)
	runner.now = func() time.Time { return now }

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeEscalate, report.Outcome)
	require.Equal(t, 1, report.DriftEvents)
	require.Equal(t, 2, report.EscalatedQueries)
	require.Equal(t, 2, report.SamplesGenerated)
	require.Equal(t, 2, retriever.calls)

	// Samples for both distinct drifted queries, in event order.
	require.Len(t, warehouse.ingested, 2)
	require.Equal(t, "earlier drifted query", warehouse.ingested[0].Question)
	require.Equal(t, "drifting query", warehouse.ingested[1].Question)
	require.Equal(t, "generated answer", warehouse.ingested[0].Response)

	// The JSONL artifact lands locally and is handed to the store.
	require.Equal(t, "processed_trace_data/llm_train_data_drift.jsonl", store.objectName)
	written, err := artifact.Read(store.localPath)
	require.NoError(t, err)
	require.Len(t, written, 2)

	// Retraining fired and advanced the trend window lower bound.
	require.Equal(t, 1, workflow.calls)
	require.Equal(t, now.Format(models.TimestampLayout), warehouse.state[trend.StateKey])

	require.True(t, warehouse.archived)
	require.Equal(t, int64(2), report.ArchivedQueries)
}

func TestRunLastTriggerScopesOutOldEvents(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	lastTrigger := now.Add(-24 * time.Hour)

	warehouse := &fakeWarehouse{
		trainQuestions: []string{"train one", "train two"},
		liveQueries:    []string{"drifting query"},
		state: map[string]string{
			trend.StateKey: lastTrigger.Format(models.TimestampLayout),
		},
		// Inside the rolling window but before the last trigger, so it no
		// longer counts toward the trend.
		driftEvents: []models.DriftEvent{
			{Query: "pre-trigger query", Similarity: 0.25, Timestamp: now.Add(-48 * time.Hour)},
		},
	}
	runner, _, _ := newRunner(t, warehouse, &fakeEmbedder{vectors: scenarioVectors()}, &fakeWorkflow{})
	runner.now = func() time.Time { return now }

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, OutcomeStop, report.Outcome)
	require.Equal(t, lastTrigger.Format(models.TimestampLayout), warehouse.state[trend.StateKey],
		"a quiet run must not advance the trigger timestamp")
}

func TestRunReportsOutcomeStringForms(t *testing.T) {
	require.Equal(t, "continue", OutcomeContinue.String())
	require.Equal(t, "stop", OutcomeStop.String())
	require.Equal(t, "escalate", OutcomeEscalate.String())
	require.Equal(t, "unknown", Outcome(99).String())
}
