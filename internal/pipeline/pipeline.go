package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/artifact"
	"github.com/course-compass/backend/internal/drift"
	"github.com/course-compass/backend/internal/metrics"
	"github.com/course-compass/backend/internal/retrain"
	"github.com/course-compass/backend/internal/samples"
	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/internal/trend"
	"github.com/course-compass/backend/pkg/logger"
)

// Outcome is the branch decision carried between stages. The scheduler
// consuming run reports switches on it rather than on sentinel strings.
type Outcome int

const (
	// OutcomeContinue means a stage finished and the run proceeds.
	OutcomeContinue Outcome = iota
	// OutcomeStop is the quiet terminal branch: no drift trend, nothing
	// to do this run.
	OutcomeStop
	// OutcomeEscalate means a drift trend was found and the run went
	// through sample synthesis and retraining.
	OutcomeEscalate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeStop:
		return "stop"
	case OutcomeEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// Warehouse is the slice of the analytical store the pipeline touches.
type Warehouse interface {
	TrainQuestions(ctx context.Context) ([]string, error)
	LiveQueries(ctx context.Context) ([]string, error)
	InsertTrainingSamples(ctx context.Context, samples []models.TrainingSample) error
	ArchiveUserQueries(ctx context.Context) (int64, error)
}

// RunReport summarizes one pipeline run for the operator alert.
type RunReport struct {
	Outcome          Outcome
	TrainQueries     int
	TestQueries      int
	Band             drift.SimilarityBand
	DriftEvents      int
	EscalatedQueries int
	SamplesGenerated int
	ArchivedQueries  int64
	Duration         time.Duration
}

type Config struct {
	SimilarityBatchSize int
	EmbeddingTask       string
	ArtifactLocalDir    string
	ArtifactObjectName  string
}

// Runner executes the drift-detection pipeline as a fixed sequence of
// typed stages. External scheduling guarantees at most one run at a time;
// all inter-stage data flows through explicit values here.
type Runner struct {
	warehouse   Warehouse
	fetcher     *drift.BatchFetcher
	detector    *drift.Detector
	analyzer    *trend.Analyzer
	synthesizer *samples.Synthesizer
	store       artifact.Store
	trigger     *retrain.Trigger
	cfg         Config
	now         func() time.Time
}

func NewRunner(
	warehouse Warehouse,
	fetcher *drift.BatchFetcher,
	detector *drift.Detector,
	analyzer *trend.Analyzer,
	synthesizer *samples.Synthesizer,
	store artifact.Store,
	trigger *retrain.Trigger,
	cfg Config,
) *Runner {
	return &Runner{
		warehouse:   warehouse,
		fetcher:     fetcher,
		detector:    detector,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		store:       store,
		trigger:     trigger,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	started := r.now()
	report := &RunReport{Outcome: OutcomeContinue}

	report, err := r.run(ctx, report)
	if report != nil {
		report.Duration = r.now().Sub(started)
	}
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return report, err
	}

	metrics.PipelineRuns.WithLabelValues(report.Outcome.String()).Inc()
	logger.Info("Pipeline run completed",
		zap.String("outcome", report.Outcome.String()),
		zap.Int("train_queries", report.TrainQueries),
		zap.Int("test_queries", report.TestQueries),
		zap.Int("drift_events", report.DriftEvents),
		zap.Int("escalated_queries", report.EscalatedQueries),
		zap.Int("samples_generated", report.SamplesGenerated),
		zap.Int64("archived_queries", report.ArchivedQueries),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (r *Runner) run(ctx context.Context, report *RunReport) (*RunReport, error) {
	runTime := r.now()

	trainQueries, err := r.warehouse.TrainQuestions(ctx)
	if err != nil {
		return report, fmt.Errorf("train question fetch failed: %w", err)
	}
	report.TrainQueries = len(trainQueries)

	testQueries, err := r.warehouse.LiveQueries(ctx)
	if err != nil {
		return report, fmt.Errorf("live query fetch failed: %w", err)
	}
	report.TestQueries = len(testQueries)

	trainEmbeddings, err := r.fetcher.FetchAll(ctx, trainQueries, r.cfg.EmbeddingTask)
	if err != nil {
		return report, fmt.Errorf("train embedding fetch failed: %w", err)
	}

	testEmbeddings, err := r.fetcher.FetchAll(ctx, testQueries, r.cfg.EmbeddingTask)
	if err != nil {
		return report, fmt.Errorf("test embedding fetch failed: %w", err)
	}

	band, err := drift.ComputeBand(trainEmbeddings, r.cfg.SimilarityBatchSize)
	if err != nil {
		return report, fmt.Errorf("threshold derivation failed: %w", err)
	}
	report.Band = band
	metrics.SimilarityBandUpper.Set(band.Upper)
	metrics.SimilarityBandLower.Set(band.Lower)

	detection, err := r.detector.Detect(ctx, testQueries, testEmbeddings, trainEmbeddings, band, runTime)
	if err != nil {
		return report, fmt.Errorf("drift detection failed: %w", err)
	}
	report.DriftEvents = len(detection.Events)
	metrics.DriftEventsDetected.Add(float64(len(detection.Events)))

	decision, err := r.analyzer.Evaluate(ctx, runTime)
	if err != nil {
		return report, fmt.Errorf("trend evaluation failed: %w", err)
	}

	if !decision.Escalate {
		report.Outcome = OutcomeStop
		return r.finish(ctx, report)
	}
	report.Outcome = OutcomeEscalate
	report.EscalatedQueries = len(decision.Queries)

	generated, err := r.synthesizer.Synthesize(ctx, decision.Queries)
	if err != nil {
		return report, fmt.Errorf("sample synthesis failed: %w", err)
	}
	report.SamplesGenerated = len(generated)
	metrics.SamplesGenerated.Add(float64(len(generated)))

	localPath := filepath.Join(r.cfg.ArtifactLocalDir, filepath.Base(r.cfg.ArtifactObjectName))
	if err := artifact.Write(generated, localPath); err != nil {
		return report, fmt.Errorf("artifact write failed: %w", err)
	}

	if err := r.store.Upload(ctx, localPath, r.cfg.ArtifactObjectName); err != nil {
		return report, fmt.Errorf("artifact upload failed: %w", err)
	}

	if err := r.warehouse.InsertTrainingSamples(ctx, generated); err != nil {
		return report, fmt.Errorf("sample ingestion failed: %w", err)
	}

	if err := r.trigger.Fire(ctx, runTime); err != nil {
		return report, fmt.Errorf("retrain trigger failed: %w", err)
	}
	metrics.RetrainTriggers.Inc()

	return r.finish(ctx, report)
}

// finish archives the live user queries regardless of branch; both the
// quiet and the escalated terminal paths converge here.
func (r *Runner) finish(ctx context.Context, report *RunReport) (*RunReport, error) {
	moved, err := r.warehouse.ArchiveUserQueries(ctx)
	if err != nil {
		return report, fmt.Errorf("user query archival failed: %w", err)
	}
	report.ArchivedQueries = moved
	return report, nil
}
