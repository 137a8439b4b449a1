package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/artifact"
	"github.com/course-compass/backend/internal/drift"
	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/internal/metrics"
	"github.com/course-compass/backend/internal/pipeline"
	"github.com/course-compass/backend/internal/retrain"
	"github.com/course-compass/backend/internal/samples"
	"github.com/course-compass/backend/internal/storage/sqlite"
	"github.com/course-compass/backend/internal/trend"
	"github.com/course-compass/backend/internal/vector/milvus"
	"github.com/course-compass/backend/pkg/config"
	appLogger "github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/retry"
)

// The pipeline binary performs exactly one drift-detection run. The
// external scheduler owns the cadence and guarantees a single concurrent
// run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting drift detection pipeline run")
	metrics.Init()

	ctx := context.Background()

	warehouse, err := sqlite.NewClient(cfg.Warehouse.Path)
	if err != nil {
		appLogger.Fatal("Failed to create warehouse client", zap.Error(err))
	}
	defer warehouse.Close()

	if err := warehouse.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	retriever, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		llmClient,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
		cfg.Milvus.TopK,
		cfg.LLM.RetrievalTask,
	)
	if err != nil {
		appLogger.Fatal("Failed to create milvus client", zap.Error(err))
	}
	defer retriever.Close()

	policy := retry.Policy{
		MaxRetries:      cfg.Retry.MaxRetries,
		BaseDelay:       cfg.Retry.BaseDelay(),
		MaxDelay:        cfg.Retry.MaxDelay(),
		ExponentialBase: cfg.Retry.ExponentialBase,
		Jitter:          cfg.Retry.Jitter,
		Logger:          appLogger.GetLogger(),
	}

	runner := pipeline.NewRunner(
		warehouse,
		drift.NewBatchFetcher(llmClient, cfg.Drift.EmbeddingBatchSize, policy),
		drift.NewDetector(warehouse),
		trend.NewAnalyzer(warehouse, warehouse, cfg.Drift.TrendWindowDays, cfg.Drift.TrendMinEvents),
		samples.NewSynthesizer(retriever, llmClient, policy, cfg.Drift.SampleQuota),
		artifact.NewDirStore(cfg.Artifact.BucketDir),
		retrain.NewTrigger(
			retrain.NewHTTPWorkflow(cfg.Retrain.WorkflowURL, cfg.Retrain.Timeout()),
			warehouse,
		),
		pipeline.Config{
			SimilarityBatchSize: cfg.Drift.SimilarityBatchSize,
			EmbeddingTask:       cfg.LLM.EmbeddingTask,
			ArtifactLocalDir:    cfg.Artifact.LocalDir,
			ArtifactObjectName:  cfg.Artifact.ObjectName,
		},
	)

	report, err := runner.Run(ctx)
	if err != nil {
		appLogger.Fatal("Pipeline run failed", zap.Error(err))
	}

	appLogger.Info("Pipeline run finished",
		zap.String("outcome", report.Outcome.String()),
	)
}
