package drift

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/retry"
)

// BatchFetcher embeds query populations in fixed-size batches, each batch
// guarded by the retry policy. Output order matches input order; a batch
// that exhausts its retries fails the whole fetch.
type BatchFetcher struct {
	embedder  llm.Embedder
	batchSize int
	policy    retry.Policy
}

func NewBatchFetcher(embedder llm.Embedder, batchSize int, policy retry.Policy) *BatchFetcher {
	if batchSize <= 0 {
		batchSize = 4
	}
	return &BatchFetcher{
		embedder:  embedder,
		batchSize: batchSize,
		policy:    policy,
	}
}

func (f *BatchFetcher) FetchAll(ctx context.Context, queries []string, task string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(queries))

	for i := 0; i < len(queries); i += f.batchSize {
		end := i + f.batchSize
		if end > len(queries) {
			end = len(queries)
		}
		batch := queries[i:end]

		vectors, err := retry.DoWithResult(ctx, f.policy, func() ([][]float32, error) {
			return f.embedder.EmbedBatch(ctx, batch, task)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", i, err)
		}

		embeddings = append(embeddings, vectors...)
	}

	logger.Info("Embeddings fetched",
		zap.Int("count", len(embeddings)),
		zap.String("task", task),
	)
	return embeddings, nil
}
