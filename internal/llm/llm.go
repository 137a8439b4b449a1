package llm

import (
	"context"
	"fmt"

	"github.com/course-compass/backend/pkg/config"
)

// Generator produces free-text completions for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder converts a batch of texts into fixed-dimension vectors, one per
// input and in input order. The task label selects the embedding mode
// (e.g. CLUSTERING for drift runs, RETRIEVAL_QUERY for serving).
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error)
}

type Client interface {
	Generator
	Embedder
}

func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return newGeminiClient(ctx, cfg)
	case "openai":
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
