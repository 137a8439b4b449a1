package samples

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/retry"
)

const samplePrompt = `
Given the user question and the relevant information from the database, craft a concise and informative response:
User Question:
%s
Context:
%s
The response should:
1. Highlight the main topics and unique aspects of the course content.
2. Summarize the instructor's teaching style and notable strengths or weaknesses.
3. Clearly address potential benefits and challenges of the course, providing a straightforward recommendation as needed.
Ensure the answer is direct, informative, and relevant to the user's question.
`

// Retriever is the semantic-search grounding step shared with the serving
// path.
type Retriever interface {
	SemanticSearch(ctx context.Context, query string) (*SearchContext, error)
}

type SearchContext struct {
	CRNs    []string
	Content string
}

// Synthesizer turns escalated drift queries into fresh training triples.
// One failed retrieval or generation fails the whole batch; there is no
// per-row skip.
type Synthesizer struct {
	retriever Retriever
	generator llm.Generator
	policy    retry.Policy
	quota     int
}

func NewSynthesizer(retriever Retriever, generator llm.Generator, policy retry.Policy, quota int) *Synthesizer {
	if quota <= 0 {
		quota = 50
	}
	return &Synthesizer{
		retriever: retriever,
		generator: generator,
		policy:    policy,
		quota:     quota,
	}
}

// Synthesize processes escalated queries in the order they were returned by
// the trend check, stopping at the sample quota. The quota check runs after
// each append; the first overflow row is discarded and the loop stops, so
// the output never exceeds quota rows.
func (s *Synthesizer) Synthesize(ctx context.Context, queries []string) ([]models.TrainingSample, error) {
	samples := make([]models.TrainingSample, 0, s.quota)

	for _, query := range queries {
		grounding, err := retry.DoWithResult(ctx, s.policy, func() (*SearchContext, error) {
			return s.retriever.SemanticSearch(ctx, query)
		})
		if err != nil {
			return nil, fmt.Errorf("grounding retrieval failed for %q: %w", query, err)
		}

		prompt := fmt.Sprintf(samplePrompt, query, grounding.Content)
		response, err := retry.DoWithResult(ctx, s.policy, func() (string, error) {
			return s.generator.Generate(ctx, prompt)
		})
		if err != nil {
			return nil, fmt.Errorf("sample generation failed for %q: %w", query, err)
		}

		samples = append(samples, models.TrainingSample{
			Question: query,
			Context:  grounding.Content,
			Response: response,
		})
		logger.Info("Training sample generated", zap.Int("count", len(samples)))

		if len(samples) > s.quota {
			samples = samples[:s.quota]
			break
		}
	}

	logger.Info("Sample synthesis finished", zap.Int("samples", len(samples)))
	return samples, nil
}
