package drift

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
)

// History is the append-only drift event log.
type History interface {
	InsertDriftEvents(ctx context.Context, events []models.DriftEvent) error
}

// Report is the outcome of one detection pass.
type Report struct {
	Drift  bool
	Events []models.DriftEvent
}

type Detector struct {
	history History
}

func NewDetector(history History) *Detector {
	return &Detector{history: history}
}

// Detect classifies every live query against the band. A query drifts when
// its minimum similarity over the whole training set falls strictly inside
// (lower, upper): close enough to be in-domain, far enough to be novel.
// When anything drifted, the full candidate set is appended to the history
// log in one batch; otherwise nothing is written.
func (d *Detector) Detect(ctx context.Context, queries []string, test, train [][]float32, band SimilarityBand, now time.Time) (*Report, error) {
	if len(queries) != len(test) {
		return nil, fmt.Errorf("query/embedding count mismatch: %d vs %d", len(queries), len(test))
	}

	report := &Report{}
	for i, emb := range test {
		minSim := minSimilarity(emb, train)
		if band.Contains(minSim) {
			report.Drift = true
			report.Events = append(report.Events, models.DriftEvent{
				Query:      queries[i],
				Similarity: minSim,
				Timestamp:  now,
			})
		}
	}

	if !report.Drift {
		logger.Info("No data drift detected", zap.Int("queries", len(queries)))
		return report, nil
	}

	logger.Info("Data drift detected", zap.Int("drift_queries", len(report.Events)))
	for _, e := range report.Events {
		logger.Info("Drift query flagged",
			zap.String("query", e.Query),
			zap.Float64("similarity", e.Similarity),
		)
	}

	if err := d.history.InsertDriftEvents(ctx, report.Events); err != nil {
		return nil, fmt.Errorf("failed to persist drift events: %w", err)
	}

	return report, nil
}
