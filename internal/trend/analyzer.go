package trend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
)

// StateKey is the pipeline-state entry holding the last retrain trigger
// timestamp. Read here, written only by the retrain trigger.
const StateKey = "drift_last_detected_at"

type History interface {
	DriftEventsSince(ctx context.Context, t time.Time) ([]models.DriftEvent, error)
}

type State interface {
	GetState(ctx context.Context, key string) (string, bool, error)
}

// Decision is the trend verdict for one run. Queries is the distinct set of
// drifted queries in event order, populated only when Escalate is true.
type Decision struct {
	Escalate bool
	Queries  []string
}

// Analyzer applies the hysteresis rule: a single drift event inside the
// rolling window is noise; two or more are a trend worth retraining on.
type Analyzer struct {
	history   History
	state     State
	window    time.Duration
	minEvents int
}

func NewAnalyzer(history History, state State, windowDays, minEvents int) *Analyzer {
	if windowDays <= 0 {
		windowDays = 7
	}
	if minEvents <= 0 {
		minEvents = 2
	}
	return &Analyzer{
		history:   history,
		state:     state,
		window:    time.Duration(windowDays) * 24 * time.Hour,
		minEvents: minEvents,
	}
}

// Evaluate scopes the drift log to [max(lastTrigger, now-window), now) and
// decides whether to escalate. It never advances the trigger timestamp;
// that happens only when retraining actually fires, so a failed downstream
// stage cannot shrink the next run's window.
func (a *Analyzer) Evaluate(ctx context.Context, now time.Time) (*Decision, error) {
	windowStart := now.Add(-a.window)

	if raw, ok, err := a.state.GetState(ctx, StateKey); err != nil {
		return nil, fmt.Errorf("failed to read trigger state: %w", err)
	} else if ok {
		lastTrigger, err := time.Parse(models.TimestampLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("malformed trigger state %q: %w", raw, err)
		}
		if lastTrigger.After(windowStart) {
			windowStart = lastTrigger
		}
	}

	events, err := a.history.DriftEventsSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drift history: %w", err)
	}

	logger.Info("Drift trend evaluated",
		zap.Time("window_start", windowStart),
		zap.Int("events", len(events)),
	)

	if len(events) < a.minEvents {
		logger.Info("No data drift trend detected")
		return &Decision{}, nil
	}

	seen := make(map[string]bool, len(events))
	queries := make([]string, 0, len(events))
	for _, e := range events {
		if seen[e.Query] {
			continue
		}
		seen[e.Query] = true
		queries = append(queries, e.Query)
	}

	logger.Info("Data drift trend detected", zap.Int("distinct_queries", len(queries)))
	return &Decision{Escalate: true, Queries: queries}, nil
}
