package retrain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/internal/trend"
	"github.com/course-compass/backend/pkg/logger"
)

// Workflow starts the external retraining pipeline.
type Workflow interface {
	TriggerRetraining(ctx context.Context) error
}

type State interface {
	SetState(ctx context.Context, key, value string) error
}

type Trigger struct {
	workflow Workflow
	state    State
}

func NewTrigger(workflow Workflow, state State) *Trigger {
	return &Trigger{workflow: workflow, state: state}
}

// Fire starts retraining and, only on success, records the trigger time as
// the lower bound for the next trend window.
func (t *Trigger) Fire(ctx context.Context, now time.Time) error {
	if err := t.workflow.TriggerRetraining(ctx); err != nil {
		return fmt.Errorf("failed to trigger retraining workflow: %w", err)
	}

	if err := t.state.SetState(ctx, trend.StateKey, now.Format(models.TimestampLayout)); err != nil {
		return fmt.Errorf("failed to persist trigger timestamp: %w", err)
	}

	logger.Info("Retraining triggered", zap.Time("triggered_at", now))
	return nil
}
