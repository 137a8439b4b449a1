package retrain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/course-compass/backend/pkg/logger"
)

// HTTPWorkflow kicks off the retraining run through the orchestrator's
// trigger endpoint.
type HTTPWorkflow struct {
	url    string
	client *http.Client
}

func NewHTTPWorkflow(url string, timeout time.Duration) *HTTPWorkflow {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPWorkflow{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *HTTPWorkflow) TriggerRetraining(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("failed to build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call retraining workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("retraining workflow returned status %d", resp.StatusCode)
	}

	logger.Info("Retraining workflow accepted", zap.String("url", w.url))
	return nil
}
