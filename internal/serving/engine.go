package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/cache/redis"
	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/internal/metrics"
	"github.com/course-compass/backend/internal/samples"
	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/retry"
)

type Warehouse interface {
	LatestSession(ctx context.Context, sessionID string) (*models.UserQueryRecord, error)
	InsertUserQuery(ctx context.Context, rec *models.UserQueryRecord) error
	UpdateFeedback(ctx context.Context, sessionID, queryID, feedback string) (bool, error)
}

type SessionCache interface {
	GetSessionContext(ctx context.Context, sessionID string) (*redis.SessionContext, bool, error)
	SetSessionContext(ctx context.Context, sessionID string, sc *redis.SessionContext) error
}

type PredictRequest struct {
	Query     string
	SessionID string
}

type PredictResponse struct {
	QueryID  string
	Response string
}

// Engine answers student questions grounded in retrieved course content and
// records every exchange for the drift pipeline to consume later.
type Engine struct {
	warehouse Warehouse
	sessions  SessionCache
	retriever samples.Retriever
	generator llm.Generator
	policy    retry.Policy
}

func NewEngine(warehouse Warehouse, sessions SessionCache, retriever samples.Retriever, generator llm.Generator, policy retry.Policy) *Engine {
	return &Engine{
		warehouse: warehouse,
		sessions:  sessions,
		retriever: retriever,
		generator: generator,
		policy:    policy,
	}
}

func (e *Engine) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	started := time.Now()
	queryID := uuid.New().String()

	logger.Info("Processing prediction",
		zap.String("query_id", queryID),
		zap.String("session_id", req.SessionID),
	)

	content, err := e.sessionContext(ctx, req.SessionID, req.Query)
	if err != nil {
		return nil, err
	}

	if content == "" {
		logger.Info("No context found", zap.String("query_id", queryID))
		metrics.PredictTotal.WithLabelValues("no_context").Inc()
		return &PredictResponse{QueryID: queryID, Response: DefaultResponse}, nil
	}

	prompt := fmt.Sprintf(queryPrompt, content, req.Query)
	response, err := retry.DoWithResult(ctx, e.policy, func() (string, error) {
		return e.generator.Generate(ctx, prompt)
	})
	if err != nil {
		metrics.PredictTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	rec := &models.UserQueryRecord{
		QueryID:   queryID,
		SessionID: req.SessionID,
		Query:     req.Query,
		Context:   content,
		Response:  response,
		Timestamp: time.Now(),
	}
	if err := e.warehouse.InsertUserQuery(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record user query: %w", err)
	}

	metrics.PredictTotal.WithLabelValues("ok").Inc()
	metrics.PredictDuration.Observe(time.Since(started).Seconds())

	return &PredictResponse{QueryID: queryID, Response: response}, nil
}

// sessionContext resolves grounding content for a session: redis cache
// first, then the session's most recent warehouse row, then a fresh
// semantic search (cached for the next turn).
func (e *Engine) sessionContext(ctx context.Context, sessionID, query string) (string, error) {
	if cached, ok, err := e.sessions.GetSessionContext(ctx, sessionID); err != nil {
		logger.Warn("Session cache lookup failed", zap.Error(err))
	} else if ok {
		metrics.SessionCacheHits.WithLabelValues("redis").Inc()
		return cached.Content, nil
	}

	prior, err := e.warehouse.LatestSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	if prior != nil && prior.Context != "" {
		logger.Info("Reusing session context", zap.String("session_id", sessionID))
		metrics.SessionCacheHits.WithLabelValues("warehouse").Inc()
		return prior.Context, nil
	}

	metrics.SessionCacheHits.WithLabelValues("miss").Inc()
	grounding, err := e.retriever.SemanticSearch(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to fetch context: %w", err)
	}
	if grounding.Content == "" {
		return "", nil
	}

	sc := &redis.SessionContext{CRNs: grounding.CRNs, Content: grounding.Content}
	if err := e.sessions.SetSessionContext(ctx, sessionID, sc); err != nil {
		logger.Warn("Session cache write failed", zap.Error(err))
	}

	return grounding.Content, nil
}

func (e *Engine) SaveFeedback(ctx context.Context, sessionID, queryID, feedback string) (bool, error) {
	updated, err := e.warehouse.UpdateFeedback(ctx, sessionID, queryID, feedback)
	if err != nil {
		return false, err
	}
	if updated {
		metrics.FeedbackTotal.Inc()
	}
	return updated, nil
}
