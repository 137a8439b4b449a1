package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/course-compass/backend/pkg/logger"
)

// Client caches per-session grounding context so follow-up questions in the
// same session skip the vector search.
type Client struct {
	client     *redis.Client
	sessionTTL time.Duration
}

type SessionContext struct {
	CRNs    []string `json:"crns"`
	Content string   `json:"content"`
}

func NewClient(host string, port int, password string, db int, sessionTTL time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, sessionTTL: sessionTTL}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetSessionContext(ctx context.Context, sessionID string, sc *SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}

	err = c.client.Set(ctx, sessionKey(sessionID), data, c.sessionTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set session context: %w", err)
	}

	logger.Debug("Session context cached", zap.String("session_id", sessionID))
	return nil
}

func (c *Client) GetSessionContext(ctx context.Context, sessionID string) (*SessionContext, bool, error) {
	data, err := c.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session context: %w", err)
	}

	var sc SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal session context: %w", err)
	}

	logger.Debug("Session context cache hit", zap.String("session_id", sessionID))
	return &sc, true, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
