package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
)

// Client is the analytical warehouse: training data, live and archived user
// queries, the drift history log, and pipeline state.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("Warehouse client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS train_data (
		question TEXT NOT NULL,
		context TEXT,
		response TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_train_question ON train_data(question);

	CREATE TABLE IF NOT EXISTS user_queries (
		query_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		query TEXT NOT NULL,
		context TEXT,
		response TEXT,
		feedback TEXT,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_user_queries_session ON user_queries(session_id, timestamp);

	CREATE TABLE IF NOT EXISTS user_queries_history (
		query_id TEXT,
		session_id TEXT,
		query TEXT,
		context TEXT,
		response TEXT,
		feedback TEXT,
		timestamp TEXT
	);

	CREATE TABLE IF NOT EXISTS drift_history (
		query TEXT NOT NULL,
		similarity REAL NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drift_timestamp ON drift_history(timestamp);

	CREATE TABLE IF NOT EXISTS pipeline_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Warehouse schema initialized")
	return nil
}

func (c *Client) TrainQuestions(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT question FROM train_data`)
	if err != nil {
		return nil, fmt.Errorf("failed to query train questions: %w", err)
	}
	defer rows.Close()

	questions, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}

	logger.Info("Fetched train questions", zap.Int("count", len(questions)))
	return questions, nil
}

func (c *Client) LiveQueries(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT query FROM user_queries`)
	if err != nil {
		return nil, fmt.Errorf("failed to query live user queries: %w", err)
	}
	defer rows.Close()

	queries, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}

	logger.Info("Fetched live user queries", zap.Int("count", len(queries)))
	return queries, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// InsertDriftEvents appends one batch of drift events to the history log.
func (c *Client) InsertDriftEvents(ctx context.Context, events []models.DriftEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO drift_history (query, similarity, timestamp) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err = stmt.ExecContext(ctx, e.Query, e.Similarity, e.Timestamp.Format(models.TimestampLayout))
		if err != nil {
			return fmt.Errorf("failed to insert drift event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drift events: %w", err)
	}

	logger.Info("Inserted drift events", zap.Int("count", len(events)))
	return nil
}

// DriftEventsSince returns drift events with timestamp strictly after t.
func (c *Client) DriftEventsSince(ctx context.Context, t time.Time) ([]models.DriftEvent, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT query, similarity, timestamp FROM drift_history WHERE timestamp > ? ORDER BY timestamp`,
		t.Format(models.TimestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query drift history: %w", err)
	}
	defer rows.Close()

	var events []models.DriftEvent
	for rows.Next() {
		var e models.DriftEvent
		var ts string
		if err := rows.Scan(&e.Query, &e.Similarity, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan drift event: %w", err)
		}
		e.Timestamp, err = time.Parse(models.TimestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("malformed drift timestamp %q: %w", ts, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return events, nil
}

// GetState reads one pipeline state value. A missing key is not an error;
// ok reports whether the key was present.
func (c *Client) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM pipeline_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %q: %w", key, err)
	}
	return value, true, nil
}

func (c *Client) SetState(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO pipeline_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write state %q: %w", key, err)
	}

	logger.Debug("Pipeline state updated", zap.String("key", key), zap.String("value", value))
	return nil
}

// InsertTrainingSamples appends a generated batch to the train data table.
func (c *Client) InsertTrainingSamples(ctx context.Context, samples []models.TrainingSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO train_data (question, context, response, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(models.TimestampLayout)
	for _, s := range samples {
		_, err = stmt.ExecContext(ctx, s.Question, s.Context, s.Response, now)
		if err != nil {
			return fmt.Errorf("failed to insert training sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit training samples: %w", err)
	}

	logger.Info("Ingested training samples", zap.Int("count", len(samples)))
	return nil
}

func (c *Client) InsertUserQuery(ctx context.Context, rec *models.UserQueryRecord) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO user_queries (query_id, session_id, query, context, response, feedback, timestamp)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
		rec.QueryID,
		rec.SessionID,
		rec.Query,
		rec.Context,
		rec.Response,
		rec.Feedback,
		rec.Timestamp.Format(models.TimestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user query: %w", err)
	}

	logger.Info("User query recorded",
		zap.String("query_id", rec.QueryID),
		zap.String("session_id", rec.SessionID),
	)
	return nil
}

// LatestSession returns the most recent user-query row for a session, or
// nil when the session has no history.
func (c *Client) LatestSession(ctx context.Context, sessionID string) (*models.UserQueryRecord, error) {
	var rec models.UserQueryRecord
	var feedback sql.NullString
	var ts string

	err := c.db.QueryRowContext(ctx,
		`SELECT query_id, session_id, query, context, response, feedback, timestamp
		 FROM user_queries WHERE session_id = ? ORDER BY timestamp DESC LIMIT 1`,
		sessionID,
	).Scan(&rec.QueryID, &rec.SessionID, &rec.Query, &rec.Context, &rec.Response, &feedback, &ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	rec.Feedback = feedback.String
	rec.Timestamp, err = time.Parse(models.TimestampLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed session timestamp %q: %w", ts, err)
	}

	return &rec, nil
}

func (c *Client) UpdateFeedback(ctx context.Context, sessionID, queryID, feedback string) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		`UPDATE user_queries SET feedback = ? WHERE session_id = ? AND query_id = ?`,
		feedback, sessionID, queryID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update feedback: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count updated rows: %w", err)
	}

	logger.Info("Feedback updated",
		zap.String("session_id", sessionID),
		zap.String("query_id", queryID),
		zap.Int64("rows", affected),
	)
	return affected > 0, nil
}

// ArchiveUserQueries moves every live user-query row into the historical
// table and clears the live table. Runs at the end of every pipeline run.
func (c *Client) ArchiveUserQueries(ctx context.Context) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO user_queries_history SELECT * FROM user_queries`)
	if err != nil {
		return 0, fmt.Errorf("failed to copy user queries: %w", err)
	}

	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count archived rows: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM user_queries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear user queries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive: %w", err)
	}

	logger.Info("User queries archived", zap.Int64("count", moved))
	return moved, nil
}
