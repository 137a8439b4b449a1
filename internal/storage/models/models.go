package models

import "time"

// TimestampLayout is the format drift timestamps and pipeline state use in
// the warehouse. Lexicographic order matches chronological order, so
// windowed queries compare the raw strings.
const TimestampLayout = "2006-01-02 15:04:05"

// DriftEvent records one user query whose nearest-neighbor similarity to
// the training set fell inside the drift band. Rows are append-only.
type DriftEvent struct {
	Query      string
	Similarity float64
	Timestamp  time.Time
}

// TrainingSample is one synthesized (question, context, response) triple
// destined for the training data table.
type TrainingSample struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	Response string `json:"response"`
}

// UserQueryRecord is one row of the live user-query table written by the
// serving path and consumed (then archived) by the drift pipeline.
type UserQueryRecord struct {
	QueryID   string
	SessionID string
	Query     string
	Context   string
	Response  string
	Feedback  string
	Timestamp time.Time
}
