package models

import "time"

// QAPair is one question joined to its answer in the consultation database.
type QAPair struct {
	QuestionID int64
	AnswerID   int64
	Question   string
	Answer     string
}

// QueryRecord is one handled chat query, kept for history and analytics.
type QueryRecord struct {
	ID         string
	QueryText  string
	Answer     string
	RouterPath string
	FromCache  bool
	LatencyMS  int
	CreatedAt  time.Time
}

type Feedback struct {
	ID        int
	QueryID   string
	Helpful   bool
	Comment   string
	CreatedAt time.Time
}
