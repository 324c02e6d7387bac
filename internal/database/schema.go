package database

import "time"

// Collection names. One collection per entity, every document keyed by its
// opaque `id` field (not the Mongo _id).
const (
	SessionCollection     = "interview_sessions"
	TranscriptCollection  = "transcripts"
	AIResponseCollection  = "ai_responses"
	StatusCheckCollection = "status_checks"
)

// Retrieval caps. Callers beyond a cap are silently truncated; there is no
// pagination cursor.
const (
	MaxSessionList     = 100
	MaxTranscriptList  = 1000
	MaxAIResponseList  = 1000
	MaxStatusCheckList = 1000
)

type Session struct {
	ID        string    `bson:"id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
	UserID    string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

type TranscriptEntry struct {
	ID         string    `bson:"id" json:"id"`
	SessionID  string    `bson:"session_id" json:"session_id"`
	Text       string    `bson:"text" json:"text"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	Speaker    string    `bson:"speaker" json:"speaker"`
	Confidence *float64  `bson:"confidence,omitempty" json:"confidence,omitempty"`
}

type AIResponse struct {
	ID        string    `bson:"id" json:"id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Question  string    `bson:"question" json:"question"`
	Response  string    `bson:"response" json:"response"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type StatusCheck struct {
	ID         string    `bson:"id" json:"id"`
	ClientName string    `bson:"client_name" json:"client_name"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}
