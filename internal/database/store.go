package database

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when an operation references a session id
// that has no matching document.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence surface for interview sessions and their child
// records. Appends that reference a session verify its existence immediately
// before the insert; the check is best-effort, not atomic with the insert.
type Store interface {
	CreateSession(ctx context.Context, userID string) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)

	AppendTranscript(ctx context.Context, sessionID, text, speaker string, confidence *float64) (TranscriptEntry, error)
	// ListTranscripts returns entries ordered by timestamp ascending.
	ListTranscripts(ctx context.Context, sessionID string, limit int) ([]TranscriptEntry, error)
	// RecentTranscripts returns up to n entries ordered by timestamp
	// descending, i.e. most recent first.
	RecentTranscripts(ctx context.Context, sessionID string, n int) ([]TranscriptEntry, error)

	AppendAIResponse(ctx context.Context, sessionID, question, response string) (AIResponse, error)
	ListAIResponses(ctx context.Context, sessionID string, limit int) ([]AIResponse, error)

	CreateStatusCheck(ctx context.Context, clientName string) (StatusCheck, error)
	ListStatusChecks(ctx context.Context, limit int) ([]StatusCheck, error)
}

func clampLimit(limit, cap int) int {
	if limit <= 0 || limit > cap {
		return cap
	}
	return limit
}
