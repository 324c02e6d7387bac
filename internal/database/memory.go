package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation intended for tests. It
// mirrors the Mongo store's semantics: existence checks before child inserts,
// timestamp ordering, and silent truncation at the retrieval caps.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     []Session
	transcripts  []TranscriptEntry
	aiResponses  []AIResponse
	statusChecks []StatusCheck
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateSession(_ context.Context, userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
		UserID:    strings.TrimSpace(userID),
	}
	s.sessions = append(s.sessions, session)
	return session, nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSessionLocked(id)
}

func (s *MemoryStore) findSessionLocked(id string) (Session, error) {
	for _, session := range s.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return Session{}, ErrSessionNotFound
}

func (s *MemoryStore) ListSessions(_ context.Context, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := append([]Session(nil), s.sessions...)
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return truncate(sessions, clampLimit(limit, MaxSessionList)), nil
}

func (s *MemoryStore) AppendTranscript(_ context.Context, sessionID, text, speaker string, confidence *float64) (TranscriptEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.findSessionLocked(sessionID); err != nil {
		return TranscriptEntry{}, err
	}
	entry := TranscriptEntry{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Speaker:    speaker,
		Confidence: confidence,
	}
	s.transcripts = append(s.transcripts, entry)
	return entry, nil
}

func (s *MemoryStore) ListTranscripts(_ context.Context, sessionID string, limit int) ([]TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sessionTranscriptsLocked(sessionID)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return truncate(entries, clampLimit(limit, MaxTranscriptList)), nil
}

func (s *MemoryStore) RecentTranscripts(_ context.Context, sessionID string, n int) ([]TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sessionTranscriptsLocked(sessionID)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return truncate(entries, clampLimit(n, MaxTranscriptList)), nil
}

func (s *MemoryStore) sessionTranscriptsLocked(sessionID string) []TranscriptEntry {
	var entries []TranscriptEntry
	for _, entry := range s.transcripts {
		if entry.SessionID == sessionID {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (s *MemoryStore) AppendAIResponse(_ context.Context, sessionID, question, response string) (AIResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := AIResponse{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Response:  response,
		Timestamp: time.Now().UTC(),
	}
	s.aiResponses = append(s.aiResponses, record)
	return record, nil
}

func (s *MemoryStore) ListAIResponses(_ context.Context, sessionID string, limit int) ([]AIResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var responses []AIResponse
	for _, record := range s.aiResponses {
		if record.SessionID == sessionID {
			responses = append(responses, record)
		}
	}
	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].Timestamp.Before(responses[j].Timestamp)
	})
	return truncate(responses, clampLimit(limit, MaxAIResponseList)), nil
}

func (s *MemoryStore) CreateStatusCheck(_ context.Context, clientName string) (StatusCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	check := StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}
	s.statusChecks = append(s.statusChecks, check)
	return check, nil
}

func (s *MemoryStore) ListStatusChecks(_ context.Context, limit int) ([]StatusCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checks := append([]StatusCheck(nil), s.statusChecks...)
	return truncate(checks, clampLimit(limit, MaxStatusCheckList)), nil
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
