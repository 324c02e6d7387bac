package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"interview-copilot/internal/database"
	"interview-copilot/internal/llm"
	pkgapi "interview-copilot/pkg/api"
)

const (
	maxTranscriptTextLength = 10000
	minQuestionLength       = 5
	maxQuestionLength       = 5000

	// Anything shorter than this after base64 decoding is a recording
	// artifact, not speech worth an upstream call.
	minAudioBytes = 75

	defaultSampleRate = 16000
	defaultSpeaker    = "interviewer"
)

// Transcriber forwards audio to the speech recognition service.
type Transcriber interface {
	Transcribe(ctx context.Context, apiKey string, audio []byte, sampleRate int) (string, float64, error)
	ValidateKey(ctx context.Context, apiKey string) error
}

// AnswerGenerator produces a suggested interview answer for a question given
// recent transcript context (most recent entry first).
type AnswerGenerator interface {
	Generate(ctx context.Context, apiKey, question string, recent []database.TranscriptEntry) (string, error)
	ValidateKey(ctx context.Context, apiKey string) error
}

type InterviewService struct {
	store     database.Store
	speech    Transcriber
	assistant AnswerGenerator
}

func NewInterviewService(store database.Store, speech Transcriber, assistant AnswerGenerator) *InterviewService {
	return &InterviewService{store: store, speech: speech, assistant: assistant}
}

func (s *InterviewService) AddRoutes(r chi.Router) {
	r.With(RateLimit(10)).Post("/validate-keys", RestHandler(s.ValidateKeys))
	r.With(RateLimit(30)).Post("/transcribe-audio", RestHandler(s.TranscribeAudio))
	r.Route("/interview", func(r chi.Router) {
		r.With(RateLimit(10)).Post("/session", RestHandler(s.CreateSession))
		r.With(RateLimit(60)).Get("/session/{session_id}", RestHandler(s.GetSession))
		r.With(RateLimit(20)).Get("/sessions", RestHandler(s.ListSessions))
		r.With(RateLimit(100)).Post("/transcript", RestHandler(s.AddTranscript))
		r.With(RateLimit(60)).Get("/transcript/{session_id}", RestHandler(s.ListTranscripts))
		r.With(RateLimit(20)).Post("/ai-response", RestHandler(s.GenerateAIResponse))
		r.With(RateLimit(60)).Get("/ai-responses/{session_id}", RestHandler(s.ListAIResponses))
	})
}

func (s *InterviewService) CreateSession(r *http.Request) (any, error) {
	req, err := ParseOptionalRequest[pkgapi.CreateSessionRequest](r)
	if err != nil {
		return nil, err
	}

	session, err := s.store.CreateSession(r.Context(), req.UserID)
	if err != nil {
		slog.Error("error creating session", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create session")
	}

	slog.Info("created interview session", "session_id", session.ID)
	return session, nil
}

func (s *InterviewService) GetSession(r *http.Request) (any, error) {
	sessionID, err := URLParamSessionID(r, "session_id")
	if err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(r.Context(), sessionID)
	if errors.Is(err, database.ErrSessionNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "Session not found")
	}
	if err != nil {
		slog.Error("error getting session", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving session record")
	}
	return session, nil
}

func (s *InterviewService) ListSessions(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[pkgapi.ListQuery](r)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(r.Context(), query.Limit)
	if err != nil {
		slog.Error("error listing sessions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving sessions")
	}
	if sessions == nil {
		sessions = []database.Session{}
	}
	return sessions, nil
}

func (s *InterviewService) AddTranscript(r *http.Request) (any, error) {
	req, err := ParseRequest[pkgapi.TranscriptCreateRequest](r)
	if err != nil {
		return nil, err
	}

	sessionID, err := validateSessionID(req.SessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "transcript text must not be blank")
	}
	if runeLength(req.Text) > maxTranscriptTextLength {
		return nil, CodedErrorf(http.StatusBadRequest, "transcript text exceeds %d characters", maxTranscriptTextLength)
	}

	speaker := strings.TrimSpace(req.Speaker)
	if speaker == "" {
		speaker = defaultSpeaker
	}

	entry, err := s.store.AppendTranscript(r.Context(), sessionID, req.Text, speaker, req.Confidence)
	if errors.Is(err, database.ErrSessionNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "Session not found")
	}
	if err != nil {
		slog.Error("error appending transcript", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save transcript")
	}
	return entry, nil
}

func (s *InterviewService) ListTranscripts(r *http.Request) (any, error) {
	sessionID, err := URLParamSessionID(r, "session_id")
	if err != nil {
		return nil, err
	}
	query, err := ParseRequestQueryParams[pkgapi.ListQuery](r)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListTranscripts(r.Context(), sessionID, query.Limit)
	if err != nil {
		slog.Error("error listing transcripts", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving transcripts")
	}
	if entries == nil {
		entries = []database.TranscriptEntry{}
	}
	return entries, nil
}

func (s *InterviewService) GenerateAIResponse(r *http.Request) (any, error) {
	creds, err := CredentialsFromRequest(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[pkgapi.AIResponseRequest](r)
	if err != nil {
		return nil, err
	}
	sessionID, err := validateSessionID(req.SessionID)
	if err != nil {
		return nil, err
	}
	question := strings.TrimSpace(req.Question)
	if runeLength(question) < minQuestionLength || runeLength(question) > maxQuestionLength {
		return nil, CodedErrorf(http.StatusBadRequest, "question must be between %d and %d characters", minQuestionLength, maxQuestionLength)
	}

	ctx := r.Context()
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "Session not found")
		}
		slog.Error("error getting session", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving session record")
	}

	recent, err := s.store.RecentTranscripts(ctx, sessionID, llm.ContextWindow)
	if err != nil {
		slog.Error("error fetching transcript context", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving transcript context")
	}

	answer, err := s.assistant.Generate(ctx, creds.GeminiAPIKey, question, recent)
	if err != nil {
		// A failed call persists nothing.
		return nil, upstreamToCoded(err, "Failed to generate AI response")
	}

	record, err := s.store.AppendAIResponse(ctx, sessionID, question, answer)
	if err != nil {
		slog.Error("error saving ai response", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save AI response")
	}
	return record, nil
}

func (s *InterviewService) ListAIResponses(r *http.Request) (any, error) {
	sessionID, err := URLParamSessionID(r, "session_id")
	if err != nil {
		return nil, err
	}
	query, err := ParseRequestQueryParams[pkgapi.ListQuery](r)
	if err != nil {
		return nil, err
	}

	responses, err := s.store.ListAIResponses(r.Context(), sessionID, query.Limit)
	if err != nil {
		slog.Error("error listing ai responses", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving AI responses")
	}
	if responses == nil {
		responses = []database.AIResponse{}
	}
	return responses, nil
}

func (s *InterviewService) TranscribeAudio(r *http.Request) (any, error) {
	creds, err := CredentialsFromRequest(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[pkgapi.TranscribeAudioRequest](r)
	if err != nil {
		return nil, err
	}
	sessionID, err := validateSessionID(req.SessionID)
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "audio_data is not valid base64")
	}
	if len(audio) < minAudioBytes {
		return nil, CodedErrorf(http.StatusBadRequest, "audio payload too short to transcribe")
	}

	ctx := r.Context()
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "Session not found")
		}
		slog.Error("error getting session", "session_id", sessionID, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving session record")
	}

	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	transcript, confidence, err := s.speech.Transcribe(ctx, creds.GoogleSpeechAPIKey, audio, sampleRate)
	if err != nil {
		return nil, upstreamToCoded(err, "Failed to transcribe audio")
	}
	return pkgapi.TranscribeAudioResponse{Transcript: transcript, Confidence: confidence}, nil
}

func (s *InterviewService) ValidateKeys(r *http.Request) (any, error) {
	req, err := ParseRequest[pkgapi.ValidateKeysRequest](r)
	if err != nil {
		return nil, err
	}
	speechKey := strings.TrimSpace(req.GoogleSpeechAPIKey)
	geminiKey := strings.TrimSpace(req.GeminiAPIKey)
	if speechKey == "" || geminiKey == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "both google_speech_api_key and gemini_api_key are required")
	}

	ctx := r.Context()
	if err := s.speech.ValidateKey(ctx, speechKey); err != nil {
		slog.Warn("speech key validation failed", "error", err)
		if isUpstreamRejection(err) {
			return nil, CodedErrorf(http.StatusBadRequest, "google_speech_api_key was rejected by the speech service")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "could not reach the speech service to validate keys")
	}
	if err := s.assistant.ValidateKey(ctx, geminiKey); err != nil {
		slog.Warn("gemini key validation failed", "error", err)
		if isUpstreamRejection(err) {
			return nil, CodedErrorf(http.StatusBadRequest, "gemini_api_key was rejected by the language model service")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "could not reach the language model service to validate keys")
	}

	return pkgapi.ValidateKeysResponse{Valid: true, Message: "API keys validated successfully"}, nil
}
