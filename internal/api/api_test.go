package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-copilot/internal/database"
	"interview-copilot/internal/upstream"
	pkgapi "interview-copilot/pkg/api"
)

type stubTranscriber struct {
	calls      int
	transcript string
	confidence float64
	err        error
	keyErr     error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string, _ []byte, _ int) (string, float64, error) {
	s.calls++
	return s.transcript, s.confidence, s.err
}

func (s *stubTranscriber) ValidateKey(_ context.Context, _ string) error {
	return s.keyErr
}

type stubGenerator struct {
	calls        int
	lastQuestion string
	lastRecent   []database.TranscriptEntry
	answer       string
	err          error
	keyErr       error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, question string, recent []database.TranscriptEntry) (string, error) {
	s.calls++
	s.lastQuestion = question
	s.lastRecent = recent
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubGenerator) ValidateKey(_ context.Context, _ string) error {
	return s.keyErr
}

type testEnv struct {
	router    chi.Router
	store     *database.MemoryStore
	speech    *stubTranscriber
	assistant *stubGenerator
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     database.NewMemoryStore(),
		speech:    &stubTranscriber{transcript: "hello world", confidence: 0.92},
		assistant: &stubGenerator{answer: "**Main Answer:** ..."},
	}
	router := chi.NewRouter()
	NewStatusService(env.store).AddRoutes(router)
	NewInterviewService(env.store, env.speech, env.assistant).AddRoutes(router)
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, endpoint string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, endpoint, body)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func authHeader(t *testing.T) map[string]string {
	t.Helper()
	creds, err := json.Marshal(Credentials{GoogleSpeechAPIKey: "speech-key", GeminiAPIKey: "gemini-key"})
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + base64.StdEncoding.EncodeToString(creds)}
}

func (e *testEnv) createSession(t *testing.T) database.Session {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/interview/session", pkgapi.CreateSessionRequest{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody[database.Session](t, rec)
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv()
	before := time.Now()

	first := env.createSession(t)
	assert.True(t, first.IsActive)
	assert.GreaterOrEqual(t, len(first.ID), minSessionIDLength)
	assert.False(t, first.CreatedAt.After(time.Now()))
	assert.False(t, first.CreatedAt.Before(before.Add(-time.Second)))

	second := env.createSession(t)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateSessionEmptyBody(t *testing.T) {
	env := newTestEnv()
	rec := env.do(t, http.MethodPost, "/interview/session", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetSession(t *testing.T) {
	env := newTestEnv()
	created := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/interview/session/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody[database.Session](t, rec)
	assert.Equal(t, created.ID, fetched.ID)
	assert.True(t, fetched.IsActive)

	rec = env.do(t, http.MethodGet, "/interview/session/nonexistent-session-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/interview/session/short", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessions(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 3; i++ {
		env.createSession(t)
	}

	rec := env.do(t, http.MethodGet, "/interview/sessions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody[[]database.Session](t, rec)
	assert.Len(t, sessions, 3)

	rec = env.do(t, http.MethodGet, "/interview/sessions?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions = decodeBody[[]database.Session](t, rec)
	assert.Len(t, sessions, 2)
}

func TestAddTranscriptRoundTrip(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	confidence := 0.87
	rec := env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
		SessionID:  session.ID,
		Text:       "Tell me about yourself",
		Speaker:    "interviewer",
		Confidence: &confidence,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decodeBody[database.TranscriptEntry](t, rec)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, session.ID, entry.SessionID)
	assert.False(t, entry.Timestamp.IsZero())

	rec = env.do(t, http.MethodGet, "/interview/transcript/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]database.TranscriptEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "Tell me about yourself", entries[0].Text)
	assert.Equal(t, "interviewer", entries[0].Speaker)
	require.NotNil(t, entries[0].Confidence)
	assert.Equal(t, confidence, *entries[0].Confidence)
}

func TestAddTranscriptDefaultsSpeaker(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
		SessionID: session.ID,
		Text:      "What are your strengths?",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decodeBody[database.TranscriptEntry](t, rec)
	assert.Equal(t, "interviewer", entry.Speaker)
}

func TestAddTranscriptValidation(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
		SessionID: "unknown-session-id",
		Text:      "hello",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
		SessionID: session.ID,
		Text:      "   ",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
		SessionID: session.ID,
		Text:      strings.Repeat("a", maxTranscriptTextLength+1),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No records persisted by the rejected appends.
	rec = env.do(t, http.MethodGet, "/interview/transcript/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]database.TranscriptEntry](t, rec))
}

func TestListTranscriptsOrdered(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	for i := 1; i <= 4; i++ {
		rec := env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
			SessionID: session.ID,
			Text:      fmt.Sprintf("question %d", i),
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/interview/transcript/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]database.TranscriptEntry](t, rec)
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
		assert.Equal(t, fmt.Sprintf("question %d", i+1), entries[i].Text)
	}
}

func TestTranscribeAudioRequiresCredentials(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/transcribe-audio", pkgapi.TranscribeAudioRequest{
		SessionID: session.ID,
		AudioData: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 200)),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.speech.calls)
}

func TestTranscribeAudioTooShort(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/transcribe-audio", pkgapi.TranscribeAudioRequest{
		SessionID: session.ID,
		AudioData: base64.StdEncoding.EncodeToString([]byte("tiny")),
	}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.speech.calls, "no upstream call should be attempted")
}

func TestTranscribeAudioInvalidBase64(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/transcribe-audio", pkgapi.TranscribeAudioRequest{
		SessionID: session.ID,
		AudioData: "not-base64!!!",
	}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.speech.calls)
}

func TestTranscribeAudioUnknownSession(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/transcribe-audio", pkgapi.TranscribeAudioRequest{
		SessionID: "unknown-session-id",
		AudioData: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 200)),
	}, authHeader(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, env.speech.calls)
}

func TestTranscribeAudio(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/transcribe-audio", pkgapi.TranscribeAudioRequest{
		SessionID: session.ID,
		AudioData: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 200)),
	}, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[pkgapi.TranscribeAudioResponse](t, rec)
	assert.Equal(t, "hello world", resp.Transcript)
	assert.Equal(t, 0.92, resp.Confidence)
	assert.Equal(t, 1, env.speech.calls)
}

func TestGenerateAIResponse(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  "Why do you want this job?",
	}, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)
	record := decodeBody[database.AIResponse](t, rec)
	assert.Equal(t, "Why do you want this job?", record.Question)
	assert.Equal(t, "**Main Answer:** ...", record.Response)

	rec = env.do(t, http.MethodGet, "/interview/ai-responses/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	responses := decodeBody[[]database.AIResponse](t, rec)
	require.Len(t, responses, 1)
	assert.Equal(t, record.ID, responses[0].ID)
}

func TestGenerateAIResponseValidation(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  "Why?",
	}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  strings.Repeat("a", maxQuestionLength+1),
	}, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: "unknown-session-id",
		Question:  "Why do you want this job?",
	}, authHeader(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  "Why do you want this job?",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, env.assistant.calls)
}

func TestGenerateAIResponseContextWindow(t *testing.T) {
	env := newTestEnv()
	session := env.createSession(t)

	for i := 1; i <= 7; i++ {
		rec := env.do(t, http.MethodPost, "/interview/transcript", pkgapi.TranscriptCreateRequest{
			SessionID: session.ID,
			Text:      fmt.Sprintf("exchange %d", i),
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  "Why do you want this job?",
	}, authHeader(t))
	require.Equal(t, http.StatusOK, rec.Code)

	// The generator receives only the 5 most recent entries, newest first.
	require.Len(t, env.assistant.lastRecent, 5)
	assert.Equal(t, "exchange 7", env.assistant.lastRecent[0].Text)
	assert.Equal(t, "exchange 3", env.assistant.lastRecent[4].Text)
}

func TestGenerateAIResponseUpstreamFailure(t *testing.T) {
	env := newTestEnv()
	env.assistant.err = fmt.Errorf("model overloaded")
	session := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/interview/ai-response", pkgapi.AIResponseRequest{
		SessionID: session.ID,
		Question:  "Why do you want this job?",
	}, authHeader(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// A failed generation persists nothing.
	rec = env.do(t, http.MethodGet, "/interview/ai-responses/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]database.AIResponse](t, rec))
}

func TestValidateKeys(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/validate-keys", pkgapi.ValidateKeysRequest{
		GoogleSpeechAPIKey: "speech-key",
		GeminiAPIKey:       "gemini-key",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[pkgapi.ValidateKeysResponse](t, rec)
	assert.True(t, resp.Valid)
}

func TestValidateKeysMissing(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/validate-keys", pkgapi.ValidateKeysRequest{
		GoogleSpeechAPIKey: "speech-key",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateKeysRejected(t *testing.T) {
	env := newTestEnv()
	env.speech.keyErr = &upstream.Error{Service: "google-speech", StatusCode: 403, Body: "forbidden"}

	rec := env.do(t, http.MethodPost, "/validate-keys", pkgapi.ValidateKeysRequest{
		GoogleSpeechAPIKey: "bad-key",
		GeminiAPIKey:       "gemini-key",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Contains(t, resp["detail"], "google_speech_api_key")
}
