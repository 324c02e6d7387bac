package api

type CreateSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type TranscriptCreateRequest struct {
	SessionID  string   `json:"session_id"`
	Text       string   `json:"text"`
	Speaker    string   `json:"speaker,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type AIResponseRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type TranscribeAudioRequest struct {
	SessionID   string `json:"session_id"`
	AudioData   string `json:"audio_data"`
	AudioFormat string `json:"audio_format,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
}

type TranscribeAudioResponse struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type ValidateKeysRequest struct {
	GoogleSpeechAPIKey string `json:"google_speech_api_key"`
	GeminiAPIKey       string `json:"gemini_api_key"`
}

type ValidateKeysResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type StatusCheckCreateRequest struct {
	ClientName string `json:"client_name"`
}

type RootResponse struct {
	Message string `json:"message"`
}

// ListQuery holds the optional query parameters accepted by the list
// endpoints. Limits are clamped server-side to the per-entity caps.
type ListQuery struct {
	Limit int `schema:"limit"`
}
