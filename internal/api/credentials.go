package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// Credentials carries the caller-supplied third-party API keys for one
// request. They are never persisted, never cached across requests, and never
// logged.
type Credentials struct {
	GoogleSpeechAPIKey string `json:"google_speech_api_key"`
	GeminiAPIKey       string `json:"gemini_api_key"`
}

// CredentialsFromRequest decodes the bearer header carrying base64-encoded
// JSON credentials. Any shape problem is reported as 401 so the gateway is
// never reached with a half-formed credential.
func CredentialsFromRequest(r *http.Request) (Credentials, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return Credentials{}, CodedErrorf(http.StatusUnauthorized, "missing API credentials")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Credentials{}, CodedErrorf(http.StatusUnauthorized, "malformed authorization header")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Credentials{}, CodedErrorf(http.StatusUnauthorized, "malformed API credentials")
	}

	var creds Credentials
	if err := json.Unmarshal(decoded, &creds); err != nil {
		return Credentials{}, CodedErrorf(http.StatusUnauthorized, "malformed API credentials")
	}
	if strings.TrimSpace(creds.GoogleSpeechAPIKey) == "" || strings.TrimSpace(creds.GeminiAPIKey) == "" {
		return Credentials{}, CodedErrorf(http.StatusUnauthorized, "incomplete API credentials")
	}
	return creds, nil
}
