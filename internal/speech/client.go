// Package speech is the gateway to Google Cloud Speech-to-Text. It forwards
// audio captured by the client and normalizes the recognition result into a
// single transcript string with one confidence value.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"interview-copilot/internal/upstream"
)

const (
	defaultBaseURL = "https://speech.googleapis.com/v1"
	requestTimeout = 30 * time.Second

	// Recognition settings: the browser records WebM/Opus chunks, and the
	// long-form model handles multi-sentence interview answers better than
	// the default short-utterance model.
	audioEncoding    = "WEBM_OPUS"
	languageCode     = "en-US"
	recognitionModel = "latest_long"
)

type Client struct {
	http *resty.Client
}

func NewClient() *Client {
	return newClientWithBaseURL(defaultBaseURL)
}

func newClientWithBaseURL(baseURL string) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(requestTimeout)
	return &Client{http: client}
}

type recognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Model                      string `json:"model"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends one audio payload upstream and returns the concatenated
// transcript and the maximum confidence seen across result segments. An empty
// or whitespace-only recognition yields ("", 0) rather than an error.
func (c *Client) Transcribe(ctx context.Context, apiKey string, audio []byte, sampleRate int) (string, float64, error) {
	body := recognizeRequest{
		Config: recognitionConfig{
			Encoding:                   audioEncoding,
			SampleRateHertz:            sampleRate,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
			Model:                      recognitionModel,
		},
		Audio: recognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}

	var result recognizeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetBody(body).
		SetResult(&result).
		Post("/speech:recognize")
	if err != nil {
		return "", 0, fmt.Errorf("speech service unreachable: %w", err)
	}
	if resp.IsError() {
		return "", 0, &upstream.Error{Service: "speech", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var transcript strings.Builder
	var confidence float64
	for _, segment := range result.Results {
		if len(segment.Alternatives) == 0 {
			continue
		}
		best := segment.Alternatives[0]
		transcript.WriteString(best.Transcript)
		if best.Confidence > confidence {
			confidence = best.Confidence
		}
	}

	text := transcript.String()
	if strings.TrimSpace(text) == "" {
		return "", 0, nil
	}
	return text, confidence, nil
}

// ValidateKey probes the recognize endpoint with an empty payload. The service
// rejects unauthorized keys before it complains about the missing audio, so a
// 401/403 means the key is bad and anything else means it was accepted.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetBody(recognizeRequest{Config: recognitionConfig{
			Encoding:        audioEncoding,
			SampleRateHertz: 16000,
			LanguageCode:    languageCode,
		}}).
		Post("/speech:recognize")
	if err != nil {
		return fmt.Errorf("speech service unreachable: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return &upstream.Error{Service: "speech", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
