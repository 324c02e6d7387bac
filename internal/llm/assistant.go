// Package llm is the gateway to the Gemini language model. It builds the
// interview-copilot prompt from recent transcript context and runs one
// generation per call; there is no conversation state across calls.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"interview-copilot/internal/database"
	"interview-copilot/internal/upstream"
)

const (
	modelName = "gemini-2.5-pro-preview-05-06"
	maxTokens = 1024

	// ContextWindow is how many of the most recent transcript entries are
	// rendered into the prompt.
	ContextWindow = 5
)

const systemInstruction = `You are an expert interview copilot assistant. Your role is to help the interviewee answer questions professionally and effectively.

When given an interview question, provide:
1. A clear, concise, and professional answer
2. Key points to emphasize
3. Examples or experiences to mention if relevant

Keep responses natural, authentic, and appropriate for a professional interview setting.
Format your response to be easy to read quickly during an interview.

Structure your response as:
**Main Answer:** [Direct response to the question]
**Key Points:** [2-3 bullet points of important aspects to mention]
**Example/Experience:** [If relevant, suggest a brief example to share]`

// BuildPrompt renders the user prompt sent alongside the system instruction.
// recent holds transcript entries most recent first, as returned by
// Store.RecentTranscripts; they are replayed in chronological order.
func BuildPrompt(question string, recent []database.TranscriptEntry) string {
	var b strings.Builder
	b.WriteString("Recent interview conversation:\n")
	for i := len(recent) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%s: %s\n", recent[i].Speaker, recent[i].Text)
	}
	fmt.Fprintf(&b, "\nCurrent Question: %s\n\nPlease provide a professional interview response:", question)
	return b.String()
}

type Assistant struct{}

func NewAssistant() *Assistant {
	return &Assistant{}
}

// Generate runs one completion with the caller-supplied key. The client is
// built per call because credentials are request-scoped and never cached.
func (a *Assistant) Generate(ctx context.Context, apiKey, question string, recent []database.TranscriptEntry) (string, error) {
	client, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(modelName))
	if err != nil {
		return "", fmt.Errorf("could not create Gemini client: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(question, recent)),
	}

	resp, err := client.GenerateContent(ctx, messages, llms.WithMaxTokens(maxTokens))
	if err != nil {
		return "", &upstream.Error{Service: "gemini", StatusCode: 0, Body: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return "", &upstream.Error{Service: "gemini", StatusCode: 0, Body: "empty completion"}
	}
	return resp.Choices[0].Content, nil
}

// ValidateKey runs a minimal one-token generation to prove the key works.
func (a *Assistant) ValidateKey(ctx context.Context, apiKey string) error {
	client, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(modelName))
	if err != nil {
		return fmt.Errorf("could not create Gemini client: %w", err)
	}
	_, err = client.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "ping")},
		llms.WithMaxTokens(1))
	if err != nil {
		return &upstream.Error{Service: "gemini", StatusCode: 401, Body: err.Error()}
	}
	return nil
}
