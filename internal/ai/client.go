// Package ai wraps the OpenAI-compatible provider behind the two calls
// MoneyTalk needs: voice-to-transaction analysis and budgeting
// recommendations. Callers never talk to the provider directly; failures
// here degrade to the keyword fallback or to the cached state, never to a
// blocked request.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"moneytalk/internal/core"
)

var (
	ErrNoAPIKey     = errors.New("no AI API key configured")
	ErrEmptyAudio   = errors.New("empty audio payload")
	ErrBadAIPayload = errors.New("malformed AI response")
)

// AnalyzedTransaction is what the analyzer extracts from one voice note.
type AnalyzedTransaction struct {
	Transcript  string               `json:"transcript"`
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Amount      core.Money           `json:"-"`
	Description string               `json:"description"`
	Confidence  float64              `json:"confidence"`
}

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	Timeout         time.Duration
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = string(openai.Whisper1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg}
}

// clientFor builds a provider client for one call, preferring the per-user
// key from user_profiles over the service-wide key.
func (c *Client) clientFor(userKey string) (*openai.Client, error) {
	key := strings.TrimSpace(userKey)
	if key == "" {
		key = c.cfg.APIKey
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}

	conf := openai.DefaultConfig(key)
	if c.cfg.BaseURL != "" {
		conf.BaseURL = c.cfg.BaseURL
	}
	return openai.NewClientWithConfig(conf), nil
}

// Transcribe converts raw audio bytes into text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, userKey string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	cli, err := c.clientFor(userKey)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscribeModel,
		FilePath: "voice-note.webm",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}

// AnalyzeTranscript asks the model to turn a transcript into a structured
// transaction. The response must be strict JSON; anything else is an error
// so the caller can fall back to the keyword heuristic.
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript, userKey string) (AnalyzedTransaction, error) {
	cli, err := c.clientFor(userKey)
	if err != nil {
		return AnalyzedTransaction{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return AnalyzedTransaction{}, fmt.Errorf("analyze transcript: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AnalyzedTransaction{}, ErrBadAIPayload
	}

	var payload struct {
		Type        string  `json:"type"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		slog.WarnContext(ctx, "AI returned malformed transaction JSON", "error", err)
		return AnalyzedTransaction{}, fmt.Errorf("%w: %v", ErrBadAIPayload, err)
	}

	out := AnalyzedTransaction{
		Transcript:  transcript,
		Type:        core.TransactionType(payload.Type),
		Category:    payload.Category,
		Amount:      core.FromDollars(payload.Amount),
		Description: payload.Description,
		Confidence:  payload.Confidence,
	}
	if !out.Type.Valid() || out.Amount.Cents <= 0 {
		return AnalyzedTransaction{}, ErrBadAIPayload
	}
	if out.Category == "" {
		out.Category = "Other"
	}
	if out.Description == "" {
		out.Description = transcript
	}
	if out.Confidence <= 0 || out.Confidence > 1 {
		out.Confidence = 0.5
	}
	return out, nil
}

// GenerateRecommendations asks the model for budgeting recommendations
// given the prepared transaction summary and economic context blocks.
func (c *Client) GenerateRecommendations(ctx context.Context, transactionSummary, economicContext, userKey string) ([]core.Recommendation, error) {
	cli, err := c.clientFor(userKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: recommendSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: transactionSummary + "\n\n" + economicContext},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrBadAIPayload
	}

	var payload struct {
		Recommendations []core.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		slog.WarnContext(ctx, "AI returned malformed recommendations JSON", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBadAIPayload, err)
	}

	out := make([]core.Recommendation, 0, len(payload.Recommendations))
	for _, r := range payload.Recommendations {
		if r.Normalize() {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrBadAIPayload
	}
	return out, nil
}
