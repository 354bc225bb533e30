// CLAUDE:SUMMARY Anthropic Messages and Gemini generateContent planners over resty.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	geminiBaseURL    = "https://generativelanguage.googleapis.com"
)

func restClient(cfg Config, base string) *resty.Client {
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "deckforge/1.0")
}

// --- anthropic ---

type anthropicCompleter struct {
	http *resty.Client
	cfg  Config
}

func newAnthropic(cfg Config) (Planner, error) {
	c := restClient(cfg, anthropicBaseURL).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicVersion)
	return &llmPlanner{provider: Anthropic, cfg: cfg, c: &anthropicCompleter{http: c, cfg: cfg}}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *anthropicCompleter) complete(ctx context.Context, system, user string) (string, error) {
	var out anthropicResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(anthropicRequest{
			Model:       c.cfg.Model,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
			System:      system,
			Messages:    []anthropicMessage{{Role: "user", Content: user}},
		}).
		SetResult(&out).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("post messages: %w", err)
	}
	if resp.IsError() {
		return "", &httpError{Status: resp.StatusCode(), Body: resp.String()}
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text content in answer")
	}
	return sb.String(), nil
}

// --- gemini ---

type geminiCompleter struct {
	http *resty.Client
	cfg  Config
}

func newGemini(cfg Config) (Planner, error) {
	c := restClient(cfg, geminiBaseURL).SetHeader("x-goog-api-key", cfg.APIKey)
	return &llmPlanner{provider: Gemini, cfg: cfg, c: &geminiCompleter{http: c, cfg: cfg}}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature      float32 `json:"temperature"`
		MaxOutputTokens  int     `json:"maxOutputTokens"`
		ResponseMimeType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (c *geminiCompleter) complete(ctx context.Context, system, user string) (string, error) {
	req := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
	}
	req.GenerationConfig.Temperature = c.cfg.Temperature
	req.GenerationConfig.MaxOutputTokens = c.cfg.MaxTokens
	req.GenerationConfig.ResponseMimeType = "application/json"

	var out geminiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.cfg.Model).
		SetBody(req).
		SetResult(&out).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("post generateContent: %w", err)
	}
	if resp.IsError() {
		return "", &httpError{Status: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("no candidates in answer")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
