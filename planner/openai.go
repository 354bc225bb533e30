// CLAUDE:SUMMARY OpenAI and Ollama planners over go-openai chat completions in JSON mode.
package planner

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const ollamaBaseURL = "http://localhost:11434/v1"

type openaiCompleter struct {
	client *openai.Client
	cfg    Config
}

func newOpenAI(cfg Config) (Planner, error) {
	return newOpenAICompatible(OpenAI, cfg, cfg.APIKey, cfg.BaseURL), nil
}

// newOllama talks to Ollama's OpenAI-compatible endpoint; the key is ignored
// by the server but go-openai always sends one.
func newOllama(cfg Config) (Planner, error) {
	key := cfg.APIKey
	if key == "" {
		key = "ollama"
	}
	base := cfg.BaseURL
	if base == "" {
		base = ollamaBaseURL
	}
	return newOpenAICompatible(Ollama, cfg, key, base), nil
}

func newOpenAICompatible(p Provider, cfg Config, key, base string) Planner {
	oc := openai.DefaultConfig(key)
	if base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &llmPlanner{
		provider: p,
		cfg:      cfg,
		c:        &openaiCompleter{client: openai.NewClientWithConfig(oc), cfg: cfg},
	}
}

func (c *openaiCompleter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &httpError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &httpError{Status: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion")
	}
	return resp.Choices[0].Message.Content, nil
}
