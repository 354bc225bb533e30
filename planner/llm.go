// CLAUDE:SUMMARY Provider-independent LLM planner: prompts a completer, decodes its JSON answer, wraps failures in ProviderError.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/deckforge/connectivity"
	"github.com/hazyhaar/deckforge/deck"
)

// completer sends one system+user exchange and returns the raw answer text.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// httpError is a non-2xx provider answer.
type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("http %d: %s", e.Status, body)
}

type llmPlanner struct {
	provider Provider
	cfg      Config
	c        completer
}

func (p *llmPlanner) Provider() Provider { return p.provider }
func (p *llmPlanner) Model() string      { return p.cfg.Model }

func (p *llmPlanner) AnalyzeText(ctx context.Context, text, guidance string) (*deck.ContentAnalysis, error) {
	text = truncateRunes(strings.TrimSpace(text), p.cfg.MaxInputChars)

	var a deck.ContentAnalysis
	if err := p.ask(ctx, OpAnalyze, analyzeSystemPrompt, analyzeUserPrompt(text, guidance), &a); err != nil {
		return nil, err
	}
	a.Normalize()
	return &a, nil
}

func (p *llmPlanner) GenerateSlideStructure(ctx context.Context, analysis *deck.ContentAnalysis, guidance string) (*deck.SlideStructure, error) {
	if analysis == nil {
		return nil, &ProviderError{Provider: p.provider, Op: OpGenerate, Err: errors.New("nil analysis")}
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, &ProviderError{Provider: p.provider, Op: OpGenerate, Err: err}
	}

	var s deck.SlideStructure
	if err := p.ask(ctx, OpGenerate, structureSystemPrompt, structureUserPrompt(string(payload), guidance), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *llmPlanner) ask(ctx context.Context, op, system, user string, v any) error {
	var raw string
	policy := connectivity.RetryPolicy{
		MaxRetries: p.cfg.MaxRetries,
		Backoff:    p.cfg.RetryBackoff,
		Retryable:  upstreamFailure,
		Logger:     p.cfg.Logger,
	}
	err := connectivity.Retry(ctx, policy, func(ctx context.Context) error {
		return p.cfg.breaker.Do(func() error {
			start := time.Now()
			actx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()
			var err error
			raw, err = p.c.complete(actx, system, user)
			p.cfg.Logger.Debug("planner: provider call",
				"provider", p.provider, "model", p.cfg.Model, "op", op,
				"duration_ms", time.Since(start).Milliseconds(), "error", err)
			return err
		})
	})
	if err != nil {
		pe := &ProviderError{Provider: p.provider, Op: op, Err: err}
		var he *httpError
		if errors.As(err, &he) {
			pe.StatusCode = he.Status
		}
		return pe
	}
	if err := decodeJSON(raw, v); err != nil {
		return &ProviderError{Provider: p.provider, Op: op, Err: err}
	}
	return nil
}

// upstreamFailure reports errors that say the provider, not the request, is
// at fault: 429, 5xx, and transport failures other than cancellation.
func upstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var open *connectivity.ErrCircuitOpen
	if errors.As(err, &open) {
		return false
	}
	var he *httpError
	if errors.As(err, &he) {
		return he.Status == http.StatusTooManyRequests || he.Status >= 500
	}
	return true
}

// decodeJSON parses the first JSON object in raw. Models sometimes wrap the
// object in a code fence or a sentence; both are tolerated.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no json object in answer", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
