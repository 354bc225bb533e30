// CLAUDE:SUMMARY Content planner abstraction: Planner interface, per-provider Config, provider registry, ProviderError.
// Package planner turns source text into a ContentAnalysis and then a
// SlideStructure by asking a language-model provider, or offline from the
// text's own heading structure.
//
// Usage:
//
//	p, err := planner.New(planner.Config{Provider: planner.OpenAI, APIKey: key})
//	analysis, err := p.AnalyzeText(ctx, text, "for a board meeting")
//	structure, err := p.GenerateSlideStructure(ctx, analysis, "")
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/deckforge/connectivity"
	"github.com/hazyhaar/deckforge/deck"
)

// Provider identifies a planner implementation.
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Gemini    Provider = "gemini"
	Ollama    Provider = "ollama"
	Outline   Provider = "outline"
)

// Operation names carried by ProviderError.
const (
	OpAnalyze  = "analyze_text"
	OpGenerate = "generate_structure"
)

var (
	// ErrUnknownProvider is returned for a provider id with no registered factory.
	ErrUnknownProvider = errors.New("planner: unknown provider")
	// ErrMissingCredential is returned when a provider needs an API key and none was given.
	ErrMissingCredential = errors.New("planner: missing api key")
	// ErrMalformedResponse wraps provider answers that are not the expected JSON.
	ErrMalformedResponse = errors.New("planner: malformed response")
)

// Planner is the two-step content planning capability every provider offers.
type Planner interface {
	// AnalyzeText reads the source text and returns its thematic analysis.
	AnalyzeText(ctx context.Context, text, guidance string) (*deck.ContentAnalysis, error)

	// GenerateSlideStructure turns an analysis into a slide outline.
	GenerateSlideStructure(ctx context.Context, analysis *deck.ContentAnalysis, guidance string) (*deck.SlideStructure, error)

	Provider() Provider
	Model() string
}

// ProviderError reports a failed provider call: transport failure, non-2xx
// answer, or an unparseable body.
type ProviderError struct {
	Provider   Provider
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("planner: %s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("planner: %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config configures one planner instance.
type Config struct {
	Provider Provider `json:"provider" yaml:"provider"`

	// APIKey is the caller's credential for the provider.
	APIKey string `json:"-" yaml:"-"`

	// Model overrides the provider's default model.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider endpoint (proxies, self-hosted gateways, tests).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout per provider call. Default: 120s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxTokens bounds the answer length. Default: 4096.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature for sampling. Default: 0.3.
	Temperature float32 `json:"temperature" yaml:"temperature"`

	// MaxInputChars truncates source text before it is sent. Default: 100000.
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars"`

	// MaxRetries on 429, 5xx and transport failures. Default: 0, a failed
	// call is terminal.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBackoff before the first retry, doubled each time. Default: 500ms.
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`

	Logger *slog.Logger `json:"-" yaml:"-"`

	breaker *connectivity.Breaker
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = 100000
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Factory builds a Planner from a defaulted Config.
type Factory func(Config) (Planner, error)

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID           Provider `json:"id"`
	DefaultModel string   `json:"default_model"`
	NeedsKey     bool     `json:"needs_key"`
}

type registration struct {
	info    ProviderInfo
	factory Factory
}

// Registry maps provider ids to factories. Planners built from one
// registry share a circuit breaker per provider endpoint.
type Registry struct {
	mu       sync.RWMutex
	entries  map[Provider]registration
	breakers *connectivity.BreakerSet
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[Provider]registration),
		breakers: connectivity.NewBreakerSet(connectivity.BreakerConfig{IsFailure: upstreamFailure}),
	}
}

// BreakerStates reports the circuit state per provider endpoint used so far.
func (r *Registry) BreakerStates() map[string]string {
	return r.breakers.States()
}

// Register adds or replaces a provider.
func (r *Registry) Register(info ProviderInfo, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[info.ID] = registration{info: info, factory: f}
}

// Info returns the registration for p.
func (r *Registry) Info(p Provider) (ProviderInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[p]
	return e.info, ok
}

// Providers lists registered providers sorted by id.
func (r *Registry) Providers() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// New builds the planner for cfg.Provider, filling in the default model.
func (r *Registry) New(cfg Config) (Planner, error) {
	r.mu.RLock()
	e, ok := r.entries[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if e.info.NeedsKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingCredential, cfg.Provider)
	}
	if cfg.Model == "" {
		cfg.Model = e.info.DefaultModel
	}
	cfg.defaults()
	cfg.breaker = r.breakers.Get(string(cfg.Provider) + "|" + cfg.BaseURL)
	return e.factory(cfg)
}

// Default holds the built-in providers.
var Default = builtin()

func builtin() *Registry {
	r := NewRegistry()
	r.Register(ProviderInfo{ID: OpenAI, DefaultModel: "gpt-4o-mini", NeedsKey: true}, newOpenAI)
	r.Register(ProviderInfo{ID: Ollama, DefaultModel: "llama3.1"}, newOllama)
	r.Register(ProviderInfo{ID: Anthropic, DefaultModel: "claude-3-5-sonnet-latest", NeedsKey: true}, newAnthropic)
	r.Register(ProviderInfo{ID: Gemini, DefaultModel: "gemini-1.5-flash", NeedsKey: true}, newGemini)
	r.Register(ProviderInfo{ID: Outline, DefaultModel: "outline"}, newOutline)
	return r
}

// New builds a planner from the Default registry.
func New(cfg Config) (Planner, error) { return Default.New(cfg) }
