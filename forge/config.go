package forge

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/deckforge/deckbuild"
	"github.com/hazyhaar/deckforge/horosafe"
	"github.com/hazyhaar/deckforge/planner"
	"github.com/hazyhaar/deckforge/shield"
	"github.com/hazyhaar/deckforge/tmplscan"
)

// Config holds the full deckforge configuration.
type Config struct {
	Listen          string                    `yaml:"listen"`
	DBPath          string                    `yaml:"db_path"`
	LogLevel        string                    `yaml:"log_level"`
	MaxUploadMB     int                       `yaml:"max_upload_mb"`
	MaxTextChars    int                       `yaml:"max_text_chars"`
	RequestTimeout  time.Duration             `yaml:"request_timeout"`
	CORSOrigins     []string                  `yaml:"cors_origins"`
	DefaultProvider string                    `yaml:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Analyzer        tmplscan.Config           `yaml:"analyzer"`
	Builder         deckbuild.Config          `yaml:"builder"`
	RetentionDays   int                       `yaml:"retention_days"`
	RateLimits      []shield.Rule             `yaml:"rate_limits"`

	// AllowPrivateEndpoints lets provider base URLs target private
	// addresses (local proxies). Ollama is always allowed.
	AllowPrivateEndpoints bool `yaml:"allow_private_endpoints"`
}

// ProviderConfig tunes one planner provider. APIKey is never read from the
// YAML file; it comes from the environment or from the request.
type ProviderConfig struct {
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTokens    int           `yaml:"max_tokens"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	APIKey       string        `yaml:"-"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8090",
		DBPath:          "data/deckforge.db",
		LogLevel:        "info",
		MaxUploadMB:     50,
		MaxTextChars:    200000,
		RequestTimeout:  5 * time.Minute,
		DefaultProvider: string(planner.OpenAI),
		Providers:       map[string]ProviderConfig{},
		Analyzer:        tmplscan.Config{MaxLayouts: 5},
		RetentionDays:   30,
		RateLimits: []shield.Rule{
			{Endpoint: "POST /api/generate", MaxRequests: 10, WindowSeconds: 60},
			{Endpoint: "POST /api/build", MaxRequests: 30, WindowSeconds: 60},
			{Endpoint: "POST /api/analyze-template", MaxRequests: 60, WindowSeconds: 60},
			// Every MCP message is a POST; a deck_generate call costs about three.
			{Endpoint: "POST /mcp", MaxRequests: 30, WindowSeconds: 60},
		},
	}
}

// LoadConfig reads a YAML config file over DefaultConfig. The result is not
// validated; callers apply the environment first, then Validate.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return cfg, nil
}

// providerKeyEnv names the environment variable holding each provider's key.
var providerKeyEnv = map[planner.Provider]string{
	planner.OpenAI:    "OPENAI_API_KEY",
	planner.Anthropic: "ANTHROPIC_API_KEY",
	planner.Gemini:    "GEMINI_API_KEY",
}

// ApplyEnv overlays DECKFORGE_* variables and provider keys. lookup is
// os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("DECKFORGE_LISTEN", &c.Listen)
	set("DECKFORGE_DB", &c.DBPath)
	set("DECKFORGE_PROVIDER", &c.DefaultProvider)
	set("DECKFORGE_LOG_LEVEL", &c.LogLevel)

	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if v, ok := lookup("DECKFORGE_MODEL"); ok && v != "" {
		pc := c.Providers[c.DefaultProvider]
		pc.Model = v
		c.Providers[c.DefaultProvider] = pc
	}
	for p, key := range providerKeyEnv {
		if v, ok := lookup(key); ok && v != "" {
			pc := c.Providers[string(p)]
			pc.APIKey = v
			c.Providers[string(p)] = pc
		}
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	if c.MaxTextChars <= 0 {
		return fmt.Errorf("max_text_chars must be > 0")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be >= 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, ok := planner.Default.Info(planner.Provider(c.DefaultProvider)); !ok {
		return fmt.Errorf("default_provider: %w: %q", planner.ErrUnknownProvider, c.DefaultProvider)
	}
	for name, pc := range c.Providers {
		if _, ok := planner.Default.Info(planner.Provider(name)); !ok {
			return fmt.Errorf("providers.%s: %w", name, planner.ErrUnknownProvider)
		}
		if pc.MaxRetries < 0 || pc.MaxRetries > 5 {
			return fmt.Errorf("providers.%s.max_retries must be between 0 and 5", name)
		}
		if pc.BaseURL == "" {
			continue
		}
		allowPrivate := c.AllowPrivateEndpoints || planner.Provider(name) == planner.Ollama
		if err := horosafe.ValidateEndpoint(pc.BaseURL, allowPrivate); err != nil {
			return fmt.Errorf("providers.%s.base_url: %w", name, err)
		}
	}
	for i, r := range c.RateLimits {
		if r.Endpoint == "" || r.MaxRequests <= 0 || r.WindowSeconds <= 0 {
			return fmt.Errorf("rate_limits[%d]: endpoint, max_requests and window_seconds are required", i)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// PlannerConfig merges the provider settings for p with request overrides.
func (c *Config) PlannerConfig(p planner.Provider, model, apiKey string) planner.Config {
	pc := c.Providers[string(p)]
	cfg := planner.Config{
		Provider:      p,
		APIKey:        pc.APIKey,
		Model:         pc.Model,
		BaseURL:       pc.BaseURL,
		Timeout:       pc.Timeout,
		MaxTokens:     pc.MaxTokens,
		MaxRetries:    pc.MaxRetries,
		RetryBackoff:  pc.RetryBackoff,
		MaxInputChars: c.MaxTextChars,
	}
	if model != "" {
		cfg.Model = model
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	return cfg
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
}
