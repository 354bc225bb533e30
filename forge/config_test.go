package forge

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/deckforge/planner"
	"github.com/hazyhaar/deckforge/shield"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxUploadBytes() != 50<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deckforge.yaml")
	yml := `
listen: ":9000"
max_text_chars: 1000
default_provider: anthropic
providers:
  anthropic:
    model: claude-test
    timeout: 30s
    max_retries: 2
    retry_backoff: 250ms
rate_limits:
  - endpoint: "POST /api/generate"
    max_requests: 2
    window_seconds: 10
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.MaxTextChars != 1000 || cfg.DefaultProvider != "anthropic" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxUploadMB != 50 || cfg.RequestTimeout != 5*time.Minute {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	pc := cfg.Providers["anthropic"]
	if pc.Model != "claude-test" || pc.Timeout != 30*time.Second || pc.MaxRetries != 2 || pc.RetryBackoff != 250*time.Millisecond {
		t.Errorf("provider = %+v", pc)
	}
	if len(cfg.RateLimits) != 1 || cfg.RateLimits[0].MaxRequests != 2 {
		t.Errorf("rate limits = %+v", cfg.RateLimits)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DECKFORGE_LISTEN":   " :7000 ",
		"DECKFORGE_PROVIDER": "gemini",
		"DECKFORGE_MODEL":    "gemini-pro",
		"OPENAI_API_KEY":     "sk-openai",
		"GEMINI_API_KEY":     "g-key",
		"ANTHROPIC_API_KEY":  "",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Listen != ":7000" || cfg.DefaultProvider != "gemini" {
		t.Errorf("cfg = %+v", cfg)
	}
	if g := cfg.Providers["gemini"]; g.Model != "gemini-pro" || g.APIKey != "g-key" {
		t.Errorf("gemini = %+v", g)
	}
	if cfg.Providers["openai"].APIKey != "sk-openai" {
		t.Error("openai key not applied")
	}
	if _, ok := cfg.Providers["anthropic"]; ok {
		t.Error("empty key should not create a provider entry")
	}
}

func TestPlannerConfig_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers["openai"] = ProviderConfig{Model: "gpt-config", APIKey: "sk-env", BaseURL: "http://proxy/v1"}

	pc := cfg.PlannerConfig(planner.OpenAI, "", "")
	if pc.Model != "gpt-config" || pc.APIKey != "sk-env" || pc.BaseURL != "http://proxy/v1" || pc.MaxInputChars != cfg.MaxTextChars {
		t.Errorf("config values = %+v", pc)
	}
	pc = cfg.PlannerConfig(planner.OpenAI, "gpt-request", "sk-request")
	if pc.Model != "gpt-request" || pc.APIKey != "sk-request" {
		t.Errorf("request overrides = %+v", pc)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"upload", func(c *Config) { c.MaxUploadMB = 0 }, "max_upload_mb"},
		{"text", func(c *Config) { c.MaxTextChars = -1 }, "max_text_chars"},
		{"level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"provider", func(c *Config) { c.DefaultProvider = "acme" }, "default_provider"},
		{"provider section", func(c *Config) { c.Providers["acme"] = ProviderConfig{} }, "providers.acme"},
		{"base url scheme", func(c *Config) { c.Providers["openai"] = ProviderConfig{BaseURL: "file:///etc/passwd"} }, "providers.openai.base_url"},
		{"private base url", func(c *Config) { c.Providers["anthropic"] = ProviderConfig{BaseURL: "http://10.0.0.5/v1"} }, "private"},
		{"retries", func(c *Config) { c.Providers["gemini"] = ProviderConfig{MaxRetries: 9} }, "providers.gemini.max_retries"},
		{"rate limit", func(c *Config) { c.RateLimits = append(c.RateLimits, shield.Rule{MaxRequests: 1, WindowSeconds: 1}) }, "rate_limits[4]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Providers["ollama"] = ProviderConfig{BaseURL: "http://127.0.0.1:11434/v1"}
	cfg.Providers["openai"] = ProviderConfig{BaseURL: "http://10.0.0.5/v1"}
	cfg.AllowPrivateEndpoints = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("private endpoints allowed: %v", err)
	}

	cfg = DefaultConfig()
	cfg.DefaultProvider = "acme"
	if err := cfg.Validate(); !errors.Is(err, planner.ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}
