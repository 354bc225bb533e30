// CLAUDE:SUMMARY Entry point for deckforge: HTTP daemon (chi + shield + MCP over HTTP), MCP over stdio, one-shot -analyze/-build/-generate.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/deckforge/dbopen"
	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/forge"
	"github.com/hazyhaar/deckforge/observability"
	"github.com/hazyhaar/deckforge/planner"
	"github.com/hazyhaar/deckforge/shield"
)

const version = "0.4.0"

type options struct {
	configPath string
	logLevel   string
	mcpStdio   bool
	analyze    string
	build      string
	generate   string
	guidance   string
	provider   string
	template   string
	out        string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&o.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	flag.BoolVar(&o.mcpStdio, "mcp", false, "serve the MCP tools over stdio instead of HTTP")
	flag.StringVar(&o.analyze, "analyze", "", "analyze a template file and print the analysis as JSON")
	flag.StringVar(&o.build, "build", "", "build a deck from a slide structure JSON file")
	flag.StringVar(&o.generate, "generate", "", "plan and build a deck from a text or document file")
	flag.StringVar(&o.guidance, "guidance", "", "planner guidance for -generate")
	flag.StringVar(&o.provider, "provider", "", "planner provider for -generate")
	flag.StringVar(&o.template, "template", "", "template file for -build/-generate")
	flag.StringVar(&o.out, "out", "", "output .pptx path for -build/-generate (default: derived from the deck title)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "deckforge: .env: %v\n", err)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckforge: %v\n", err)
		os.Exit(2)
	}

	// stdout carries MCP frames and one-shot output; logs go to stderr there.
	logOut := io.Writer(os.Stdout)
	if o.mcpStdio || o.analyze != "" || o.build != "" || o.generate != "" {
		logOut = os.Stderr
	}
	lvl, _ := forge.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, cfg, logger); err != nil {
		logger.Error("deckforge", "error", err)
		os.Exit(1)
	}
}

func loadConfig(o options) (*forge.Config, error) {
	cfg := forge.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = forge.LoadConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, o options, cfg *forge.Config, logger *slog.Logger) error {
	warnMissingKey(cfg, logger)

	switch {
	case o.analyze != "":
		return runAnalyze(ctx, forge.New(cfg, forge.WithLogger(logger)), o)
	case o.build != "":
		return runBuild(ctx, forge.New(cfg, forge.WithLogger(logger)), o)
	case o.generate != "":
		return runGenerate(ctx, forge.New(cfg, forge.WithLogger(logger)), o)
	}

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(shield.Schema),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	journal := observability.NewJournal(db, observability.Config{Logger: logger})
	defer journal.Close()
	journal.StartCleanup(ctx, cfg.RetentionDays, 6*time.Hour)

	svc := forge.New(cfg, forge.WithJournal(journal), forge.WithLogger(logger))

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "deckforge", Version: version}, nil)
	svc.RegisterMCP(mcpSrv)

	if o.mcpStdio {
		logger.Info("deckforge: MCP over stdio")
		return mcpSrv.Run(ctx, &mcp.StdioTransport{})
	}
	return serve(ctx, cfg, svc, mcpSrv, db, logger)
}

// warnMissingKey flags a default provider with no environment key. Requests
// that name no provider and carry no key then get the outline planner.
func warnMissingKey(cfg *forge.Config, logger *slog.Logger) {
	p := planner.Provider(cfg.DefaultProvider)
	info, ok := planner.Default.Info(p)
	if !ok || !info.NeedsKey || cfg.Providers[cfg.DefaultProvider].APIKey != "" {
		return
	}
	logger.Warn("deckforge: no API key for default provider; keyless requests use outline", "provider", p)
}

func serve(ctx context.Context, cfg *forge.Config, svc *forge.Service, mcpSrv *mcp.Server, db *sql.DB, logger *slog.Logger) error {
	if err := shield.SeedRules(ctx, db, cfg.RateLimits); err != nil {
		return fmt.Errorf("seed rate limits: %w", err)
	}

	stack, maintenance, limiter := shield.DefaultStack(db, shield.StackConfig{
		MaxBody:     cfg.MaxUploadBytes() * 2,
		CORSOrigins: cfg.CORSOrigins,
	})
	maintenance.StartReloader(ctx.Done())
	limiter.StartReloader(ctx.Done())

	r := chi.NewRouter()
	for _, mw := range stack {
		r.Use(mw)
	}
	svc.Routes(r)
	r.Handle("/mcp", forge.MCPHandler(mcpSrv))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("deckforge: listening", "addr", cfg.Listen, "default_provider", cfg.DefaultProvider, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("deckforge: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("deckforge: stopped")
	return nil
}

func runAnalyze(ctx context.Context, svc *forge.Service, o options) error {
	data, err := os.ReadFile(o.analyze)
	if err != nil {
		return err
	}
	a, err := svc.AnalyzeTemplate(ctx, data)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

func runBuild(ctx context.Context, svc *forge.Service, o options) error {
	raw, err := os.ReadFile(o.build)
	if err != nil {
		return err
	}
	var st deck.SlideStructure
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("%s: %w", o.build, err)
	}
	template, err := readOptional(o.template)
	if err != nil {
		return err
	}
	res, err := svc.Build(ctx, &st, template)
	if err != nil {
		return err
	}
	return writeOutput(o, res)
}

func runGenerate(ctx context.Context, svc *forge.Service, o options) error {
	raw, err := os.ReadFile(o.generate)
	if err != nil {
		return err
	}
	template, err := readOptional(o.template)
	if err != nil {
		return err
	}
	res, err := svc.Generate(ctx, &forge.GenerateRequest{
		Source:     raw,
		SourceName: filepath.Base(o.generate),
		Guidance:   o.guidance,
		Provider:   o.provider,
		Template:   template,
	})
	if err != nil {
		return err
	}
	return writeOutput(o, res)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func writeOutput(o options, res *forge.Result) error {
	path := o.out
	if path == "" {
		path = res.Filename
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return err
	}
	slog.Info("deckforge: wrote deck", "path", path, "slides", len(res.Structure.Slides), "bytes", len(res.Data))
	return nil
}
