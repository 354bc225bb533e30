// CLAUDE:SUMMARY Request orchestrator: template analysis, planning (text analysis in parallel with template scan), build, run journal.
// Package forge sequences the deckforge pipeline for one request:
//
//	template bytes ─► tmplscan ─┐
//	                            ├─► deckbuild ─► .pptx bytes
//	text ─► planner.AnalyzeText ─► planner.GenerateSlideStructure ─┘
//
// Template analysis and text analysis have no data dependency and run
// concurrently. Every call is recorded in the observability journal.
// The same Service backs the HTTP handler, the MCP tools and the CLI.
package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/deckbuild"
	"github.com/hazyhaar/deckforge/docpipe"
	"github.com/hazyhaar/deckforge/idgen"
	"github.com/hazyhaar/deckforge/kit"
	"github.com/hazyhaar/deckforge/observability"
	"github.com/hazyhaar/deckforge/planner"
	"github.com/hazyhaar/deckforge/tmplscan"
)

var (
	// ErrInvalidInput marks a request rejected before any pipeline stage ran.
	ErrInvalidInput = errors.New("forge: invalid input")
	// ErrUnsupportedTemplate is returned for uploads that are not zip packages.
	ErrUnsupportedTemplate = errors.New("forge: unsupported template type")
	// ErrTooLarge is returned for uploads or texts over the configured caps.
	ErrTooLarge = errors.New("forge: input too large")
)

// Service runs the pipeline. It is safe for concurrent use.
type Service struct {
	cfg      *Config
	scanner  *tmplscan.Scanner
	builder  *deckbuild.Builder
	docs     *docpipe.Pipeline
	registry *planner.Registry
	journal  *observability.Journal
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry replaces planner.Default.
func WithRegistry(r *planner.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithJournal records runs in j.
func WithJournal(j *observability.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Service{
		cfg:      cfg,
		registry: planner.Default,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	analyzer := cfg.Analyzer
	analyzer.Logger = s.logger
	builder := cfg.Builder
	builder.Logger = s.logger
	s.scanner = tmplscan.New(analyzer)
	s.builder = deckbuild.New(builder)
	s.docs = docpipe.New(docpipe.Config{MaxFileSize: cfg.MaxUploadBytes(), Logger: s.logger})
	s.validate = newValidator(s.registry)
	return s
}

// Docs exposes the source-document pipeline (for MCP registration).
func (s *Service) Docs() *docpipe.Pipeline { return s.docs }

// Journal returns the run journal, possibly nil.
func (s *Service) Journal() *observability.Journal { return s.journal }

// Result is a generated or built package.
type Result struct {
	RunID     string                `json:"run_id,omitempty"`
	Filename  string                `json:"filename"`
	Data      []byte                `json:"-"`
	Structure *deck.SlideStructure  `json:"structure"`
	Analysis  *tmplscan.Analysis    `json:"template_analysis,omitempty"`
	Content   *deck.ContentAnalysis `json:"content_analysis,omitempty"`
	Provider  planner.Provider      `json:"provider,omitempty"`
	Model     string                `json:"model,omitempty"`
}

// AnalyzeTemplate describes a template. Non-zip uploads are rejected with
// ErrUnsupportedTemplate; anything past that check degrades to defaults.
func (s *Service) AnalyzeTemplate(ctx context.Context, data []byte) (*tmplscan.Analysis, error) {
	start := time.Now()
	run := s.newRun(ctx, observability.KindAnalyze, int64(len(data)))
	defer func() { s.finish(run, start) }()

	if err := s.checkTemplate(data); err != nil {
		run.Error = err.Error()
		return nil, err
	}
	a := s.scanner.Analyze(data)
	run.Layouts = len(a.Layouts)
	return a, nil
}

// Generate plans and builds a deck from req.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*Result, error) {
	start := time.Now()
	run := s.newRun(ctx, observability.KindGenerate, int64(len(req.Text)+len(req.Source)+len(req.Template)))
	defer func() { s.finish(run, start) }()

	res, err := s.generate(ctx, req, run)
	if err != nil {
		run.Error = err.Error()
		return nil, err
	}
	res.RunID = run.RunID
	return res, nil
}

func (s *Service) generate(ctx context.Context, req *GenerateRequest, run *observability.Run) (*Result, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.Template) > 0 {
		if err := s.checkTemplate(req.Template); err != nil {
			return nil, err
		}
	}

	text, err := s.sourceText(ctx, req)
	if err != nil {
		return nil, err
	}

	provider := s.pickProvider(req)
	pcfg := s.cfg.PlannerConfig(provider, req.Model, req.APIKey)
	pcfg.Logger = s.logger
	pl, err := s.registry.New(pcfg)
	if err != nil {
		if errors.Is(err, planner.ErrUnknownProvider) || errors.Is(err, planner.ErrMissingCredential) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	run.Provider = string(pl.Provider())
	run.Model = pl.Model()

	var (
		analysis *tmplscan.Analysis
		content  *deck.ContentAnalysis
	)
	g, gctx := errgroup.WithContext(ctx)
	if len(req.Template) > 0 {
		g.Go(func() error {
			analysis = s.scanner.Analyze(req.Template)
			return nil
		})
	}
	g.Go(func() error {
		var err error
		content, err = pl.AnalyzeText(gctx, text, req.Guidance)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if analysis != nil {
		run.Layouts = len(analysis.Layouts)
	}

	structure, err := pl.GenerateSlideStructure(ctx, content, req.Guidance)
	if err != nil {
		return nil, err
	}

	data, err := s.builder.Build(structure, analysis)
	if err != nil {
		return nil, err
	}
	run.Slides = len(structure.Slides)
	run.OutputBytes = int64(len(data))

	title := structure.Title()
	if title == "" {
		title = content.Title
	}
	return &Result{
		Filename:  Filename(title),
		Data:      data,
		Structure: structure,
		Analysis:  analysis,
		Content:   content,
		Provider:  pl.Provider(),
		Model:     pl.Model(),
	}, nil
}

// Build renders structure with the theme of template (optional), skipping
// the planner.
func (s *Service) Build(ctx context.Context, structure *deck.SlideStructure, template []byte) (*Result, error) {
	start := time.Now()
	run := s.newRun(ctx, observability.KindBuild, int64(len(template)))
	defer func() { s.finish(run, start) }()

	res, err := s.build(structure, template, run)
	if err != nil {
		run.Error = err.Error()
		return nil, err
	}
	res.RunID = run.RunID
	return res, nil
}

func (s *Service) build(structure *deck.SlideStructure, template []byte, run *observability.Run) (*Result, error) {
	if err := s.validateStructure(structure); err != nil {
		return nil, err
	}
	var analysis *tmplscan.Analysis
	if len(template) > 0 {
		if err := s.checkTemplate(template); err != nil {
			return nil, err
		}
		analysis = s.scanner.Analyze(template)
		run.Layouts = len(analysis.Layouts)
	}

	data, err := s.builder.Build(structure, analysis)
	if err != nil {
		return nil, err
	}
	run.Slides = len(structure.Slides)
	run.OutputBytes = int64(len(data))
	return &Result{
		Filename:  Filename(structure.Title()),
		Data:      data,
		Structure: structure,
		Analysis:  analysis,
	}, nil
}

// pickProvider resolves the planner for req. An explicit provider is kept
// as asked. Otherwise the default is used, unless it needs a key that
// neither the request nor the environment supplies; then the offline
// outline planner runs instead.
func (s *Service) pickProvider(req *GenerateRequest) planner.Provider {
	if req.Provider != "" {
		return planner.Provider(req.Provider)
	}
	p := planner.Provider(s.cfg.DefaultProvider)
	info, ok := s.registry.Info(p)
	if !ok || !info.NeedsKey || req.APIKey != "" || s.cfg.Providers[string(p)].APIKey != "" {
		return p
	}
	s.logger.Debug("forge: no key for default provider, using outline", "provider", p)
	return planner.Outline
}

// Providers lists the registered planner providers.
func (s *Service) Providers() []planner.ProviderInfo {
	return s.registry.Providers()
}

// Runs lists recent journal entries.
func (s *Service) Runs(ctx context.Context, f observability.Filter) ([]observability.Run, error) {
	return s.journal.Recent(ctx, f)
}

func (s *Service) sourceText(ctx context.Context, req *GenerateRequest) (string, error) {
	text := req.Text
	if len(req.Source) > 0 {
		doc, err := s.docs.Extract(ctx, req.SourceName, req.Source)
		switch {
		case errors.Is(err, docpipe.ErrTooLarge):
			return "", fmt.Errorf("%w: %w", ErrTooLarge, err)
		case errors.Is(err, docpipe.ErrUnsupportedFormat), errors.Is(err, docpipe.ErrEmpty):
			return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
		case err != nil:
			return "", fmt.Errorf("%w: source: %w", ErrInvalidInput, err)
		}
		if doc.Quality.LowText() {
			s.logger.Warn("forge: source has little extractable text", "name", req.SourceName,
				"chars_per_page", doc.Quality.CharsPerPage)
		}
		text = doc.RawText
	}
	if n := len([]rune(text)); n > s.cfg.MaxTextChars {
		return "", fmt.Errorf("%w: text has %d characters (max %d)", ErrTooLarge, n, s.cfg.MaxTextChars)
	}
	return text, nil
}

func (s *Service) newRun(ctx context.Context, kind string, inputBytes int64) *observability.Run {
	return &observability.Run{
		RunID:      idgen.Run(),
		Kind:       kind,
		RequestID:  kit.GetRequestID(ctx),
		Transport:  kit.GetTransport(ctx),
		InputBytes: inputBytes,
	}
}

func (s *Service) finish(run *observability.Run, start time.Time) {
	run.DurationMs = time.Since(start).Milliseconds()
	s.journal.Record(run)
	attrs := []any{"kind", run.Kind, "run_id", run.RunID, "duration_ms", run.DurationMs}
	if run.Error != "" {
		s.logger.Warn("forge: run failed", append(attrs, "error", run.Error)...)
		return
	}
	s.logger.Info("forge: run done", append(attrs, "slides", run.Slides, "layouts", run.Layouts)...)
}
