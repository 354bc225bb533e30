package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/deckbuild"
	"github.com/hazyhaar/deckforge/horosafe"
	"github.com/hazyhaar/deckforge/observability"
	"github.com/hazyhaar/deckforge/planner"
	"github.com/hazyhaar/deckforge/shield"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// Routes mounts the API on r. Middleware (shield stack) is the caller's.
func (s *Service) Routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze-template", s.handleAnalyzeTemplate)
		r.Post("/generate", s.handleGenerate)
		r.Post("/build", s.handleBuild)
		r.Get("/providers", s.handleProviders)
		r.Get("/runs", s.handleRuns)
		r.Get("/stats", s.handleStats)
	})
}

// Handler returns a router with the API mounted and no middleware.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func (s *Service) handleAnalyzeTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(r); err != nil {
		s.fail(w, r, err)
		return
	}
	data, _, err := s.formFile(r, "template")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if data == nil {
		s.fail(w, r, fmt.Errorf("%w: template file is required", ErrInvalidInput))
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	a, err := s.AnalyzeTemplate(ctx, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(r); err != nil {
		s.fail(w, r, err)
		return
	}
	req := &GenerateRequest{
		Text:     r.FormValue("text"),
		Guidance: r.FormValue("guidance"),
		Provider: r.FormValue("provider"),
		Model:    r.FormValue("model"),
		APIKey:   r.FormValue("api_key"),
	}
	var err error
	if req.Source, req.SourceName, err = s.formFile(r, "source"); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Template, _, err = s.formFile(r, "template"); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.Generate(ctx, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePackage(w, res)
}

type buildRequest struct {
	Structure      *deck.SlideStructure `json:"structure"`
	TemplateBase64 string               `json:"template_base64"`
}

func (s *Service) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if shield.IsTooLarge(err) {
			s.fail(w, r, fmt.Errorf("%w: %w", ErrTooLarge, err))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: body: %w", ErrInvalidInput, err))
		return
	}
	template, err := decodeBase64("template_base64", req.TemplateBase64)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.Build(ctx, req.Structure, template)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePackage(w, res)
}

func (s *Service) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.Providers(),
		"default":   s.cfg.DefaultProvider,
	})
}

func (s *Service) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs(r.Context(), observability.Filter{
		Kind:   r.URL.Query().Get("kind"),
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 50),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	if hours <= 0 {
		hours = 24
	}
	stats, err := s.journal.Stats(r.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window_hours": hours,
		"runs":         stats,
		"breakers":     s.registry.BreakerStates(),
		"runtime":      observability.CollectRuntimeMetrics(),
	})
}

// requestContext bounds a pipeline call by RequestTimeout.
func (s *Service) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Service) parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case err == nil:
		return nil
	case shield.IsTooLarge(err):
		return fmt.Errorf("%w: %w", ErrTooLarge, err)
	case errors.Is(err, http.ErrNotMultipart):
		// url-encoded forms still carry text, guidance, provider.
		if perr := r.ParseForm(); perr != nil {
			return fmt.Errorf("%w: form: %w", ErrInvalidInput, perr)
		}
		return nil
	}
	return fmt.Errorf("%w: form: %w", ErrInvalidInput, err)
}

// formFile reads an optional multipart file, capped at MaxUploadBytes. A
// missing field yields nil.
func (s *Service) formFile(r *http.Request, field string) ([]byte, string, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrInvalidInput, field, err)
	}
	defer f.Close()
	data, err := horosafe.LimitedReadAll(f, s.cfg.MaxUploadBytes())
	if err != nil {
		if errors.Is(err, horosafe.ErrTooLarge) || shield.IsTooLarge(err) {
			return nil, "", fmt.Errorf("%w: %w", ErrTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: %s: %w", ErrInvalidInput, field, err)
	}
	return data, hdr.Filename, nil
}

func decodeBase64(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, field, err)
	}
	return data, nil
}

func writePackage(w http.ResponseWriter, res *Result) {
	w.Header().Set("Content-Type", deckbuild.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	if res.RunID != "" {
		w.Header().Set("X-Run-ID", res.RunID)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// StatusFor maps a pipeline error to its HTTP status.
func StatusFor(err error) int {
	var (
		perr *planner.ProviderError
		berr *deckbuild.BuildError
	)
	switch {
	case errors.Is(err, ErrTooLarge), shield.IsTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedTemplate):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidInput), errors.Is(err, deck.ErrNoSlides),
		errors.Is(err, planner.ErrUnknownProvider), errors.Is(err, planner.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.As(err, &perr):
		return http.StatusBadGateway
	case errors.As(err, &berr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	logger := shield.GetLogger(r.Context())
	if code >= 500 {
		logger.Error("forge: request failed", "status", code, "error", err)
	} else {
		logger.Info("forge: request rejected", "status", code, "error", err)
	}
	writeError(w, code, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
