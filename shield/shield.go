// CLAUDE:SUMMARY HTTP middleware for the deckforge API: headers, CORS, body cap, trace ids, SQLite rate limits, maintenance.
// Package shield provides the HTTP middleware that fronts the deckforge API.
// It consolidates security headers, CORS, body limits, request tracing,
// rate limiting, maintenance mode, and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(50 << 20))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(db, "/health").Middleware)
//
// Or apply the default stack in one call:
//
//	stack, mm, rl := shield.DefaultStack(db, shield.StackConfig{MaxBody: 50 << 20})
//	mm.StartReloader(done)
//	rl.StartReloader(done)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"encoding/json"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// StackConfig parameterises DefaultStack.
type StackConfig struct {
	MaxBody     int64    // request body cap in bytes; 0 disables
	CORSOrigins []string // empty disables CORS
	Bypass      []string // path prefixes that skip maintenance and rate limits
}

// DefaultStack returns the standard middleware stack for the deckforge API.
// Order: Maintenance, HeadToGet, SecurityHeaders, CORS, MaxBody, TraceID, RateLimiter.
// Paths under cfg.Bypass (default "/health") skip maintenance and rate limiting.
func DefaultStack(db *sql.DB, cfg StackConfig) ([]func(http.Handler) http.Handler, *MaintenanceMode, *RateLimiter) {
	if len(cfg.Bypass) == 0 {
		cfg.Bypass = []string{"/health"}
	}
	mm := NewMaintenanceMode(db, cfg.Bypass...)
	rl := NewRateLimiter(db, cfg.Bypass...)
	stack := []func(http.Handler) http.Handler{
		mm.Middleware,
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
	}
	if len(cfg.CORSOrigins) > 0 {
		stack = append(stack, CORS(cfg.CORSOrigins))
	}
	if cfg.MaxBody > 0 {
		stack = append(stack, MaxBody(cfg.MaxBody))
	}
	stack = append(stack, TraceID, rl.Middleware)
	return stack, mm, rl
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
