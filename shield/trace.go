package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/deckforge/idgen"
	"github.com/hazyhaar/deckforge/kit"
)

// TraceID tags each request with a trace id and a request id, stores both in
// the context (kit.TraceIDKey, kit.RequestIDKey), echoes them as X-Trace-ID
// and X-Request-ID, and attaches a per-request logger under LoggerKey.
// A well-formed incoming X-Request-ID is kept.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := idgen.Trace()
		reqID := r.Header.Get("X-Request-ID")
		if !validRequestID(reqID) {
			reqID = idgen.Request()
		}

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithRequestID(ctx, reqID)
		ctx = kit.WithRemoteAddr(ctx, ExtractIP(r))
		ctx = kit.WithTransport(ctx, "http")
		w.Header().Set("X-Trace-ID", traceID)
		w.Header().Set("X-Request-ID", reqID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Info("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
