package shield

import (
	"errors"
	"net/http"
	"strings"
)

// MaxBody caps every request body at maxBytes. Requests that announce a
// larger Content-Length are rejected with 413 up front; chunked bodies fail
// inside the handler with *http.MaxBytesError (see IsTooLarge).
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IsTooLarge reports whether err comes from a body cut off by MaxBody.
// Some readers (multipart) flatten the error, so the message is matched too.
func IsTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "http: request body too large")
}
