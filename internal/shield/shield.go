// CLAUDE:SUMMARY HTTP middleware for the control API: security headers, JSON body limit, trace IDs.
// Package shield is the HTTP middleware stack of the control API: security
// headers, JSON body limits and per-request trace IDs.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazyhaar/actrec/internal/kit"
)

// DefaultMaxBody caps JSON request bodies. Start requests are tiny.
const DefaultMaxBody = 64 * 1024

// DefaultAPIStack returns the middleware for the control API, outermost
// first: SecurityHeaders, MaxJSONBody, TraceID.
func DefaultAPIStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		MaxJSONBody(DefaultMaxBody),
		TraceID(logger),
	}
}

// SecurityHeaders sets the response headers of a JSON API that is never
// framed or cached.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// MaxJSONBody limits the body of JSON requests to maxBytes. Other content
// types pass through.
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct == "" || strings.HasPrefix(ct, "application/json") {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

const loggerKey contextKey = "shield_logger"

// TraceID gives every request a random trace ID, carried in the context
// (kit.GetTraceID), the X-Trace-ID response header and a request logger
// (GetLogger).
func TraceID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := make([]byte, 4)
			rand.Read(id)
			traceID := hex.EncodeToString(id)

			ctx := kit.WithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-ID", traceID)

			l := logger.With("trace_id", traceID, "method", r.Method, "path", r.URL.Path)
			ctx = context.WithValue(ctx, loggerKey, l)
			l.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request logger, slog.Default() outside a request.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
