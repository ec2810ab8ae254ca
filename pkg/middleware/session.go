package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/zayana/storefront/pkg/logger"
)

// SessionHeader carries the browser's cart session id.
const SessionHeader = "X-Session-ID"

// maxSessionIDLen keeps oversized headers out of Redis keys.
const maxSessionIDLen = 128

// RequestLogger stores a request-scoped logger carrying correlation_id,
// session_id, trace_id and span_id. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if sid := SessionIDFromRequest(r); sid != "" {
				ctx = logger.WithSessionID(ctx, sid)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromRequest returns the trimmed session header, or "" when it is
// absent or unusable.
func SessionIDFromRequest(r *http.Request) string {
	sid := strings.TrimSpace(r.Header.Get(SessionHeader))
	if len(sid) > maxSessionIDLen || strings.ContainsAny(sid, " \t\r\n") {
		return ""
	}
	return sid
}
