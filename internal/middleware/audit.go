package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// statusRecorder captures the response status for the audit log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Audit logs one structured line per request: method, path, status,
// duration, peer, request ID, and — when a bearer token is present — its sub
// claim. The token is parsed without verification; auditing must not depend
// on key fetches, and the auth middleware does the real validation.
func Audit(logger *slog.Logger) func(http.Handler) http.Handler {
	audit := logger.With("component", "audit")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"from", clientIP(r),
				"request_id", RequestIDFromContext(r.Context()),
			}
			if sub := unverifiedSubject(r); sub != "" {
				attrs = append(attrs, "jwt_sub", sub)
			}
			audit.Info("request", attrs...)
		})
	}
}

func unverifiedSubject(r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
