package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type subjectKey struct{}

// WithSubject stores the authenticated token subject in the context.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext extracts the authenticated token subject from the context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey{}).(string)
	return sub, ok
}

// Authenticate returns middleware that requires a valid bearer token. When
// allowedSubjects is non-empty, the token's sub claim must be one of them.
// The verified subject is stored in the request context for handlers and the
// audit log.
func Authenticate(validator JWTValidator, allowedSubjects []string) func(http.Handler) http.Handler {
	subjects := make(map[string]bool, len(allowedSubjects))
	for _, s := range allowedSubjects {
		subjects[s] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "Authorization missing or invalid")
				return
			}

			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "Invalid token")
				return
			}
			if len(subjects) > 0 && !subjects[claims.Subject] {
				writeUnauthorized(w, "Token subject mismatch")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.Subject)))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header,
// or returns the empty string.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
