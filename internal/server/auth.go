package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const adminKey contextKey = "admin"

// AdminFromContext returns the authenticated admin name, or "" if not set.
func AdminFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(adminKey).(string); ok {
		return name
	}
	return ""
}

// AdminAuthMiddleware validates X-Claims-Key or Authorization: Bearer <key>
// against the configured admin keys and stores the admin name in context.
// apiKeys maps key -> admin name.
func AdminAuthMiddleware(apiKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Claims-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			var name string
			for k, n := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					name = n
					break
				}
			}
			if name == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey, name)))
		})
	}
}

// ParseAPIKeys parses a comma-separated key list (each entry "key" or
// "key:name") into a key -> name map. Entries without a name default to
// "admin".
func ParseAPIKeys(env string) map[string]string {
	m := make(map[string]string)
	if env == "" {
		return m
	}
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := "admin"
		if idx := strings.Index(part, ":"); idx > 0 {
			name = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		m[part] = name
	}
	return m
}
