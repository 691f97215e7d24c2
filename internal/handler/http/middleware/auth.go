package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ragchat/internal/handler/http/respond"
)

var (
	errMissingAPIKey = errors.New("missing API key")
	errInvalidAPIKey = errors.New("invalid API key")
)

// APIKeyAuth is middleware that protects admin endpoints with a static
// API key. The key is accepted either as "Authorization: Bearer <key>"
// or in the X-API-Key header. Comparison is constant time.
//
// An empty configured key disables the middleware, which keeps local
// development friction-free. Production deployments set API_KEY.
type APIKeyAuth struct {
	key []byte
}

// NewAPIKeyAuth creates the middleware for the given key.
func NewAPIKeyAuth(key string) *APIKeyAuth {
	if key == "" {
		slog.Warn("API key auth disabled, admin endpoints are unprotected")
	}
	return &APIKeyAuth{key: []byte(key)}
}

// Middleware returns the http.Handler wrapper.
func (a *APIKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(a.key) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			presented := extractAPIKey(r)
			if presented == "" {
				respond.Error(w, http.StatusUnauthorized, errMissingAPIKey)
				return
			}

			if subtle.ConstantTimeCompare(a.key, []byte(presented)) != 1 {
				slog.Warn("rejected request with invalid API key",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
				respond.Error(w, http.StatusUnauthorized, errInvalidAPIKey)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return key
		}
	}
	return r.Header.Get("X-API-Key")
}
