package engine

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const profileContextKey contextKey = "profile"

// Middleware contains the authentication middleware
type Middleware struct {
	engine *Engine
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(engine *Engine) *Middleware {
	return &Middleware{
		engine: engine,
	}
}

// AuthenticationMiddleware validates the bearer token and stores the
// caller profile in the request context
func (m *Middleware) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.shouldSkipAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := m.extractBearerToken(r)
		if token == "" {
			m.engine.writeErrorResponse(w, http.StatusUnauthorized, "Authorization token is required", "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		profile, err := m.engine.tokens.Validate(ctx, token)
		if err != nil {
			m.engine.writeErrorResponse(w, http.StatusUnauthorized, "Authentication failed", "Invalid or expired token")
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), profileContextKey, profile))
		next.ServeHTTP(w, r)
	})
}

// shouldSkipAuth determines if authentication should be skipped for a route
func (m *Middleware) shouldSkipAuth(r *http.Request) bool {
	path := r.URL.Path
	method := r.Method

	// CORS preflight
	if method == http.MethodOptions {
		return true
	}

	if path == "/health" && method == http.MethodGet {
		return true
	}

	if strings.HasSuffix(path, "/auth/login") && method == http.MethodPost {
		return true
	}

	// Refresh validates the refresh token itself
	if strings.HasSuffix(path, "/auth/refresh") && method == http.MethodPost {
		return true
	}

	// Signup is open; the handler caps the role it will grant
	if path == "/api/v1/users" && method == http.MethodPost {
		return true
	}

	// Webhooks authenticate with a shared secret header, not a bearer token
	if strings.HasSuffix(path, "/auth/webhooks") && method == http.MethodPost {
		return true
	}

	// Inbound email arrives from the mail provider, not a logged-in user
	if strings.HasPrefix(path, "/api/v1/inbound-email/") && method == http.MethodPost {
		return true
	}

	return false
}

// extractBearerToken extracts the bearer token from the Authorization header
func (m *Middleware) extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
