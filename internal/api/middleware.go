package api

import (
	"log/slog"
	"net/http"

	"github.com/terra-clan/course-engine/internal/auth"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	tokens *auth.Issuer
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(tokens *auth.Issuer) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token in the Authorization header and
// stores its claims in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "provide Authorization header with a Bearer token")
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			slog.Warn("invalid token attempt", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "unauthorized", "the provided token is not valid")
			return
		}

		slog.Debug("authenticated request", "user", claims.UserID(), "role", claims.Role)

		ctx := ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose token lacks the admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		if !claims.IsAdmin() {
			slog.Warn("permission denied",
				"user", claims.UserID(),
				"role", claims.Role,
				"path", r.URL.Path,
			)
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
