package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ukydev/maintenance-hub/internal/auth"
	"github.com/ukydev/maintenance-hub/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Error codes written by the middleware. Handlers use the same body shape.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeForbidden    = "FORBIDDEN"
	CodeRateLimited  = "RATE_LIMITED"
)

// writeError writes the API's JSON error body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.Claims, error)
}

// AuthMiddleware authenticates bearer tokens and gates routes by role.
type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

// Authenticate validates the bearer token and stores its claims in the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.tokens.ValidateToken(authHeader)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			writeError(w, http.StatusUnauthorized, CodeTokenExpired, "Token expired")
			return
		case err != nil:
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
	})
}

// RequireRole lets through callers holding one of roles. Administrators
// always pass.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return m.require(func(claims *models.Claims) bool {
		if claims.Role == models.RoleAdmin {
			return true
		}
		for _, role := range roles {
			if claims.Role == role {
				return true
			}
		}
		return false
	})
}

// RequirePermission lets through callers whose role grants action.
func (m *AuthMiddleware) RequirePermission(action string) func(http.Handler) http.Handler {
	return m.require(func(claims *models.Claims) bool {
		return (&models.User{Role: claims.Role}).HasPermission(action)
	})
}

func (m *AuthMiddleware) require(allowed func(*models.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
				return
			}
			if !allowed(claims) {
				writeError(w, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser stores claims in ctx.
func WithUser(ctx context.Context, claims *models.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}

// publicPaths are served without a token even when mounted behind Authenticate.
var publicPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/health",
	"/metrics",
}

func shouldSkipAuth(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
