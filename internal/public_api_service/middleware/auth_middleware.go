package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedUserContextKey = ContextKey("authenticatedUser")
)

// AuthenticatedUser holds information about the authenticated caller.
type AuthenticatedUser struct {
	ID       string
	Username string
	IsAdmin  bool
}

// AccessClaims is the claim set of an access token.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// UserFromContext returns the user placed in ctx by AuthMiddleware.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	u, ok := ctx.Value(AuthenticatedUserContextKey).(AuthenticatedUser)
	return u, ok && u.ID != ""
}

// AuthMiddleware accepts HS256 bearer tokens signed with secret.
func AuthMiddleware(secret []byte, logger *slog.Logger) func(next http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			var claims AccessClaims
			if _, err := parser.ParseWithClaims(tokenString, &claims, keyFunc); err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					logger.InfoContext(r.Context(), "Expired access token")
				} else {
					logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				}
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				logger.WarnContext(r.Context(), "Token has no subject")
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			authUser := AuthenticatedUser{ID: claims.Subject, Username: claims.Username, IsAdmin: claims.IsAdmin}
			ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
