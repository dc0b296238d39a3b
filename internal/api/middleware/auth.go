package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	OperatorContextKey contextKey = "operator"
)

// AuthConfig guards the read-only admin surface (spec_full.md §4.9). There
// is no role hierarchy in this domain: a caller either holds a valid API
// key or a valid JWT signed with JWTSecret, and either is sufficient to
// reach every admin route.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   map[string]bool
}

// OperatorClaims identifies the operator a JWT-authenticated admin request
// came from, for audit logging. The scheduler has no notion of per-role
// permissions; any holder of a valid token or API key sees the same
// read-only roster/task views.
type OperatorClaims struct {
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

// Auth returns a middleware guarding the admin surface with either a
// static API key (X-API-Key) or a JWT bearer token. Disabled by default,
// matching the teacher's own default-off admin auth posture.
func Auth(cfg *AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey != "" {
				if cfg.APIKeys[apiKey] {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims := &OperatorClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperator retrieves the JWT operator claims from context, for handlers
// that want to log who made an admin request. Returns nil for API-key
// authenticated requests, which carry no per-operator identity.
func GetOperator(ctx context.Context) *OperatorClaims {
	claims, ok := ctx.Value(OperatorContextKey).(*OperatorClaims)
	if !ok {
		return nil
	}
	return claims
}
