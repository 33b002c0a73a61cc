// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TradeBoost-AI/lead-ledger/pkg/logger"
)

type contextKey string

const ctxUserKey contextKey = "auth_user"

// GetUserID returns the authenticated subject, or "" when unauthenticated.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates HMAC-signed JWT bearer tokens and places the
// token subject into the request context.
type AuthMiddleware struct {
	secret []byte
	skip   func(r *http.Request) bool
	log    *logger.Logger
}

// NewAuthMiddleware creates the middleware. skip may be nil; requests it
// returns true for bypass authentication (health, metrics, webhooks).
func NewAuthMiddleware(secret string, skip func(r *http.Request) bool, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if skip == nil {
		skip = func(*http.Request) bool { return false }
	}
	return &AuthMiddleware{secret: []byte(secret), skip: skip, log: log}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing Authorization header", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if raw == authHeader {
			http.Error(w, "Authorization header must be a Bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.log.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		subject, _ := token.Claims.GetSubject()
		ctx := context.WithValue(r.Context(), ctxUserKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
