package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type contextKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext returns the id stored by the Authenticator
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok && id > 0
}

// Authenticator resolves the caller from the access token cookie
type Authenticator struct {
	tokens  *TokenManager
	cookies *CookieCodec
	logger  *zap.Logger
}

func NewAuthenticator(tokens *TokenManager, cookies *CookieCodec, logger *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, cookies: cookies, logger: logger.Named("auth")}
}

// Middleware rejects requests without a valid token with 401
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := a.cookies.Read(r)
		if errors.Is(err, http.ErrNoCookie) {
			unauthorized(w, "Access denied, token missing!")
			return
		}
		if err != nil {
			a.logger.Debug("rejected access token cookie", zap.Error(err))
			a.cookies.Clear(w)
			unauthorized(w, "Invalid token")
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			a.logger.Debug("rejected access token", zap.Error(err))
			a.cookies.Clear(w)
			unauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
