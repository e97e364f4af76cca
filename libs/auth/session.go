package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/staybook/libs/httpx"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID string
	Email  string
	Role   string
}

type ctxKey int

const ctxKeySession ctxKey = iota

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(Session)
	return s, ok && s.UserID != ""
}

// RequireSession rejects requests without a valid bearer token and stores the
// caller's Session in the request context.
func RequireSession(secret string, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := ParseAndVerifyHS256(token, secret)
			if err != nil {
				if logger != nil {
					logger.Debug("session rejected", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
				}
				httpx.WriteError(w, r, http.StatusUnauthorized, "invalid session")
				return
			}
			s := Session{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// SessionKey keys per-user rate limits, falling back to the client IP.
func SessionKey(r *http.Request) string {
	if s, ok := SessionFromContext(r.Context()); ok {
		return "user:" + s.UserID
	}
	return "ip:" + httpx.ClientIP(r)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
