// Package middleware holds the HTTP middleware chain: recovery, request
// logging, metrics, timeout, bearer auth, project-header validation, and the
// per-request permission check.
package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"testhub/backend/internal/apperr"
	"testhub/backend/internal/security"
	"testhub/backend/internal/server/respond"
	"testhub/backend/internal/session"
)

const bearerPrefix = "bearer "

// Auth validates the Bearer access token and checks that the session it names
// is still live: a destroyed session kills the token regardless of its
// remaining JWT lifetime. Paths in publicPaths (login, register) pass through
// without a token. On success the identity and client IP land in the request
// context.
func Auth(tokens *security.TokenProvider, sessions session.Store, publicPaths map[string]bool, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClientIP(r.Context(), clientIP(r))
			r = r.WithContext(ctx)

			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			token := extractBearer(r)
			if token == "" {
				respond.Error(w, log, apperr.Unauthorized("missing or invalid authorization"))
				return
			}
			claims, err := tokens.ValidateAccess(token)
			if err != nil {
				respond.Error(w, log, apperr.Unauthorized("missing or invalid authorization"))
				return
			}
			live, err := sessions.Exists(ctx, claims.UserID, claims.SessionID)
			if err != nil {
				respond.Error(w, log, apperr.Internal(err))
				return
			}
			if !live {
				respond.Error(w, log, apperr.Unauthorized("session expired"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, claims.UserID, claims.SessionID)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
