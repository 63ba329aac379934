package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
)

// publicPaths are paths that don't require authentication.
var publicPaths = map[string]bool{
	"/health":     true,
	"/metrics":    true,
	"/auth/login": true,
}

// Auth returns a middleware that authenticates requests. Public paths and
// CORS preflight requests are excluded.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeAuthError(w, err)
				return
			}

			noteIdentity(r.Context(), info)
			ctx := auth.WithAuthInfo(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects authenticated requests whose identity lacks
// permission with 403. Requests without identity get 401.
func RequirePermission(permission string, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := auth.FromContext(r.Context())
			if !ok {
				writeAuthError(w, auth.ErrUnauthenticated)
				return
			}
			if !info.HasPermission(permission) {
				noteDenied(r.Context(), permission)
				apiAuthRejectionsTotal.WithLabelValues("forbidden").Inc()
				logger.Warn("permission denied",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("subject", info.Subject),
					zap.String("permission", permission),
				)
				writeError(w, http.StatusForbidden, "missing permission: "+permission)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isPublicPath matches exact public paths and their sub-paths, but not paths
// that merely share a prefix (/healthXXX is not public).
func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}

	for p := range publicPaths {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}

	return false
}

// writeAuthError writes a 401 with a WWW-Authenticate header matching the
// failure.
func writeAuthError(w http.ResponseWriter, err error) {
	reason := "other"
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		reason = "unauthenticated"
		w.Header().Set("WWW-Authenticate", `Bearer, Basic realm="admin"`)
	case errors.Is(err, auth.ErrTokenExpired):
		reason = "token_expired"
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="token expired"`)
	case errors.Is(err, auth.ErrInvalidToken):
		reason = "invalid_token"
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	case errors.Is(err, auth.ErrInvalidCredentials):
		reason = "invalid_credentials"
		w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
	}
	apiAuthRejectionsTotal.WithLabelValues(reason).Inc()

	writeError(w, http.StatusUnauthorized, err.Error())
}
