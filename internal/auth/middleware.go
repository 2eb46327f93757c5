package auth

import (
	"context"
	"net/http"
	"strings"

	commonerrors "knowledge-hub/internal/common/errors"
	commonhttp "knowledge-hub/internal/common/http"
	"knowledge-hub/internal/common/logger"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter for websocket clients that cannot set
// headers.
func ExtractToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if strings.HasPrefix(raw, "Bearer ") {
		token := strings.TrimPrefix(raw, "Bearer ")
		if token != "" {
			return token, true
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

func Middleware(authenticator *Authenticator, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := ExtractToken(r)
			if !ok {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_missing_token",
				}).Warn("request rejected: missing token")
				commonhttp.HandleError(w, r, commonerrors.ErrTokenMissing, log)
				return
			}

			claims, err := authenticator.Verify(tokenString)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_verify_failed",
				}).Warnf("request rejected: %v", err)
				commonhttp.HandleError(w, r, err, log)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin gates a handler on the admin claim. It assumes Middleware ran
// first.
func RequireAdmin(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok || !claims.Admin {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_admin_required",
				}).Warn("request rejected: admin claim required")
				commonhttp.HandleError(w, r, commonerrors.ErrForbidden, log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}
