package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/sessions"
)

// SessionGetter looks up the server-side session behind a token.
// sessions.Store satisfies it.
type SessionGetter interface {
	Get(ctx context.Context, id string) (*sessions.Session, error)
}

// Authenticate validates the bearer JWT and requires its session record to
// still exist, so revoked sessions fail immediately even with a valid
// signature. On success the actor is attached to the request context.
func Authenticate(secret string, store SessionGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims, err := sessions.ParseToken(secret, tokenString)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			sess, err := store.Get(r.Context(), claims.SessionID)
			if err != nil {
				respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
				return
			}
			if sess == nil || sess.UserID != claims.Subject {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "session expired or revoked")
				return
			}

			actor := auth.NewContext(sess.UserID, sess.Role)
			ctx := auth.WithActor(r.Context(), actor)
			ctx = sessions.WithSessionID(ctx, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects actors lacking perm. Mount inside Authenticate.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.ActorFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !actor.Can(perm) {
				respond.Error(w, http.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
