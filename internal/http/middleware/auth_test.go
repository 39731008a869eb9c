package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/sessions"
)

const testSecret = "test-secret"

func newSessionStore(t *testing.T) (*sessions.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return sessions.NewStore(client, time.Hour), mr
}

func authedRequest(t *testing.T, store *sessions.Store) (*http.Request, *sessions.Session) {
	t.Helper()
	sess, err := store.Create(context.Background(), "user-1", auth.RoleProvider)
	require.NoError(t, err)
	token, err := sessions.IssueToken(testSecret, sess)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/encounters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, sess
}

func TestAuthenticate(t *testing.T) {
	store, _ := newSessionStore(t)

	var gotActor *auth.Context
	handler := Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = auth.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req, sess := authedRequest(t, store)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotActor)
	assert.Equal(t, sess.UserID, gotActor.UserID)
	assert.Equal(t, auth.RoleProvider, gotActor.Role)
	assert.True(t, gotActor.Can(auth.PermSignEncounters))
}

func TestAuthenticateMissingHeader(t *testing.T) {
	store, _ := newSessionStore(t)

	handler := Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/encounters", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateBadToken(t *testing.T) {
	store, _ := newSessionStore(t)

	handler := Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/encounters", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRevokedSession(t *testing.T) {
	store, _ := newSessionStore(t)

	handler := Authenticate(testSecret, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req, sess := authedRequest(t, store)
	require.NoError(t, store.Delete(context.Background(), sess.ID))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "valid signature must not survive revocation")
}

func TestRequirePermission(t *testing.T) {
	handler := RequirePermission(auth.PermViewAuditLog)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("granted", func(t *testing.T) {
		actor := auth.NewContext("safety-1", auth.RoleSafetyOfficer)
		req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		actor := auth.NewContext("desk-1", auth.RoleFrontDesk)
		req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
