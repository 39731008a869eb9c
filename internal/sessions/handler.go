package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/internal/audit"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Trail is the audit sink for login and logout events.
type Trail interface {
	Log(ctx context.Context, actor *auth.Context, action audit.Action, resourceType, resourceID string, metadata any)
}

// Handler serves login and logout.
type Handler struct {
	users  UserDirectory
	store  *Store
	trail  Trail
	secret string
	logger *logging.Logger
}

func NewHandler(users UserDirectory, store *Store, trail Trail, secret string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{users: users, store: store, trail: trail, secret: secret, logger: logger}
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body: "+err.Error())
		return
	}
	if in.Username == "" || in.Password == "" {
		respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	user, err := Authenticate(r.Context(), h.users, in.Username, in.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		respond.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}
	if err != nil {
		h.logger.Error("sessions: login failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
		return
	}

	sess, err := h.store.Create(r.Context(), user.ID, user.Role)
	if err != nil {
		h.logger.Error("sessions: create session failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
		return
	}
	token, err := IssueToken(h.secret, sess)
	if err != nil {
		h.logger.Error("sessions: issue token failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
		return
	}

	actor := auth.NewContext(user.ID, user.Role)
	h.trail.Log(r.Context(), actor, audit.ActionLogin, "session", sess.ID, nil)

	respond.JSON(w, http.StatusOK, "login successful", map[string]any{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"role":       user.Role,
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	sessionID, _ := SessionIDFromContext(r.Context())
	if sessionID != "" {
		if err := h.store.Delete(r.Context(), sessionID); err != nil {
			h.logger.Error("sessions: delete session failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
			return
		}
	}
	h.trail.Log(r.Context(), actor, audit.ActionLogout, "session", sessionID, nil)
	respond.JSON(w, http.StatusOK, "logout successful", nil)
}
