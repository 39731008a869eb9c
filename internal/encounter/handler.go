package encounter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/vitals"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Handler exposes the encounter service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// GET /api/encounters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	filter := ListFilter{Limit: 50}
	q := r.URL.Query()
	filter.PatientID = q.Get("patient_id")
	filter.ProviderID = q.Get("provider_id")
	filter.Status = Status(q.Get("status"))
	filter.Type = Type(q.Get("type"))
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	encounters, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounters retrieved", map[string]any{
		"encounters": encounters,
		"count":      len(encounters),
	})
}

// GET /api/encounters/{encounterID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	e, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "encounterID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter retrieved", e)
}

// POST /api/encounters
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.Create(r.Context(), actor, &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "encounter created", e)
}

// PATCH /api/encounters/{encounterID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var patch Patch
	if !h.decode(w, r, &patch) {
		return
	}
	e, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "encounterID"), &patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter updated", e)
}

// POST /api/encounters/{encounterID}/vitals
func (h *Handler) RecordVitals(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var reading vitals.Reading
	if !h.decode(w, r, &reading) {
		return
	}
	observations, err := h.service.RecordVitals(r.Context(), actor, chi.URLParam(r, "encounterID"), &reading)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "vitals recorded", map[string]any{
		"observations": observations,
		"count":        len(observations),
	})
}

// GET /api/encounters/{encounterID}/vitals
func (h *Handler) ListVitals(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	observations, err := h.service.ListVitals(r.Context(), actor, chi.URLParam(r, "encounterID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "vitals retrieved", map[string]any{
		"observations": observations,
		"count":        len(observations),
	})
}

// POST /api/encounters/{encounterID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	e, err := h.service.Submit(r.Context(), actor, chi.URLParam(r, "encounterID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter submitted", e)
}

// POST /api/encounters/{encounterID}/sign
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in struct {
		SignatureType string `json:"signature_type"`
	}
	if r.ContentLength > 0 && !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.Sign(r.Context(), actor, chi.URLParam(r, "encounterID"), in.SignatureType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter signed", e)
}

// POST /api/encounters/{encounterID}/amend
func (h *Handler) Amend(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in AmendInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.Amend(r.Context(), actor, chi.URLParam(r, "encounterID"), &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter amended", e)
}

// POST /api/encounters/{encounterID}/void
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 && !h.decode(w, r, &in) {
		return
	}
	e, err := h.service.Void(r.Context(), actor, chi.URLParam(r, "encounterID"), in.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "encounter voided", e)
}

// GET /api/encounters/{encounterID}/amendments
func (h *Handler) ListAmendments(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	amendments, err := h.service.ListAmendments(r.Context(), actor, chi.URLParam(r, "encounterID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "amendments retrieved", map[string]any{
		"amendments": amendments,
		"count":      len(amendments),
	})
}

// GET /api/encounters/{encounterID}/signature
func (h *Handler) GetSignature(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	sig, err := h.service.Signature(r.Context(), actor, chi.URLParam(r, "encounterID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if sig == nil {
		respond.Error(w, http.StatusNotFound, "NOT_FOUND", "encounter has no signature")
		return
	}
	respond.JSON(w, http.StatusOK, "signature retrieved", sig)
}

// decode parses the request body strictly: unknown fields are a client
// error, never a silent no-op.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeError maps the service error taxonomy onto HTTP status codes.
// Anything outside the taxonomy is logged with full context and surfaced as
// a generic server error.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		forbiddenErr  *ForbiddenError
		validationErr *ValidationError
		transitionErr *TransitionError
		lockedErr     *LockedError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.As(err, &forbiddenErr):
		respond.Error(w, http.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action")
	case errors.As(err, &validationErr):
		respond.ErrorWithFields(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", validationErr.Fields)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "NOT_FOUND", "encounter not found")
	case errors.As(err, &transitionErr):
		respond.Error(w, http.StatusConflict, "INVALID_TRANSITION", transitionErr.Error())
	case errors.As(err, &lockedErr):
		respond.Error(w, http.StatusConflict, "ENCOUNTER_LOCKED", lockedErr.Error())
	case errors.Is(err, ErrVersionConflict):
		respond.Error(w, http.StatusConflict, "CONFLICT", "encounter was modified concurrently, reload and retry")
	default:
		h.logger.Error("encounter handler: internal error", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
	}
}
