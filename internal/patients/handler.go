package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Handler exposes the patient registry over HTTP.
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

// GET /api/patients
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	filter := ListFilter{Limit: 50}
	q := r.URL.Query()
	filter.Search = q.Get("search")
	filter.Employer = q.Get("employer")
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

	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patients retrieved", map[string]any{
		"patients": list,
		"count":    len(list),
	})
}

// GET /api/patients/{patientID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	p, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "patientID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patient retrieved", p)
}

// POST /api/patients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.service.Create(r.Context(), actor, &in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "patient created", p)
}

// PATCH /api/patients/{patientID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var patch Patch
	if !h.decode(w, r, &patch) {
		return
	}
	p, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "patientID"), &patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "patient updated", p)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		forbiddenErr  *ForbiddenError
		validationErr *ValidationError
	)
	switch {
	case errors.Is(err, ErrUnauthorized):
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.As(err, &forbiddenErr):
		respond.Error(w, http.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action")
	case errors.As(err, &validationErr):
		respond.ErrorWithFields(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", validationErr.Fields)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "NOT_FOUND", "patient not found")
	default:
		h.logger.Error("patients handler: internal error", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
	}
}
