package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/occuhealth/ehr-platform/internal/api/respond"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Handler exposes the audit trail query endpoint for compliance review.
// Mount behind the view_audit_log permission.
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

// GET /api/audit
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		ActorID:      q.Get("actor_id"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Action:       Action(q.Get("action")),
		Limit:        100,
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if startStr := q.Get("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "start must be RFC3339")
			return
		}
		filter.StartTime = start
	}
	if endStr := q.Get("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "end must be RFC3339")
			return
		}
		filter.EndTime = end
	}

	events, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit handler: query failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "SERVER_ERROR", "an internal error occurred")
		return
	}
	respond.JSON(w, http.StatusOK, "audit events retrieved", map[string]any{
		"events": events,
		"count":  len(events),
	})
}
