// Package audit provides the HIPAA access/change trail for the EHR platform.
//
// Every mutating operation and every read of patient-identifiable data is
// recorded here. Writes are best-effort: a failed audit write is logged and
// counted but never fails the business operation that triggered it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/observability/metrics"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Action identifies what happened to a resource.
type Action string

const (
	ActionEncounterCreate Action = "encounter.create"
	ActionEncounterUpdate Action = "encounter.update"
	ActionEncounterSubmit Action = "encounter.submit"
	ActionEncounterSign   Action = "encounter.sign"
	ActionEncounterAmend  Action = "encounter.amend"
	ActionEncounterVoid   Action = "encounter.void"
	ActionVitalsRecord    Action = "vitals.record"
	ActionPatientCreate   Action = "patient.create"
	ActionPatientUpdate   Action = "patient.update"
	// ActionPHIAccess is logged on every read of patient-identifiable data.
	ActionPHIAccess Action = "phi.access"
	// ActionAccessDenied is logged when an authenticated actor is refused an
	// operation they lack permission for.
	ActionAccessDenied Action = "security.access_denied"
	ActionLogin        Action = "session.login"
	ActionLogout       Action = "session.logout"
)

// Event is an immutable audit record. Application code only ever appends;
// nothing updates or deletes rows in audit_events.
type Event struct {
	ID           string          `json:"id"`
	Action       Action          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	ActorID      string          `json:"actor_id,omitempty"`
	ActorRole    string          `json:"actor_role,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Service writes audit events to the database, with an optional flat-file
// JSONL mirror for local debugging.
type Service struct {
	db      *sql.DB
	logger  *logging.Logger
	metrics *metrics.AuditMetrics

	mirrorMu sync.Mutex
	mirror   io.Writer
}

// Option configures a Service.
type Option func(*Service)

// WithMirror adds a JSONL mirror sink; each event is appended as one line.
func WithMirror(w io.Writer) Option {
	return func(s *Service) { s.mirror = w }
}

// WithMetrics attaches audit counters.
func WithMetrics(m *metrics.AuditMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates an audit service.
func NewService(db *sql.DB, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{db: db, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log appends an audit event for actor. Failures are swallowed: they are
// logged through the fallback logger and counted, and the caller proceeds.
func (s *Service) Log(ctx context.Context, actor *auth.Context, action Action, resourceType, resourceID string, metadata any) {
	event := Event{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if actor != nil {
		event.ActorID = actor.UserID
		event.ActorRole = string(actor.Role)
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			s.logger.Warn("audit: metadata not serializable", "action", action, "error", err)
		} else {
			event.Metadata = raw
		}
	}

	if err := s.write(ctx, event); err != nil {
		s.metrics.ObserveFailure()
		s.logger.Error("audit: dropped event",
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
			"error", err,
		)
		return
	}
	s.metrics.ObserveRecord(string(action))
}

// LogPHIAccess records a read of patient-identifiable data. accessType names
// the kind of read, e.g. "view" or "list".
func (s *Service) LogPHIAccess(ctx context.Context, actor *auth.Context, resourceType, resourceID, accessType string) {
	s.Log(ctx, actor, ActionPHIAccess, resourceType, resourceID, map[string]string{
		"access_type": accessType,
	})
}

// LogAccessDenied records a refused operation for security review.
func (s *Service) LogAccessDenied(ctx context.Context, actor *auth.Context, resourceType, resourceID, operation string) {
	s.Log(ctx, actor, ActionAccessDenied, resourceType, resourceID, map[string]string{
		"operation": operation,
	})
}

func (s *Service) write(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, action, resource_type, resource_id, actor_id, actor_role, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Action,
		event.ResourceType,
		nullString(event.ResourceID),
		nullString(event.ActorID),
		nullString(event.ActorRole),
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}

	s.writeMirror(event)
	return nil
}

// writeMirror appends the event to the flat-file mirror. Mirror failures are
// logged only; the database row is the durable copy.
func (s *Service) writeMirror(event Event) {
	if s.mirror == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	if _, err := s.mirror.Write(append(line, '\n')); err != nil {
		s.logger.Warn("audit: mirror write failed", "error", err)
	}
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	ActorID      string
	ResourceType string
	ResourceID   string
	Action       Action
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit events matching filter, newest first.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, action, resource_type, resource_id, actor_id, actor_role, metadata, created_at
		FROM audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.ResourceType != "" {
		query += fmt.Sprintf(" AND resource_type = $%d", argIdx)
		args = append(args, filter.ResourceType)
		argIdx++
	}
	if filter.ResourceID != "" {
		query += fmt.Sprintf(" AND resource_id = $%d", argIdx)
		args = append(args, filter.ResourceID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var resourceID, actorID, actorRole sql.NullString
		err := rows.Scan(&e.ID, &e.Action, &e.ResourceType, &resourceID, &actorID, &actorRole, &e.Metadata, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.ResourceID = resourceID.String
		e.ActorID = actorID.String
		e.ActorRole = actorRole.String
		events = append(events, e)
	}

	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
