package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/occuhealth/ehr-platform/internal/audit"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/internal/observability/metrics"
	"github.com/occuhealth/ehr-platform/internal/vitals"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Trail is the audit sink the service writes to. Implementations must never
// fail the caller; *audit.Service satisfies this.
type Trail interface {
	Log(ctx context.Context, actor *auth.Context, action audit.Action, resourceType, resourceID string, metadata any)
	LogPHIAccess(ctx context.Context, actor *auth.Context, resourceType, resourceID, accessType string)
	LogAccessDenied(ctx context.Context, actor *auth.Context, resourceType, resourceID, operation string)
}

// VitalsStore persists vital observations.
type VitalsStore interface {
	InsertBatch(ctx context.Context, observations []vitals.Observation) ([]vitals.Observation, error)
	ListByEncounter(ctx context.Context, encounterID string) ([]vitals.Observation, error)
}

// PatientDirectory resolves patient references on encounter creation.
type PatientDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	Repo     Repository
	Vitals   VitalsStore
	Patients PatientDirectory
	Trail    Trail
	Metrics  *metrics.EncounterMetrics
	Logger   *logging.Logger
}

// Service orchestrates every encounter operation: permission check, input
// validation, state-machine invariants, persistence, and audit.
type Service struct {
	repo     Repository
	vitals   VitalsStore
	patients PatientDirectory
	trail    Trail
	metrics  *metrics.EncounterMetrics
	logger   *logging.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     cfg.Repo,
		vitals:   cfg.Vitals,
		patients: cfg.Patients,
		trail:    cfg.Trail,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// authorize checks authentication and the required permission before any
// operation touches an encounter. A refused permission is itself audit-logged
// as an unauthorized access attempt.
func (s *Service) authorize(ctx context.Context, actor *auth.Context, perm, operation, resourceID string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.Can(perm) {
		s.trail.LogAccessDenied(ctx, actor, "encounter", resourceID, operation)
		s.metrics.ObserveRejection(operation, "forbidden")
		return &ForbiddenError{Permission: perm}
	}
	return nil
}

func (s *Service) observe(operation string, start time.Time) {
	s.metrics.ObserveLatency(operation, time.Since(start).Seconds())
}

func (s *Service) load(ctx context.Context, id string) (*Encounter, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Fields: map[string][]string{"id": {"encounter id is required"}}}
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load encounter %s: %w", id, err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// List returns encounters matching filter. The listing itself is a PHI read
// and is access-logged.
func (s *Service) List(ctx context.Context, actor *auth.Context, filter ListFilter) ([]Encounter, error) {
	if err := s.authorize(ctx, actor, auth.PermViewEncounters, "list", ""); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	s.trail.LogPHIAccess(ctx, actor, "encounter", "", "list")
	return out, nil
}

// Get returns one encounter and logs the PHI access.
func (s *Service) Get(ctx context.Context, actor *auth.Context, id string) (*Encounter, error) {
	if err := s.authorize(ctx, actor, auth.PermViewEncounters, "show", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.trail.LogPHIAccess(ctx, actor, "encounter", e.ID, "view")
	return e, nil
}

// Create stores a new draft encounter.
func (s *Service) Create(ctx context.Context, actor *auth.Context, in *CreateInput) (*Encounter, error) {
	defer s.observe("create", time.Now())
	if err := s.authorize(ctx, actor, auth.PermCreateEncounters, "create", ""); err != nil {
		return nil, err
	}

	errs := ValidateCreate(in)
	if len(errs) == 0 && s.patients != nil {
		exists, err := s.patients.Exists(ctx, in.PatientID)
		if err != nil {
			return nil, fmt.Errorf("resolve patient %s: %w", in.PatientID, err)
		}
		if !exists {
			errs["patient_id"] = append(errs["patient_id"], "patient does not exist")
		}
	}
	if len(errs) > 0 {
		s.metrics.ObserveRejection("create", "validation")
		return nil, &ValidationError{Fields: errs}
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityRoutine
	}
	providerID := in.ProviderID
	if providerID == "" {
		providerID = actor.UserID
	}

	e := &Encounter{
		PatientID:      in.PatientID,
		ProviderID:     providerID,
		CreatedBy:      actor.UserID,
		Type:           in.Type,
		Status:         StatusDraft,
		Priority:       priority,
		ChiefComplaint: in.ChiefComplaint,
		Assessment:     in.Assessment,
		Plan:           in.Plan,
		OSHARecordable: in.OSHARecordable,
		DOTRelated:     in.DOTRelated,
		OccurredAt:     occurredAt,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create encounter: %w", err)
	}

	s.trail.Log(ctx, actor, audit.ActionEncounterCreate, "encounter", e.ID, map[string]any{
		"type":       e.Type,
		"patient_id": e.PatientID,
	})
	return e, nil
}

// Update applies a field-level patch. A patch may also move the encounter
// through the workflow states (in-progress, pending-review, locked) when the
// transition table allows it; completion, signing, amendment, and voiding
// keep their dedicated operations. Signed, locked, and voided encounters
// reject field edits, but a signed one accepts a pure status patch to
// locked.
func (s *Service) Update(ctx context.Context, actor *auth.Context, id string, patch *Patch) (*Encounter, error) {
	defer s.observe("update", time.Now())
	if err := s.authorize(ctx, actor, auth.PermEditEncounters, "update", id); err != nil {
		return nil, err
	}
	if errs := ValidatePatch(patch); len(errs) > 0 {
		s.metrics.ObserveRejection("update", "validation")
		return nil, &ValidationError{Fields: errs}
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil && !CanTransition(e.Status, *patch.Status) {
		s.metrics.ObserveRejection("update", "invalid_transition")
		return nil, &ValidationError{Fields: map[string][]string{
			"status": {fmt.Sprintf("cannot move from %s to %s", e.Status, *patch.Status)},
		}}
	}
	if !Editable(e.Status) && !patch.StatusOnly() {
		s.metrics.ObserveRejection("update", "locked")
		return nil, &LockedError{Status: e.Status}
	}

	changed := patch.apply(e)
	from := e.Status
	if patch.Status != nil {
		e.Status = *patch.Status
		changed = append(changed, "status")
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	meta := map[string]any{"changed_fields": changed}
	if patch.Status != nil {
		s.metrics.ObserveTransition(string(from), string(e.Status))
		meta["from"] = from
		meta["to"] = e.Status
	}
	s.trail.Log(ctx, actor, audit.ActionEncounterUpdate, "encounter", e.ID, meta)
	return e, nil
}

// RecordVitals validates and stores one measurement event against an
// editable encounter.
func (s *Service) RecordVitals(ctx context.Context, actor *auth.Context, encounterID string, reading *vitals.Reading) ([]vitals.Observation, error) {
	if err := s.authorize(ctx, actor, auth.PermRecordVitals, "record_vitals", encounterID); err != nil {
		return nil, err
	}
	norm, errs := vitals.Validate(reading)
	if len(errs) > 0 {
		s.metrics.ObserveRejection("record_vitals", "validation")
		return nil, &ValidationError{Fields: errs}
	}

	e, err := s.load(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if !Editable(e.Status) {
		s.metrics.ObserveRejection("record_vitals", "locked")
		return nil, &LockedError{Status: e.Status}
	}

	observations := vitals.Observations(&norm, e.ID, e.PatientID, actor.UserID)
	stored, err := s.vitals.InsertBatch(ctx, observations)
	if err != nil {
		return nil, fmt.Errorf("record vitals: %w", err)
	}

	codes := make([]vitals.Code, 0, len(stored))
	for _, o := range stored {
		codes = append(codes, o.Code)
	}
	s.trail.Log(ctx, actor, audit.ActionVitalsRecord, "encounter", e.ID, map[string]any{
		"codes": codes,
	})
	return stored, nil
}

// ListVitals returns the observations recorded against an encounter.
func (s *Service) ListVitals(ctx context.Context, actor *auth.Context, encounterID string) ([]vitals.Observation, error) {
	if err := s.authorize(ctx, actor, auth.PermViewEncounters, "list_vitals", encounterID); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	out, err := s.vitals.ListByEncounter(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	s.trail.LogPHIAccess(ctx, actor, "vitals", e.ID, "list")
	return out, nil
}

// Submit moves an open encounter (draft, in-progress, or pending-review) to
// completed, after the completeness check. Submitting an already-completed
// encounter is rejected, not silently accepted.
func (s *Service) Submit(ctx context.Context, actor *auth.Context, id string) (*Encounter, error) {
	defer s.observe("submit", time.Now())
	if err := s.authorize(ctx, actor, auth.PermEditEncounters, "submit", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(e.Status, StatusCompleted) {
		s.metrics.ObserveRejection("submit", "invalid_transition")
		return nil, &TransitionError{From: e.Status, To: StatusCompleted}
	}
	if errs := validateCompleteness(e); len(errs) > 0 {
		s.metrics.ObserveRejection("submit", "validation")
		return nil, &ValidationError{Fields: errs}
	}

	from := e.Status
	e.Status = StatusCompleted
	if e.EndedAt == nil {
		now := time.Now().UTC()
		e.EndedAt = &now
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(StatusCompleted))
	s.trail.Log(ctx, actor, audit.ActionEncounterSubmit, "encounter", e.ID, map[string]any{
		"from": from,
	})
	return e, nil
}

// Sign attests a completed encounter. Only the assigned provider may sign,
// unless the actor holds the blanket sign permission. Re-signing after an
// amendment follows the same path from the amended state.
func (s *Service) Sign(ctx context.Context, actor *auth.Context, id, signatureType string) (*Encounter, error) {
	defer s.observe("sign", time.Now())
	if err := s.authorize(ctx, actor, auth.PermSignEncounters, "sign", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(e.Status, StatusSigned) {
		s.metrics.ObserveRejection("sign", "invalid_transition")
		return nil, &TransitionError{From: e.Status, To: StatusSigned}
	}
	if e.ProviderID != actor.UserID && !actor.Can(auth.PermSignAnyEncounter) {
		s.trail.LogAccessDenied(ctx, actor, "encounter", e.ID, "sign")
		s.metrics.ObserveRejection("sign", "forbidden")
		return nil, &ForbiddenError{Permission: auth.PermSignAnyEncounter}
	}

	if signatureType == "" {
		signatureType = "attestation"
	}
	sig := &Signature{
		EncounterID:   e.ID,
		SignerID:      actor.UserID,
		SignatureType: signatureType,
	}

	from := e.Status
	e.Status = StatusSigned
	if err := s.repo.AddSignature(ctx, e, sig); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(StatusSigned))
	s.trail.Log(ctx, actor, audit.ActionEncounterSign, "encounter", e.ID, map[string]any{
		"signature_id":   sig.ID,
		"signature_type": sig.SignatureType,
	})
	return e, nil
}

// AmendInput carries the amendment reason and the optional field changes to
// apply alongside it.
type AmendInput struct {
	Reason  string `json:"reason"`
	Changes Patch  `json:"changes"`
}

const minAmendReasonLen = 10

// Amend records an immutable amendment against a signed or locked
// encounter, optionally applying the changes to the live record, and moves
// it to the amended state.
func (s *Service) Amend(ctx context.Context, actor *auth.Context, id string, in *AmendInput) (*Encounter, error) {
	defer s.observe("amend", time.Now())
	if err := s.authorize(ctx, actor, auth.PermAmendEncounters, "amend", id); err != nil {
		return nil, err
	}

	errs := make(map[string][]string)
	if len(strings.TrimSpace(in.Reason)) < minAmendReasonLen {
		errs["reason"] = append(errs["reason"],
			fmt.Sprintf("amendment reason must be at least %d characters", minAmendReasonLen))
	}
	if in.Changes.Status != nil {
		errs["status"] = append(errs["status"], "an amendment cannot change status directly")
	} else if !in.Changes.Empty() {
		for field, msgs := range ValidatePatch(&in.Changes) {
			errs[field] = append(errs[field], msgs...)
		}
	}
	if len(errs) > 0 {
		s.metrics.ObserveRejection("amend", "validation")
		return nil, &ValidationError{Fields: errs}
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(e.Status, StatusAmended) {
		s.metrics.ObserveRejection("amend", "invalid_transition")
		return nil, &TransitionError{From: e.Status, To: StatusAmended}
	}

	changed := in.Changes.apply(e)
	if changed == nil {
		changed = []string{}
	}
	a := &Amendment{
		EncounterID:   e.ID,
		Reason:        strings.TrimSpace(in.Reason),
		ChangedFields: changed,
		AmendedBy:     actor.UserID,
	}

	from := e.Status
	e.Status = StatusAmended
	if err := s.repo.Amend(ctx, e, a); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(StatusAmended))
	s.trail.Log(ctx, actor, audit.ActionEncounterAmend, "encounter", e.ID, map[string]any{
		"amendment_id":   a.ID,
		"changed_fields": changed,
	})
	return e, nil
}

// Void retires an encounter without deleting it. Voided is terminal.
func (s *Service) Void(ctx context.Context, actor *auth.Context, id, reason string) (*Encounter, error) {
	defer s.observe("void", time.Now())
	if err := s.authorize(ctx, actor, auth.PermVoidEncounters, "void", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(e.Status, StatusVoided) {
		s.metrics.ObserveRejection("void", "invalid_transition")
		return nil, &TransitionError{From: e.Status, To: StatusVoided}
	}

	from := e.Status
	e.Status = StatusVoided
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(from), string(StatusVoided))
	s.trail.Log(ctx, actor, audit.ActionEncounterVoid, "encounter", e.ID, map[string]any{
		"reason": reason,
	})
	return e, nil
}

// ListAmendments returns the amendment history for an encounter.
func (s *Service) ListAmendments(ctx context.Context, actor *auth.Context, id string) ([]Amendment, error) {
	if err := s.authorize(ctx, actor, auth.PermViewEncounters, "list_amendments", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListAmendments(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list amendments: %w", err)
	}
	s.trail.LogPHIAccess(ctx, actor, "amendment", e.ID, "list")
	return out, nil
}

// Signature returns the active signature on a signed encounter, or nil.
func (s *Service) Signature(ctx context.Context, actor *auth.Context, id string) (*Signature, error) {
	if err := s.authorize(ctx, actor, auth.PermViewEncounters, "show_signature", id); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sig, err := s.repo.GetSignature(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("get signature: %w", err)
	}
	return sig, nil
}
