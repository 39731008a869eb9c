// Package encounter implements the clinical encounter lifecycle: creation,
// field edits, vitals capture, submission, signing, amendment, and voiding,
// with every mutation gated by the status state machine and recorded in the
// audit trail.
package encounter

import "time"

// Status is the lifecycle state of an encounter.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusInProgress    Status = "in-progress"
	StatusPendingReview Status = "pending-review"
	StatusCompleted     Status = "completed"
	StatusSigned        Status = "signed"
	StatusLocked        Status = "locked"
	StatusAmended       Status = "amended"
	StatusVoided        Status = "voided"
)

// Type is the kind of visit.
type Type string

const (
	TypeOfficeVisit   Type = "office-visit"
	TypeDOTPhysical   Type = "dot-physical"
	TypeDrugScreen    Type = "drug-screen"
	TypeOSHAInjury    Type = "osha-injury"
	TypeWorkersComp   Type = "workers-comp"
	TypePreEmployment Type = "pre-employment"
	TypeFollowUp      Type = "follow-up"
)

// EncounterTypes is the closed set of valid encounter types.
var EncounterTypes = map[Type]struct{}{
	TypeOfficeVisit:   {},
	TypeDOTPhysical:   {},
	TypeDrugScreen:    {},
	TypeOSHAInjury:    {},
	TypeWorkersComp:   {},
	TypePreEmployment: {},
	TypeFollowUp:      {},
}

// Priorities accepted on an encounter.
const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

// Encounter is a single clinical visit. Encounters are never deleted; they
// are voided. Version supports optimistic concurrency: every persisted
// update checks and increments it, so two racing transitions cannot both
// win.
type Encounter struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	ProviderID     string     `json:"provider_id"`
	CreatedBy      string     `json:"created_by"`
	Type           Type       `json:"type"`
	Status         Status     `json:"status"`
	Priority       string     `json:"priority"`
	ChiefComplaint string     `json:"chief_complaint"`
	Assessment     string     `json:"assessment"`
	Plan           string     `json:"plan"`
	OSHARecordable bool       `json:"osha_recordable"`
	DOTRelated     bool       `json:"dot_related"`
	OccurredAt     time.Time  `json:"occurred_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Amendment is an append-only post-signature correction. It never overwrites
// a prior amendment and is tied to exactly one encounter.
type Amendment struct {
	ID            string    `json:"id"`
	EncounterID   string    `json:"encounter_id"`
	Reason        string    `json:"reason"`
	ChangedFields []string  `json:"changed_fields"`
	AmendedBy     string    `json:"amended_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Signature records who attested a completed encounter. A signature is never
// replaced directly; corrections go through amendment.
type Signature struct {
	ID            string    `json:"id"`
	EncounterID   string    `json:"encounter_id"`
	SignerID      string    `json:"signer_id"`
	SignatureType string    `json:"signature_type"`
	SignedAt      time.Time `json:"signed_at"`
}
