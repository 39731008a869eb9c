package encounter

import (
	"fmt"
	"strings"
	"time"
)

// maxNarrativeLen caps free-text clinical fields so a single encounter
// cannot grow without bound.
const maxNarrativeLen = 4000

// Date sanity bounds for the encounter date.
const (
	maxFutureOffset = 365 * 24 * time.Hour
	maxPastOffset   = 10 * 365 * 24 * time.Hour
)

// CreateInput is the caller-supplied payload for a new encounter.
type CreateInput struct {
	PatientID      string    `json:"patient_id"`
	ProviderID     string    `json:"provider_id"`
	Type           Type      `json:"type"`
	Priority       string    `json:"priority"`
	ChiefComplaint string    `json:"chief_complaint"`
	Assessment     string    `json:"assessment"`
	Plan           string    `json:"plan"`
	OSHARecordable bool      `json:"osha_recordable"`
	DOTRelated     bool      `json:"dot_related"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ValidateCreate checks a create payload. The returned map is empty when the
// input is valid; each key names the offending field.
func ValidateCreate(in *CreateInput) map[string][]string {
	errs := make(map[string][]string)

	if strings.TrimSpace(in.PatientID) == "" {
		errs["patient_id"] = append(errs["patient_id"], "patient_id is required")
	}
	if strings.TrimSpace(string(in.Type)) == "" {
		errs["type"] = append(errs["type"], "type is required")
	} else if _, ok := EncounterTypes[in.Type]; !ok {
		errs["type"] = append(errs["type"], fmt.Sprintf("%q is not a valid encounter type", in.Type))
	}
	if in.Priority != "" {
		validatePriority(in.Priority, errs)
	}

	validateNarrative("chief_complaint", in.ChiefComplaint, errs)
	validateNarrative("assessment", in.Assessment, errs)
	validateNarrative("plan", in.Plan, errs)

	if !in.OccurredAt.IsZero() {
		validateOccurredAt(in.OccurredAt, errs)
	}

	return errs
}

// ValidatePatch checks an update payload against the same field rules as
// creation. Requiredness is not enforced here: a patch only validates the
// fields it sets.
func ValidatePatch(p *Patch) map[string][]string {
	errs := make(map[string][]string)

	if p.Empty() {
		errs["patch"] = append(errs["patch"], "no fields to update")
		return errs
	}

	if p.Status != nil {
		if !ValidStatus(*p.Status) {
			errs["status"] = append(errs["status"], fmt.Sprintf("%q is not a valid status", *p.Status))
		} else if !UpdatableStatus(*p.Status) {
			errs["status"] = append(errs["status"],
				fmt.Sprintf("status %q is set through its own operation, not an update", *p.Status))
		}
	}
	if p.Type != nil {
		if _, ok := EncounterTypes[*p.Type]; !ok {
			errs["type"] = append(errs["type"], fmt.Sprintf("%q is not a valid encounter type", *p.Type))
		}
	}
	if p.Priority != nil {
		validatePriority(*p.Priority, errs)
	}
	if p.ChiefComplaint != nil {
		validateNarrative("chief_complaint", *p.ChiefComplaint, errs)
	}
	if p.Assessment != nil {
		validateNarrative("assessment", *p.Assessment, errs)
	}
	if p.Plan != nil {
		validateNarrative("plan", *p.Plan, errs)
	}
	if p.OccurredAt != nil {
		validateOccurredAt(*p.OccurredAt, errs)
	}
	if p.StartedAt != nil && p.EndedAt != nil && p.EndedAt.Before(*p.StartedAt) {
		errs["ended_at"] = append(errs["ended_at"], "ended_at must not be before started_at")
	}

	return errs
}

// validateCompleteness enforces the minimum an encounter needs before it can
// be submitted for completion.
func validateCompleteness(e *Encounter) map[string][]string {
	errs := make(map[string][]string)
	if strings.TrimSpace(e.PatientID) == "" {
		errs["patient_id"] = append(errs["patient_id"], "patient_id is required before submission")
	}
	if strings.TrimSpace(e.ChiefComplaint) == "" {
		errs["chief_complaint"] = append(errs["chief_complaint"], "chief_complaint is required before submission")
	}
	return errs
}

func validateNarrative(field, value string, errs map[string][]string) {
	if len(value) > maxNarrativeLen {
		errs[field] = append(errs[field], fmt.Sprintf("%s exceeds %d characters", field, maxNarrativeLen))
	}
}

func validatePriority(priority string, errs map[string][]string) {
	switch priority {
	case PriorityRoutine, PriorityUrgent, PriorityStat:
	default:
		errs["priority"] = append(errs["priority"], fmt.Sprintf("%q is not a valid priority", priority))
	}
}

func validateOccurredAt(at time.Time, errs map[string][]string) {
	now := time.Now()
	if at.After(now.Add(maxFutureOffset)) {
		errs["occurred_at"] = append(errs["occurred_at"], "encounter date is more than a year in the future")
	}
	if at.Before(now.Add(-maxPastOffset)) {
		errs["occurred_at"] = append(errs["occurred_at"], "encounter date is more than ten years in the past")
	}
}
