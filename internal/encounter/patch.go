package encounter

import "time"

// Patch is the explicit set of fields an update may change. Every field the
// service can modify is enumerated here; an unknown field in a request is a
// decode error, not a silent no-op.
type Patch struct {
	Status         *Status    `json:"status,omitempty"`
	Type           *Type      `json:"type,omitempty"`
	Priority       *string    `json:"priority,omitempty"`
	ProviderID     *string    `json:"provider_id,omitempty"`
	ChiefComplaint *string    `json:"chief_complaint,omitempty"`
	Assessment     *string    `json:"assessment,omitempty"`
	Plan           *string    `json:"plan,omitempty"`
	OSHARecordable *bool      `json:"osha_recordable,omitempty"`
	DOTRelated     *bool      `json:"dot_related,omitempty"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return p.Status == nil &&
		p.Type == nil &&
		p.Priority == nil &&
		p.ProviderID == nil &&
		p.ChiefComplaint == nil &&
		p.Assessment == nil &&
		p.Plan == nil &&
		p.OSHARecordable == nil &&
		p.DOTRelated == nil &&
		p.OccurredAt == nil &&
		p.StartedAt == nil &&
		p.EndedAt == nil
}

// StatusOnly reports whether the patch is a pure status change with no
// clinical field edits. Locking a signed encounter goes through such a patch.
func (p *Patch) StatusOnly() bool {
	if p.Status == nil {
		return false
	}
	rest := *p
	rest.Status = nil
	return rest.Empty()
}

// apply writes the patch onto e and returns the names of the fields that
// were set, for the audit record and for amendment tracking. Status is
// handled by the service, not here, because it needs the transition table.
func (p *Patch) apply(e *Encounter) []string {
	var changed []string
	if p.Type != nil {
		e.Type = *p.Type
		changed = append(changed, "type")
	}
	if p.Priority != nil {
		e.Priority = *p.Priority
		changed = append(changed, "priority")
	}
	if p.ProviderID != nil {
		e.ProviderID = *p.ProviderID
		changed = append(changed, "provider_id")
	}
	if p.ChiefComplaint != nil {
		e.ChiefComplaint = *p.ChiefComplaint
		changed = append(changed, "chief_complaint")
	}
	if p.Assessment != nil {
		e.Assessment = *p.Assessment
		changed = append(changed, "assessment")
	}
	if p.Plan != nil {
		e.Plan = *p.Plan
		changed = append(changed, "plan")
	}
	if p.OSHARecordable != nil {
		e.OSHARecordable = *p.OSHARecordable
		changed = append(changed, "osha_recordable")
	}
	if p.DOTRelated != nil {
		e.DOTRelated = *p.DOTRelated
		changed = append(changed, "dot_related")
	}
	if p.OccurredAt != nil {
		e.OccurredAt = *p.OccurredAt
		changed = append(changed, "occurred_at")
	}
	if p.StartedAt != nil {
		e.StartedAt = p.StartedAt
		changed = append(changed, "started_at")
	}
	if p.EndedAt != nil {
		e.EndedAt = p.EndedAt
		changed = append(changed, "ended_at")
	}
	return changed
}
