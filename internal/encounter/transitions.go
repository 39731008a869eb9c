package encounter

// allowedTransitions is the status state machine. An operation that changes
// status must pass CanTransition before anything is persisted. voided has no
// outgoing edges: a voided encounter stays voided.
var allowedTransitions = map[Status][]Status{
	StatusDraft:         {StatusInProgress, StatusCompleted, StatusVoided},
	StatusInProgress:    {StatusPendingReview, StatusCompleted, StatusVoided},
	StatusPendingReview: {StatusInProgress, StatusCompleted, StatusVoided},
	StatusCompleted:     {StatusInProgress, StatusSigned, StatusVoided},
	StatusSigned:        {StatusLocked, StatusAmended},
	StatusLocked:        {StatusAmended},
	StatusAmended:       {StatusSigned, StatusLocked},
	StatusVoided:        {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the legal next states for from.
func AllowedNext(from Status) []Status {
	next := allowedTransitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// updatableStatuses are the states an update patch may move an encounter
// into. Completion, signing, amendment, and voiding each have a dedicated
// operation with its own checks and are not reachable through a patch.
var updatableStatuses = map[Status]struct{}{
	StatusInProgress:    {},
	StatusPendingReview: {},
	StatusLocked:        {},
}

// UpdatableStatus reports whether an update patch may target s.
func UpdatableStatus(s Status) bool {
	_, ok := updatableStatuses[s]
	return ok
}

// Editable reports whether field-level edits are permitted in status. Once
// signed, locked, or voided, the only path to change is amendment.
func Editable(status Status) bool {
	switch status {
	case StatusSigned, StatusLocked, StatusVoided:
		return false
	}
	return true
}

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}
