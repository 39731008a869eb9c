package encounter

import "testing"

var allStatuses = []Status{
	StatusDraft, StatusInProgress, StatusPendingReview, StatusCompleted,
	StatusSigned, StatusLocked, StatusAmended, StatusVoided,
}

func TestCanTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusInProgress},
		{StatusDraft, StatusCompleted},
		{StatusDraft, StatusVoided},
		{StatusInProgress, StatusPendingReview},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusVoided},
		{StatusPendingReview, StatusInProgress},
		{StatusPendingReview, StatusCompleted},
		{StatusCompleted, StatusInProgress}, // reopen before signing
		{StatusCompleted, StatusSigned},
		{StatusCompleted, StatusVoided},
		{StatusSigned, StatusLocked},
		{StatusSigned, StatusAmended},
		{StatusLocked, StatusAmended},
		{StatusAmended, StatusSigned},
		{StatusAmended, StatusLocked},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}
}

func TestCanTransitionRejectsEverythingElse(t *testing.T) {
	// Enumerate the complement of the table: every pair not explicitly
	// allowed must be rejected, including self-transitions.
	for _, from := range allStatuses {
		allowed := map[Status]bool{}
		for _, next := range AllowedNext(from) {
			allowed[next] = true
		}
		for _, to := range allStatuses {
			if allowed[to] {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestVoidedIsTerminal(t *testing.T) {
	for _, to := range allStatuses {
		if CanTransition(StatusVoided, to) {
			t.Errorf("voided must have no outgoing transition, got voided -> %s", to)
		}
	}
}

func TestNoPathBackToDraft(t *testing.T) {
	for _, from := range allStatuses {
		if CanTransition(from, StatusDraft) {
			t.Errorf("nothing may transition back to draft, got %s -> draft", from)
		}
	}
}

func TestUnknownStatusHasNoTransitions(t *testing.T) {
	if CanTransition(Status("bogus"), StatusDraft) {
		t.Error("unknown from-status must reject all transitions")
	}
	if CanTransition(StatusDraft, Status("bogus")) {
		t.Error("unknown to-status must be rejected")
	}
}

func TestEditable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusDraft, true},
		{StatusInProgress, true},
		{StatusPendingReview, true},
		{StatusCompleted, true},
		{StatusAmended, true},
		{StatusSigned, false},
		{StatusLocked, false},
		{StatusVoided, false},
	}
	for _, tt := range tests {
		if got := Editable(tt.status); got != tt.want {
			t.Errorf("Editable(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range allStatuses {
		if !ValidStatus(s) {
			t.Errorf("expected %s to be a valid status", s)
		}
	}
	if ValidStatus(Status("archived")) {
		t.Error("archived is not a lifecycle status")
	}
}

func TestUpdatableStatus(t *testing.T) {
	for _, s := range []Status{StatusInProgress, StatusPendingReview, StatusLocked} {
		if !UpdatableStatus(s) {
			t.Errorf("expected %s to be reachable through an update patch", s)
		}
	}
	for _, s := range []Status{StatusDraft, StatusCompleted, StatusSigned, StatusAmended, StatusVoided} {
		if UpdatableStatus(s) {
			t.Errorf("%s must not be reachable through an update patch", s)
		}
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := AllowedNext(StatusDraft)
	if len(next) == 0 {
		t.Fatal("draft must have next states")
	}
	next[0] = Status("tampered")
	if !CanTransition(StatusDraft, StatusInProgress) {
		t.Error("mutating the returned slice must not affect the table")
	}
}
