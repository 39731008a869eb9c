package encounter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository for tests and local
// development. It honors the same optimistic versioning contract as the
// Postgres implementation.
type InMemoryRepository struct {
	mu         sync.RWMutex
	encounters map[string]Encounter
	amendments map[string][]Amendment
	signatures map[string][]Signature
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		encounters: make(map[string]Encounter),
		amendments: make(map[string][]Amendment),
		signatures: make(map[string][]Signature),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, e *Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now
	r.encounters[e.ID] = *e
	return nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.encounters[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) ([]Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Encounter{}
	for _, e := range r.encounters {
		if filter.PatientID != "" && e.PatientID != filter.PatientID {
			continue
		}
		if filter.ProviderID != "" && e.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, e *Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(e)
}

func (r *InMemoryRepository) updateLocked(e *Encounter) error {
	current, ok := r.encounters[e.ID]
	if !ok || current.Version != e.Version {
		return ErrVersionConflict
	}
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	r.encounters[e.ID] = *e
	return nil
}

func (r *InMemoryRepository) Amend(_ context.Context, e *Encounter, a *Amendment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.updateLocked(e); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.amendments[a.EncounterID] = append(r.amendments[a.EncounterID], *a)
	return nil
}

func (r *InMemoryRepository) ListAmendments(_ context.Context, encounterID string) ([]Amendment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Amendment, len(r.amendments[encounterID]))
	copy(out, r.amendments[encounterID])
	return out, nil
}

func (r *InMemoryRepository) AddSignature(_ context.Context, e *Encounter, sig *Signature) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.updateLocked(e); err != nil {
		return err
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	r.signatures[sig.EncounterID] = append(r.signatures[sig.EncounterID], *sig)
	return nil
}

func (r *InMemoryRepository) GetSignature(_ context.Context, encounterID string) (*Signature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sigs := r.signatures[encounterID]
	if len(sigs) == 0 {
		return nil, nil
	}
	sig := sigs[len(sigs)-1]
	return &sig, nil
}
