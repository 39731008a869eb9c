package patients

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/occuhealth/ehr-platform/internal/audit"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

type fakeRepo struct {
	mu       sync.Mutex
	byID     map[string]*Patient
	mrnTaken map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*Patient{}, mrnTaken: map[string]bool{}}
}

func (r *fakeRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mrnTaken[p.MRN] {
		return ErrDuplicateMRN
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.byID[p.ID] = &cp
	r.mrnTaken[p.MRN] = true
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, _ ListFilter) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Patient{}
	for _, p := range r.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakeRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok, nil
}

type trailEvent struct {
	action       audit.Action
	resourceType string
	resourceID   string
}

type recordingTrail struct {
	events []trailEvent
}

func (t *recordingTrail) Log(_ context.Context, _ *auth.Context, action audit.Action, resourceType, resourceID string, _ any) {
	t.events = append(t.events, trailEvent{action, resourceType, resourceID})
}

func (t *recordingTrail) LogPHIAccess(_ context.Context, _ *auth.Context, resourceType, resourceID, _ string) {
	t.events = append(t.events, trailEvent{audit.ActionPHIAccess, resourceType, resourceID})
}

func (t *recordingTrail) LogAccessDenied(_ context.Context, _ *auth.Context, resourceType, resourceID, _ string) {
	t.events = append(t.events, trailEvent{audit.ActionAccessDenied, resourceType, resourceID})
}

func (t *recordingTrail) has(action audit.Action) bool {
	for _, e := range t.events {
		if e.action == action {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *fakeRepo, *recordingTrail) {
	repo := newFakeRepo()
	trail := &recordingTrail{}
	return NewService(repo, trail, logging.Default()), repo, trail
}

func TestCreatePatient(t *testing.T) {
	svc, _, trail := newTestService()
	actor := auth.NewContext("desk-1", auth.RoleFrontDesk)

	p, err := svc.Create(context.Background(), actor, &CreateInput{
		MRN:       "MRN-0001",
		FirstName: "Dana",
		LastName:  "Reyes",
		Employer:  "Acme Freight",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "MRN-0001", p.MRN)
	assert.True(t, trail.has(audit.ActionPatientCreate))
}

func TestCreatePatientMissingFields(t *testing.T) {
	svc, _, _ := newTestService()
	actor := auth.NewContext("desk-1", auth.RoleFrontDesk)

	_, err := svc.Create(context.Background(), actor, &CreateInput{Email: "not-an-email"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "mrn")
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "last_name")
	assert.Contains(t, verr.Fields, "email")
}

func TestCreatePatientDuplicateMRN(t *testing.T) {
	svc, _, _ := newTestService()
	actor := auth.NewContext("desk-1", auth.RoleFrontDesk)

	in := &CreateInput{MRN: "MRN-0001", FirstName: "Dana", LastName: "Reyes"}
	_, err := svc.Create(context.Background(), actor, in)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "mrn")
}

func TestGetPatientLogsPHIAccess(t *testing.T) {
	svc, repo, trail := newTestService()
	actor := auth.NewContext("nurse-1", auth.RoleNurse)

	p := &Patient{MRN: "MRN-0002", FirstName: "Sam", LastName: "Okafor"}
	require.NoError(t, repo.Create(context.Background(), p))

	got, err := svc.Get(context.Background(), actor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okafor", got.LastName)
	assert.True(t, trail.has(audit.ActionPHIAccess))
}

func TestGetPatientNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	actor := auth.NewContext("nurse-1", auth.RoleNurse)

	_, err := svc.Get(context.Background(), actor, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePatientWithoutPermission(t *testing.T) {
	svc, repo, trail := newTestService()
	p := &Patient{MRN: "MRN-0003", FirstName: "Lee", LastName: "Moran"}
	require.NoError(t, repo.Create(context.Background(), p))

	// Safety officers have no registry edit permission.
	actor := auth.NewContext("safety-1", auth.RoleSafetyOfficer)
	phone := "555-0100"
	_, err := svc.Update(context.Background(), actor, p.ID, &Patch{Phone: &phone})

	var ferr *ForbiddenError
	require.ErrorAs(t, err, &ferr)
	assert.True(t, trail.has(audit.ActionAccessDenied))
	assert.False(t, trail.has(audit.ActionPatientUpdate))
}

func TestUpdatePatient(t *testing.T) {
	svc, repo, trail := newTestService()
	actor := auth.NewContext("desk-1", auth.RoleFrontDesk)

	p := &Patient{MRN: "MRN-0004", FirstName: "Ana", LastName: "Silva", Employer: "Acme Freight"}
	require.NoError(t, repo.Create(context.Background(), p))

	employer := "Northside Logistics"
	updated, err := svc.Update(context.Background(), actor, p.ID, &Patch{Employer: &employer})
	require.NoError(t, err)
	assert.Equal(t, employer, updated.Employer)
	assert.True(t, trail.has(audit.ActionPatientUpdate))
}

func TestUpdatePatientEmptyPatch(t *testing.T) {
	svc, repo, _ := newTestService()
	actor := auth.NewContext("desk-1", auth.RoleFrontDesk)

	p := &Patient{MRN: "MRN-0005", FirstName: "Kim", LastName: "Doyle"}
	require.NoError(t, repo.Create(context.Background(), p))

	_, err := svc.Update(context.Background(), actor, p.ID, &Patch{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "patch")
}

func TestUnauthenticatedPatientAccess(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.List(context.Background(), nil, ListFilter{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
