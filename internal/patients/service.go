package patients

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/occuhealth/ehr-platform/internal/audit"
	"github.com/occuhealth/ehr-platform/internal/auth"
	"github.com/occuhealth/ehr-platform/pkg/logging"
)

// Trail is the audit sink the service writes to. audit.Service satisfies it.
type Trail interface {
	Log(ctx context.Context, actor *auth.Context, action audit.Action, resourceType, resourceID string, metadata any)
	LogPHIAccess(ctx context.Context, actor *auth.Context, resourceType, resourceID, accessType string)
	LogAccessDenied(ctx context.Context, actor *auth.Context, resourceType, resourceID, operation string)
}

// CreateInput is the patient registration payload.
type CreateInput struct {
	MRN         string     `json:"mrn"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Sex         string     `json:"sex,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Employer    string     `json:"employer,omitempty"`
	JobTitle    string     `json:"job_title,omitempty"`
	Department  string     `json:"department,omitempty"`
}

// Service gates patient operations on permissions and records every PHI
// read in the audit trail.
type Service struct {
	repo   Repository
	trail  Trail
	logger *logging.Logger
}

func NewService(repo Repository, trail Trail, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, trail: trail, logger: logger}
}

func (s *Service) authorize(ctx context.Context, actor *auth.Context, perm, resourceID, operation string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.Can(perm) {
		s.trail.LogAccessDenied(ctx, actor, "patient", resourceID, operation)
		return &ForbiddenError{Permission: perm}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Context, in *CreateInput) (*Patient, error) {
	if err := s.authorize(ctx, actor, auth.PermEditPatients, "", "create"); err != nil {
		return nil, err
	}
	if fields := validateCreate(in); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	p := &Patient{
		MRN:         strings.TrimSpace(in.MRN),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DateOfBirth: in.DateOfBirth,
		Sex:         in.Sex,
		Phone:       in.Phone,
		Email:       in.Email,
		Employer:    in.Employer,
		JobTitle:    in.JobTitle,
		Department:  in.Department,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if err == ErrDuplicateMRN {
			return nil, &ValidationError{Fields: map[string][]string{
				"mrn": {"mrn is already registered"},
			}}
		}
		return nil, err
	}

	s.trail.Log(ctx, actor, audit.ActionPatientCreate, "patient", p.ID, map[string]any{
		"mrn": p.MRN,
	})
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Context, id string) (*Patient, error) {
	if err := s.authorize(ctx, actor, auth.PermViewPatients, id, "view"); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	s.trail.LogPHIAccess(ctx, actor, "patient", p.ID, "view")
	return p, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Context, filter ListFilter) ([]Patient, error) {
	if err := s.authorize(ctx, actor, auth.PermViewPatients, "", "list"); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.trail.LogPHIAccess(ctx, actor, "patient", "", "list")
	return out, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.Context, id string, patch *Patch) (*Patient, error) {
	if err := s.authorize(ctx, actor, auth.PermEditPatients, id, "update"); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, &ValidationError{Fields: map[string][]string{
			"patch": {"no fields to update"},
		}}
	}
	if fields := validatePatch(patch); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	changed := patch.apply(p)
	if len(changed) == 0 {
		return p, nil
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.trail.Log(ctx, actor, audit.ActionPatientUpdate, "patient", p.ID, map[string]any{
		"changed_fields": changed,
	})
	return p, nil
}

func validateCreate(in *CreateInput) map[string][]string {
	fields := map[string][]string{}
	if strings.TrimSpace(in.MRN) == "" {
		fields["mrn"] = append(fields["mrn"], "mrn is required")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["first_name"] = append(fields["first_name"], "first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		fields["last_name"] = append(fields["last_name"], "last_name is required")
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(time.Now()) {
		fields["date_of_birth"] = append(fields["date_of_birth"], "date_of_birth cannot be in the future")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			fields["email"] = append(fields["email"], "email is not a valid address")
		}
	}
	return fields
}

func validatePatch(patch *Patch) map[string][]string {
	fields := map[string][]string{}
	if patch.FirstName != nil && strings.TrimSpace(*patch.FirstName) == "" {
		fields["first_name"] = append(fields["first_name"], "first_name cannot be blank")
	}
	if patch.LastName != nil && strings.TrimSpace(*patch.LastName) == "" {
		fields["last_name"] = append(fields["last_name"], "last_name cannot be blank")
	}
	if patch.DateOfBirth != nil && patch.DateOfBirth.After(time.Now()) {
		fields["date_of_birth"] = append(fields["date_of_birth"], "date_of_birth cannot be in the future")
	}
	if patch.Email != nil && *patch.Email != "" {
		if _, err := mail.ParseAddress(*patch.Email); err != nil {
			fields["email"] = append(fields["email"], "email is not a valid address")
		}
	}
	return fields
}
