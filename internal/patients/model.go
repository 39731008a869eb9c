package patients

import "time"

// Patient is the demographic record encounters hang off of. Occupational
// health fields (employer, job title, department) ride along because DOT
// and OSHA paperwork needs them.
type Patient struct {
	ID          string     `json:"id"`
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
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Patch carries a partial patient update. Nil fields are untouched.
type Patch struct {
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Sex         *string    `json:"sex,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Employer    *string    `json:"employer,omitempty"`
	JobTitle    *string    `json:"job_title,omitempty"`
	Department  *string    `json:"department,omitempty"`
}

func (p *Patch) Empty() bool {
	return p == nil || (p.FirstName == nil && p.LastName == nil && p.DateOfBirth == nil &&
		p.Sex == nil && p.Phone == nil && p.Email == nil &&
		p.Employer == nil && p.JobTitle == nil && p.Department == nil)
}

func (p *Patch) apply(patient *Patient) []string {
	var changed []string
	set := func(name string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed = append(changed, name)
		}
	}
	set("first_name", &patient.FirstName, p.FirstName)
	set("last_name", &patient.LastName, p.LastName)
	set("sex", &patient.Sex, p.Sex)
	set("phone", &patient.Phone, p.Phone)
	set("email", &patient.Email, p.Email)
	set("employer", &patient.Employer, p.Employer)
	set("job_title", &patient.JobTitle, p.JobTitle)
	set("department", &patient.Department, p.Department)
	if p.DateOfBirth != nil {
		patient.DateOfBirth = p.DateOfBirth
		changed = append(changed, "date_of_birth")
	}
	return changed
}
