package patients

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListFilter narrows patient listings. Search matches name, MRN, or
// employer, case-insensitively.
type ListFilter struct {
	Search   string
	Employer string
	Limit    int
	Offset   int
}

// Repository is the persistence contract for patients. GetByID returns
// (nil, nil) when the patient does not exist.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context, filter ListFilter) ([]Patient, error)
	Update(ctx context.Context, p *Patient) error
	Exists(ctx context.Context, id string) (bool, error)
}

const patientColumns = `id, mrn, first_name, last_name, date_of_birth, sex,
	phone, email, employer, job_title, department, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.DateOfBirth, p.Sex,
		p.Phone, p.Email, p.Employer, p.JobTitle, p.Department, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateMRN
		}
		return fmt.Errorf("patients: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("patients: get: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query += fmt.Sprintf(` AND (LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d
			OR LOWER(mrn) LIKE $%d OR LOWER(employer) LIKE $%d)`, argIdx, argIdx, argIdx, argIdx)
		args = append(args, pattern)
		argIdx++
	}
	if filter.Employer != "" {
		query += fmt.Sprintf(" AND LOWER(employer) = $%d", argIdx)
		args = append(args, strings.ToLower(filter.Employer))
		argIdx++
	}

	query += " ORDER BY last_name ASC, first_name ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	defer rows.Close()

	out := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients SET
			first_name = $1, last_name = $2, date_of_birth = $3, sex = $4,
			phone = $5, email = $6, employer = $7, job_title = $8, department = $9,
			updated_at = $10
		WHERE id = $11`,
		p.FirstName, p.LastName, p.DateOfBirth, p.Sex,
		p.Phone, p.Email, p.Employer, p.JobTitle, p.Department,
		p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("patients: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patients: update rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("patients: exists: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var dob sql.NullTime
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &dob, &p.Sex,
		&p.Phone, &p.Email, &p.Employer, &p.JobTitle, &p.Department, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	return &p, nil
}
