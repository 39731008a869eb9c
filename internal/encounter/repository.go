package encounter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListFilter narrows encounter listings.
type ListFilter struct {
	PatientID  string
	ProviderID string
	Status     Status
	Type       Type
	Limit      int
	Offset     int
}

// Repository is the persistence contract for encounters. GetByID returns
// (nil, nil) when the encounter does not exist.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id string) (*Encounter, error)
	List(ctx context.Context, filter ListFilter) ([]Encounter, error)
	// Update persists e, checking and incrementing its version. A stale
	// version returns ErrVersionConflict and writes nothing.
	Update(ctx context.Context, e *Encounter) error
	// Amend atomically records the amendment and persists the amended
	// encounter; a stale version returns ErrVersionConflict.
	Amend(ctx context.Context, e *Encounter, a *Amendment) error
	ListAmendments(ctx context.Context, encounterID string) ([]Amendment, error)
	// AddSignature atomically records the signature and persists the signed
	// encounter.
	AddSignature(ctx context.Context, e *Encounter, sig *Signature) error
	GetSignature(ctx context.Context, encounterID string) (*Signature, error)
}

const encounterColumns = `id, patient_id, provider_id, created_by, type, status, priority,
	chief_complaint, assessment, plan, osha_recordable, dot_related,
	occurred_at, started_at, ended_at, version, created_at, updated_at`

// PostgresRepository persists encounters in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *Encounter) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO encounters (`+encounterColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		e.ID, e.PatientID, e.ProviderID, e.CreatedBy, e.Type, e.Status, e.Priority,
		e.ChiefComplaint, e.Assessment, e.Plan, e.OSHARecordable, e.DOTRelated,
		e.OccurredAt, e.StartedAt, e.EndedAt, e.Version, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("encounter: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Encounter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+encounterColumns+` FROM encounters WHERE id = $1`, id)
	e, err := scanEncounter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("encounter: get: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Encounter, error) {
	query := `SELECT ` + encounterColumns + ` FROM encounters WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filter.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIdx)
		args = append(args, filter.PatientID)
		argIdx++
	}
	if filter.ProviderID != "" {
		query += fmt.Sprintf(" AND provider_id = $%d", argIdx)
		args = append(args, filter.ProviderID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, filter.Type)
		argIdx++
	}

	query += " ORDER BY occurred_at DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("encounter: list: %w", err)
	}
	defer rows.Close()

	out := []Encounter{}
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, fmt.Errorf("encounter: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, e *Encounter) error {
	return r.update(ctx, r.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// update writes the encounter with an optimistic version check: the WHERE
// clause matches the version the caller loaded, so a concurrent writer makes
// this a zero-row update instead of a lost update.
func (r *PostgresRepository) update(ctx context.Context, ex execer, e *Encounter) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := ex.ExecContext(ctx, `
		UPDATE encounters SET
			patient_id = $1, provider_id = $2, type = $3, status = $4, priority = $5,
			chief_complaint = $6, assessment = $7, plan = $8,
			osha_recordable = $9, dot_related = $10,
			occurred_at = $11, started_at = $12, ended_at = $13,
			version = version + 1, updated_at = $14
		WHERE id = $15 AND version = $16`,
		e.PatientID, e.ProviderID, e.Type, e.Status, e.Priority,
		e.ChiefComplaint, e.Assessment, e.Plan,
		e.OSHARecordable, e.DOTRelated,
		e.OccurredAt, e.StartedAt, e.EndedAt,
		e.UpdatedAt, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("encounter: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("encounter: update rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	e.Version++
	return nil
}

func (r *PostgresRepository) Amend(ctx context.Context, e *Encounter, a *Amendment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("encounter: amend begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO amendments (id, encounter_id, reason, changed_fields, amended_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.EncounterID, a.Reason, pq.Array(a.ChangedFields), a.AmendedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("encounter: insert amendment: %w", err)
	}

	if err := r.update(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("encounter: amend commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAmendments(ctx context.Context, encounterID string) ([]Amendment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, encounter_id, reason, changed_fields, amended_by, created_at
		FROM amendments WHERE encounter_id = $1 ORDER BY created_at ASC`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("encounter: list amendments: %w", err)
	}
	defer rows.Close()

	out := []Amendment{}
	for rows.Next() {
		var a Amendment
		if err := rows.Scan(&a.ID, &a.EncounterID, &a.Reason, pq.Array(&a.ChangedFields), &a.AmendedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("encounter: scan amendment: %w", err)
		}
		if a.ChangedFields == nil {
			a.ChangedFields = []string{}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddSignature(ctx context.Context, e *Encounter, sig *Signature) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("encounter: sign begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO signatures (id, encounter_id, signer_id, signature_type, signed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sig.ID, sig.EncounterID, sig.SignerID, sig.SignatureType, sig.SignedAt)
	if err != nil {
		return fmt.Errorf("encounter: insert signature: %w", err)
	}

	if err := r.update(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("encounter: sign commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSignature(ctx context.Context, encounterID string) (*Signature, error) {
	var sig Signature
	err := r.db.QueryRowContext(ctx, `
		SELECT id, encounter_id, signer_id, signature_type, signed_at
		FROM signatures WHERE encounter_id = $1
		ORDER BY signed_at DESC LIMIT 1`, encounterID).
		Scan(&sig.ID, &sig.EncounterID, &sig.SignerID, &sig.SignatureType, &sig.SignedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("encounter: get signature: %w", err)
	}
	return &sig, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEncounter(row rowScanner) (*Encounter, error) {
	var e Encounter
	var startedAt, endedAt sql.NullTime
	err := row.Scan(&e.ID, &e.PatientID, &e.ProviderID, &e.CreatedBy, &e.Type, &e.Status, &e.Priority,
		&e.ChiefComplaint, &e.Assessment, &e.Plan, &e.OSHARecordable, &e.DOTRelated,
		&e.OccurredAt, &startedAt, &endedAt, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		e.EndedAt = &endedAt.Time
	}
	return &e, nil
}
