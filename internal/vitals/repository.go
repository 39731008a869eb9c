package vitals

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertBatch stores the observations from one measurement event. Rows are
// written inside a transaction so a measurement event is recorded whole or
// not at all.
func (r *Repository) InsertBatch(ctx context.Context, observations []Observation) ([]Observation, error) {
	if len(observations) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("vitals: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]Observation, 0, len(observations))
	for _, o := range observations {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vitals (id, encounter_id, patient_id, code, value, units, abnormal, observed_at, recorder_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, o.EncounterID, o.PatientID, o.Code, o.Value, o.Units, o.Abnormal, o.ObservedAt, o.RecorderID)
		if err != nil {
			return nil, fmt.Errorf("vitals: insert %s: %w", o.Code, err)
		}
		out = append(out, o)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("vitals: commit: %w", err)
	}
	return out, nil
}

// ListByEncounter returns all observations for an encounter, oldest first.
func (r *Repository) ListByEncounter(ctx context.Context, encounterID string) ([]Observation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, encounter_id, patient_id, code, value, units, abnormal, observed_at, recorder_id
		FROM vitals WHERE encounter_id = $1 ORDER BY observed_at ASC`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("vitals: list: %w", err)
	}
	defer rows.Close()

	out := []Observation{}
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.EncounterID, &o.PatientID, &o.Code, &o.Value,
			&o.Units, &o.Abnormal, &o.ObservedAt, &o.RecorderID); err != nil {
			return nil, fmt.Errorf("vitals: scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
