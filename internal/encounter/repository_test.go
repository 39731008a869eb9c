package encounter

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encounterRows(e *Encounter) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "patient_id", "provider_id", "created_by", "type", "status", "priority",
		"chief_complaint", "assessment", "plan", "osha_recordable", "dot_related",
		"occurred_at", "started_at", "ended_at", "version", "created_at", "updated_at",
	}).AddRow(
		e.ID, e.PatientID, e.ProviderID, e.CreatedBy, string(e.Type), string(e.Status), string(e.Priority),
		e.ChiefComplaint, e.Assessment, e.Plan, e.OSHARecordable, e.DOTRelated,
		e.OccurredAt, nil, nil, e.Version, e.CreatedAt, e.UpdatedAt,
	)
}

func TestPostgresCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO encounters").
		WithArgs(sqlmock.AnyArg(), "pat-1", "prov-1", "prov-1", "office-visit", "draft", "routine",
			"Chest tightness", "", "", false, false,
			sqlmock.AnyArg(), nil, nil, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	e := &Encounter{
		PatientID:      "pat-1",
		ProviderID:     "prov-1",
		CreatedBy:      "prov-1",
		Type:           TypeOfficeVisit,
		Status:         StatusDraft,
		Priority:       PriorityRoutine,
		ChiefComplaint: "Chest tightness",
		OccurredAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, e.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM encounters WHERE id").
		WithArgs("enc-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepository(db)
	got, err := repo.GetByID(context.Background(), "enc-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Zero rows affected means another writer bumped the version first.
	mock.ExpectExec("UPDATE encounters SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	e := &Encounter{ID: "enc-1", PatientID: "pat-1", Status: StatusDraft, Version: 3}
	err = repo.Update(context.Background(), e)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 3, e.Version, "version must not advance on conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE encounters SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	e := &Encounter{ID: "enc-1", PatientID: "pat-1", Status: StatusDraft, Version: 3}
	require.NoError(t, repo.Update(context.Background(), e))
	assert.Equal(t, 4, e.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAmendIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO amendments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE encounters SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(db)
	e := &Encounter{ID: "enc-1", PatientID: "pat-1", Status: StatusAmended, Version: 2}
	a := &Amendment{
		EncounterID:   "enc-1",
		Reason:        "Corrected assessment after chart review",
		ChangedFields: []string{"assessment"},
		AmendedBy:     "prov-1",
	}
	require.NoError(t, repo.Amend(context.Background(), e, a))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 3, e.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAmendRollsBackOnConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO amendments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE encounters SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewPostgresRepository(db)
	e := &Encounter{ID: "enc-1", Status: StatusAmended, Version: 2}
	a := &Amendment{EncounterID: "enc-1", Reason: "stale write", AmendedBy: "prov-1"}
	err = repo.Amend(context.Background(), e, a)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddSignature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO signatures").
		WithArgs(sqlmock.AnyArg(), "enc-1", "prov-1", "attestation", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE encounters SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(db)
	e := &Encounter{ID: "enc-1", Status: StatusSigned, Version: 4}
	sig := &Signature{EncounterID: "enc-1", SignerID: "prov-1", SignatureType: "attestation"}
	require.NoError(t, repo.AddSignature(context.Background(), e, sig))
	assert.NotEmpty(t, sig.ID)
	assert.False(t, sig.SignedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	e := &Encounter{
		ID: "enc-1", PatientID: "pat-1", ProviderID: "prov-1", CreatedBy: "prov-1",
		Type: TypeDrugScreen, Status: StatusCompleted, Priority: PriorityRoutine,
		OccurredAt: now, Version: 2, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("SELECT (.+) FROM encounters WHERE 1=1 AND patient_id = \\$1 AND status = \\$2").
		WithArgs("pat-1", "completed").
		WillReturnRows(encounterRows(e))

	repo := NewPostgresRepository(db)
	out, err := repo.List(context.Background(), ListFilter{PatientID: "pat-1", Status: StatusCompleted})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "enc-1", out[0].ID)
	assert.Equal(t, TypeDrugScreen, out[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSignatureNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM signatures WHERE encounter_id").
		WithArgs("enc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewPostgresRepository(db)
	sig, err := repo.GetSignature(context.Background(), "enc-1")
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.NoError(t, mock.ExpectationsWereMet())
}
