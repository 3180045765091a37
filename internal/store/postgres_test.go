package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxis-labs/veracity/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, legal_name, registration_number`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCompany(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCompanyField_UnknownField(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.UpdateCompanyField(context.Background(), "c1", "revenue", "1M")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE verification_runs SET status`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing-run", model.RunStatusFailed, "boom")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveRun_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM verification_runs WHERE company_id = \$1 AND status = \$2`).
		WithArgs("c1", "IN_PROGRESS").
		WillReturnError(pgx.ErrNoRows)

	run, err := s.ActiveRun(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_ScansResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	category := "LOW"
	resultJSON := []byte(`{"risk_score":15,"risk_category":"LOW","confidence":0.9,"confidence_level":"very_high","dns_verified":true,"email_valid":true,"phone_valid":true,"registration_consistency":1}`)

	rows := pgxmock.NewRows([]string{"id", "company_id", "risk_score", "risk_category", "status", "error", "result", "started_at", "completed_at", "created_at", "updated_at"}).
		AddRow("r1", "c1", 15, &category, model.RunStatusCompleted, (*string)(nil), resultJSON, &now, &now, now, now)

	mock.ExpectQuery(`SELECT .+ FROM verification_runs WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RiskLow, run.RiskCategory)
	require.NotNil(t, run.Result)
	assert.True(t, run.Result.DNSVerified)
	assert.Equal(t, 15, run.Result.RiskScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedCollection_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM collection_cache`).
		WithArgs("registry:unknown").
		WillReturnError(pgx.ErrNoRows)

	data, err := s.GetCachedCollection(context.Background(), "registry:unknown")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedCollection(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO collection_cache`).
		WithArgs(pgxmock.AnyArg(), "registry:acme", []byte("payload"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedCollection(context.Background(), "registry:acme", []byte("payload"), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApplyCorrection_RollsBackOnMissingDataPoint(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE companies SET email`).
		WithArgs("new@x.com", pgxmock.AnyArg(), "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE data_points SET field_value`).
		WithArgs("new@x.com", pgxmock.AnyArg(), "dp-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	corr := &model.Correction{
		ID:          "corr1",
		CompanyID:   "c1",
		DataPointID: "dp-missing",
		FieldName:   model.FieldEmail,
		NewValue:    "new@x.com",
	}
	err := s.ApplyCorrection(context.Background(), corr)
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ApplyCorrection_CommitsAllWrites(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE companies SET phone`).
		WithArgs("+14155550123", pgxmock.AnyArg(), "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE corrections SET status`).
		WithArgs("APPROVED", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "corr1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	corr := &model.Correction{
		ID:        "corr1",
		CompanyID: "c1",
		FieldName: model.FieldPhone,
		NewValue:  "+14155550123",
	}
	err := s.ApplyCorrection(context.Background(), corr)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
