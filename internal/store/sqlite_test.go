package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxis-labs/veracity/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCompany(t *testing.T, st *SQLiteStore) *model.Company {
	t.Helper()
	c := &model.Company{
		LegalName:          "Acme Corporation",
		RegistrationNumber: "REG-12345",
		Jurisdiction:       "DE",
		Domain:             "acme.example.com",
		Email:              "info@acme.example.com",
		Phone:              "+14155550123",
	}
	require.NoError(t, st.CreateCompany(context.Background(), c))
	return c
}

// --- Companies ---

func TestSQLite_Company_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedCompany(t, st)
	assert.NotEmpty(t, c.ID)

	got, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", got.LegalName)
	assert.Equal(t, "REG-12345", got.RegistrationNumber)
	assert.Equal(t, "acme.example.com", got.Domain)
}

func TestSQLite_Company_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetCompany(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestSQLite_Company_UpdateField(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	require.NoError(t, st.UpdateCompanyField(ctx, c.ID, model.FieldEmail, "new@acme.example.com"))

	got, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@acme.example.com", got.Email)
}

func TestSQLite_Company_UpdateUnknownField(t *testing.T) {
	st := newTestSQLiteStore(t)
	c := seedCompany(t, st)

	err := st.UpdateCompanyField(context.Background(), c.ID, "revenue", "1M")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestSQLite_Company_ListByJurisdiction(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedCompany(t, st)
	require.NoError(t, st.CreateCompany(ctx, &model.Company{LegalName: "Beta LLC", Jurisdiction: "UK"}))

	companies, err := st.ListCompanies(ctx, CompanyFilter{Jurisdiction: "UK"})
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Beta LLC", companies[0].LegalName)
}

// --- Verification runs ---

func TestSQLite_Run_CreateSetsInProgress(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	run, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusInProgress, run.Status)
	require.NotNil(t, run.StartedAt)
	assert.Nil(t, run.CompletedAt)
}

func TestSQLite_Run_SecondActiveRunConflicts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	_, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)

	_, err = st.CreateRun(ctx, c.ID)
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
}

func TestSQLite_Run_TerminalStatusSetsCompletedAt(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	run, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, "dns lookup failed"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "dns lookup failed", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_Run_UpdateResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	run, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)

	result := &model.RunResult{
		RiskScore:    22,
		RiskCategory: model.RiskLow,
		DNSVerified:  true,
		Confidence:   0.84,
	}
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, 22, got.RiskScore)
	assert.Equal(t, model.RiskLow, got.RiskCategory)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.DNSVerified)
	assert.InDelta(t, 0.84, got.Result.Confidence, 1e-9)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLite_Run_ActiveRunAfterCompletion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	run, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)

	active, err := st.ActiveRun(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, run.ID, active.ID)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusCompleted, ""))

	active, err = st.ActiveRun(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSQLite_Run_LatestRunOrdering(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	first, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, first.ID, model.RunStatusCompleted, ""))

	time.Sleep(5 * time.Millisecond)

	second, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)

	latest, err := st.LatestRun(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestSQLite_Run_LatestRunNone(t *testing.T) {
	st := newTestSQLiteStore(t)
	c := seedCompany(t, st)

	latest, err := st.LatestRun(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLite_Run_ListByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	run, err := st.CreateRun(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, "boom"))

	runs, err := st.ListRuns(ctx, RunFilter{CompanyID: c.ID, Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

// --- Data points ---

func TestSQLite_DataPoints_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	dps := []model.DataPoint{
		{CompanyID: c.ID, DataType: model.DataTypeContact, FieldName: "email", FieldValue: "info@acme.example.com", Source: "dns_lookup", ConfidenceScore: 0.7},
		{CompanyID: c.ID, DataType: model.DataTypeRegistration, FieldName: "registration_number", FieldValue: "REG-12345", Source: "official_registry", ConfidenceScore: 0.95, Verified: true},
	}
	require.NoError(t, st.SaveDataPoints(ctx, dps))

	all, err := st.ListDataPoints(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	reg, err := st.ListDataPoints(ctx, c.ID, model.DataTypeRegistration)
	require.NoError(t, err)
	require.Len(t, reg, 1)
	assert.Equal(t, "REG-12345", reg[0].FieldValue)
	assert.True(t, reg[0].Verified)
}

func TestSQLite_DataPoints_UpsertOnRerun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	dp := model.DataPoint{CompanyID: c.ID, DataType: model.DataTypeContact, FieldName: "email", FieldValue: "old@acme.example.com", Source: "web_scraping", ConfidenceScore: 0.5}
	require.NoError(t, st.SaveDataPoints(ctx, []model.DataPoint{dp}))

	dp.FieldValue = "new@acme.example.com"
	dp.ConfidenceScore = 0.6
	dp.ID = ""
	require.NoError(t, st.SaveDataPoints(ctx, []model.DataPoint{dp}))

	all, err := st.ListDataPoints(ctx, c.ID, model.DataTypeContact)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new@acme.example.com", all[0].FieldValue)
	assert.InDelta(t, 0.6, all[0].ConfidenceScore, 1e-9)
}

// --- Corrections ---

func TestSQLite_Correction_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	corr := &model.Correction{
		CompanyID:   c.ID,
		FieldName:   model.FieldEmail,
		OldValue:    "info@acme.example.com",
		NewValue:    "contact@acme.example.com",
		Status:      model.CorrectionPending,
		Version:     "1.0",
		CorrectedBy: "analyst@example.com",
		Metadata:    map[string]string{"ticket": "VR-42"},
	}
	require.NoError(t, st.CreateCorrection(ctx, corr))

	got, err := st.GetCorrection(ctx, corr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionPending, got.Status)
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, "VR-42", got.Metadata["ticket"])
	assert.Empty(t, got.PreviousCorrectionID)
}

func TestSQLite_Correction_LatestApproved(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	first := &model.Correction{CompanyID: c.ID, FieldName: model.FieldPhone, NewValue: "+14155550999", Status: model.CorrectionApproved, Version: "1.0"}
	require.NoError(t, st.CreateCorrection(ctx, first))

	time.Sleep(5 * time.Millisecond)

	second := &model.Correction{CompanyID: c.ID, FieldName: model.FieldPhone, NewValue: "+14155550111", Status: model.CorrectionApproved, Version: "1.1", PreviousCorrectionID: first.ID}
	require.NoError(t, st.CreateCorrection(ctx, second))

	pending := &model.Correction{CompanyID: c.ID, FieldName: model.FieldPhone, NewValue: "+14155550222", Status: model.CorrectionPending, Version: "1.2"}
	require.NoError(t, st.CreateCorrection(ctx, pending))

	latest, err := st.LatestApprovedCorrection(ctx, c.ID, model.FieldPhone)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "1.1", latest.Version)
}

func TestSQLite_Correction_LatestApprovedNone(t *testing.T) {
	st := newTestSQLiteStore(t)
	c := seedCompany(t, st)

	latest, err := st.LatestApprovedCorrection(context.Background(), c.ID, model.FieldEmail)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLite_Correction_ListNewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	first := &model.Correction{CompanyID: c.ID, FieldName: model.FieldEmail, NewValue: "a@x.com", Status: model.CorrectionPending, Version: "1.0"}
	require.NoError(t, st.CreateCorrection(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := &model.Correction{CompanyID: c.ID, FieldName: model.FieldEmail, NewValue: "b@x.com", Status: model.CorrectionPending, Version: "1.1"}
	require.NoError(t, st.CreateCorrection(ctx, second))

	list, err := st.ListCorrections(ctx, CorrectionFilter{CompanyID: c.ID, FieldName: model.FieldEmail})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestSQLite_ApplyCorrection_WritesAllThree(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	dp := model.DataPoint{CompanyID: c.ID, DataType: model.DataTypeContact, FieldName: "email", FieldValue: "info@acme.example.com", Source: "web_scraping", ConfidenceScore: 0.5}
	require.NoError(t, st.SaveDataPoints(ctx, []model.DataPoint{dp}))
	dps, err := st.ListDataPoints(ctx, c.ID, model.DataTypeContact)
	require.NoError(t, err)
	require.Len(t, dps, 1)

	now := time.Now().UTC()
	corr := &model.Correction{
		CompanyID:   c.ID,
		DataPointID: dps[0].ID,
		FieldName:   model.FieldEmail,
		NewValue:    "corrected@acme.example.com",
		Status:      model.CorrectionPending,
		Version:     "1.0",
		ApprovedBy:  "reviewer@example.com",
		ApprovedAt:  &now,
	}
	require.NoError(t, st.CreateCorrection(ctx, corr))
	require.NoError(t, st.ApplyCorrection(ctx, corr))

	company, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "corrected@acme.example.com", company.Email)

	got, err := st.GetDataPoint(ctx, dps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "corrected@acme.example.com", got.FieldValue)
	assert.True(t, got.Verified)

	applied, err := st.GetCorrection(ctx, corr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionApproved, applied.Status)
	assert.Equal(t, "reviewer@example.com", applied.ApprovedBy)
}

func TestSQLite_ApplyCorrection_MissingDataPointRollsBack(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedCompany(t, st)

	corr := &model.Correction{
		CompanyID:   c.ID,
		DataPointID: "missing-dp",
		FieldName:   model.FieldEmail,
		NewValue:    "corrected@acme.example.com",
		Status:      model.CorrectionPending,
		Version:     "1.0",
	}
	require.NoError(t, st.CreateCorrection(ctx, corr))

	err := st.ApplyCorrection(ctx, corr)
	require.Error(t, err)

	// Company field must be untouched after rollback.
	company, err := st.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "info@acme.example.com", company.Email)

	got, err := st.GetCorrection(ctx, corr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionPending, got.Status)
}

// --- Collection cache ---

func TestSQLite_CollectionCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedCollection(ctx, "registry:acme", []byte(`{"name":"Acme"}`), time.Hour)
	require.NoError(t, err)

	data, err := st.GetCachedCollection(ctx, "registry:acme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Acme"}`, string(data))
}

func TestSQLite_CollectionCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	data, err := st.GetCachedCollection(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_CollectionCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetCachedCollection(ctx, "stale", []byte("old"), -time.Hour)
	require.NoError(t, err)

	data, err := st.GetCachedCollection(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_CollectionCache_DeleteExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedCollection(ctx, "stale", []byte("old"), -time.Hour))
	require.NoError(t, st.SetCachedCollection(ctx, "fresh", []byte("new"), time.Hour))

	n, err := st.DeleteExpiredCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := st.GetCachedCollection(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
