package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/praxis-labs/veracity/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the default
// backend for single-node deployments and for tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                  TEXT PRIMARY KEY,
	legal_name          TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	jurisdiction        TEXT NOT NULL DEFAULT '',
	domain              TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verification_runs (
	id            TEXT PRIMARY KEY,
	company_id    TEXT NOT NULL REFERENCES companies(id),
	risk_score    INTEGER NOT NULL DEFAULT 0,
	risk_category TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	error         TEXT,
	result        TEXT,
	started_at    DATETIME,
	completed_at  DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS data_points (
	id               TEXT PRIMARY KEY,
	company_id       TEXT NOT NULL REFERENCES companies(id),
	data_type        TEXT NOT NULL,
	field_name       TEXT NOT NULL,
	field_value      TEXT NOT NULL,
	source           TEXT NOT NULL,
	confidence_score REAL NOT NULL DEFAULT 0,
	verified         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, data_type, field_name, source)
);

CREATE TABLE IF NOT EXISTS corrections (
	id                     TEXT PRIMARY KEY,
	company_id             TEXT NOT NULL REFERENCES companies(id),
	data_point_id          TEXT,
	field_name             TEXT NOT NULL,
	field_type             TEXT NOT NULL DEFAULT '',
	old_value              TEXT NOT NULL DEFAULT '',
	new_value              TEXT NOT NULL,
	reason                 TEXT,
	status                 TEXT NOT NULL DEFAULT 'PENDING',
	version                TEXT NOT NULL,
	previous_correction_id TEXT,
	corrected_by           TEXT NOT NULL DEFAULT '',
	approved_by            TEXT,
	approved_at            DATETIME,
	metadata               TEXT,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS collection_cache (
	id         TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL UNIQUE,
	data       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_company ON verification_runs(company_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON verification_runs(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_active
	ON verification_runs(company_id) WHERE status = 'IN_PROGRESS';
CREATE INDEX IF NOT EXISTS idx_data_points_company ON data_points(company_id);
CREATE INDEX IF NOT EXISTS idx_corrections_company ON corrections(company_id);
CREATE INDEX IF NOT EXISTS idx_corrections_field ON corrections(company_id, field_name);
CREATE INDEX IF NOT EXISTS idx_collection_cache_expires ON collection_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Companies

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.LegalName, c.RegistrationNumber, c.Jurisdiction, c.Domain, c.Email, c.Phone, now, now,
	)
	return eris.Wrap(err, "sqlite: insert company")
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at
		 FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.LegalName, &c.RegistrationNumber, &c.Jurisdiction, &c.Domain, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("company not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return &c, nil
}

// companyColumns whitelists the correctable field names against their columns.
var companyColumns = map[string]string{
	model.FieldLegalName:          "legal_name",
	model.FieldRegistrationNumber: "registration_number",
	model.FieldJurisdiction:       "jurisdiction",
	model.FieldDomain:             "domain",
	model.FieldEmail:              "email",
	model.FieldPhone:              "phone",
}

func (s *SQLiteStore) UpdateCompanyField(ctx context.Context, id, field, value string) error {
	col, ok := companyColumns[field]
	if !ok {
		return model.NewValidationError("unknown company field: %s", field)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET `+col+` = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s", id)
	}
	return checkRowsAffected(res, "company", id)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at
	          FROM companies WHERE 1=1`
	var args []any

	if filter.Jurisdiction != "" {
		query += ` AND jurisdiction = ?`
		args = append(args, filter.Jurisdiction)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.LegalName, &c.RegistrationNumber, &c.Jurisdiction, &c.Domain, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// Verification runs

func (s *SQLiteStore) CreateRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_runs (id, company_id, status, started_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, companyID, string(model.RunStatusInProgress), now, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, model.NewConflictError("verification already in progress for company %s", companyID)
		}
		return nil, eris.Wrapf(err, "sqlite: insert run for company %s", companyID)
	}

	return &model.VerificationRun{
		ID:        id,
		CompanyID: companyID,
		Status:    model.RunStatusInProgress,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if status.Terminal() {
		res, err = s.db.ExecContext(ctx,
			`UPDATE verification_runs SET status = ?, error = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
			string(status), errMsg, now, now, runID,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE verification_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), errMsg, now, runID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE verification_runs
		 SET result = ?, risk_score = ?, risk_category = ?, status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(resultJSON), result.RiskScore, string(result.RiskCategory),
		string(model.RunStatusCompleted), now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, company_id, risk_score, risk_category, status, error, result, started_at, completed_at, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.VerificationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM verification_runs WHERE id = ?`, runID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ActiveRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM verification_runs WHERE company_id = ? AND status = ?`,
		companyID, string(model.RunStatusInProgress),
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) LatestRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM verification_runs WHERE company_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		companyID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.VerificationRun, error) {
	query := `SELECT ` + runColumns + ` FROM verification_runs WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.VerificationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Data points

func (s *SQLiteStore) SaveDataPoints(ctx context.Context, dps []model.DataPoint) error {
	if len(dps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save data points")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range dps {
		dp := &dps[i]
		if dp.ID == "" {
			dp.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO data_points (id, company_id, data_type, field_name, field_value, source, confidence_score, verified, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (company_id, data_type, field_name, source) DO UPDATE SET
			   field_value = excluded.field_value,
			   confidence_score = excluded.confidence_score,
			   verified = excluded.verified,
			   updated_at = excluded.updated_at`,
			dp.ID, dp.CompanyID, string(dp.DataType), dp.FieldName, dp.FieldValue,
			dp.Source, dp.ConfidenceScore, dp.Verified, now, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save data point %s/%s", dp.FieldName, dp.Source)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save data points")
}

const dataPointColumns = `id, company_id, data_type, field_name, field_value, source, confidence_score, verified, created_at, updated_at`

func (s *SQLiteStore) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	var dp model.DataPoint
	err := s.db.QueryRowContext(ctx,
		`SELECT `+dataPointColumns+` FROM data_points WHERE id = ?`, id,
	).Scan(&dp.ID, &dp.CompanyID, &dp.DataType, &dp.FieldName, &dp.FieldValue, &dp.Source, &dp.ConfidenceScore, &dp.Verified, &dp.CreatedAt, &dp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("data point not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get data point %s", id)
	}
	return &dp, nil
}

func (s *SQLiteStore) ListDataPoints(ctx context.Context, companyID string, dataType model.DataType) ([]model.DataPoint, error) {
	query := `SELECT ` + dataPointColumns + ` FROM data_points WHERE company_id = ?`
	args := []any{companyID}

	if dataType != "" {
		query += ` AND data_type = ?`
		args = append(args, string(dataType))
	}
	query += ` ORDER BY field_name, source`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list data points")
	}
	defer rows.Close()

	var dps []model.DataPoint
	for rows.Next() {
		var dp model.DataPoint
		if err := rows.Scan(&dp.ID, &dp.CompanyID, &dp.DataType, &dp.FieldName, &dp.FieldValue, &dp.Source, &dp.ConfidenceScore, &dp.Verified, &dp.CreatedAt, &dp.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan data point")
		}
		dps = append(dps, dp)
	}
	return dps, eris.Wrap(rows.Err(), "sqlite: list data points iterate")
}

// Corrections

func (s *SQLiteStore) CreateCorrection(ctx context.Context, c *model.Correction) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal correction metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO corrections (id, company_id, data_point_id, field_name, field_type, old_value, new_value, reason, status, version, previous_correction_id, corrected_by, approved_by, approved_at, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CompanyID, nullable(c.DataPointID), c.FieldName, c.FieldType, c.OldValue, c.NewValue,
		c.Reason, string(c.Status), c.Version, nullable(c.PreviousCorrectionID), c.CorrectedBy,
		nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert correction")
}

const correctionColumns = `id, company_id, data_point_id, field_name, field_type, old_value, new_value, reason, status, version, previous_correction_id, corrected_by, approved_by, approved_at, metadata, created_at`

func (s *SQLiteStore) GetCorrection(ctx context.Context, id string) (*model.Correction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+correctionColumns+` FROM corrections WHERE id = ?`, id,
	)
	c, err := scanCorrection(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("correction not found: %s", id)
	}
	return c, err
}

func (s *SQLiteStore) UpdateCorrection(ctx context.Context, c *model.Correction) error {
	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal correction metadata")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE corrections SET status = ?, approved_by = ?, approved_at = ?, metadata = ? WHERE id = ?`,
		string(c.Status), nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update correction %s", c.ID)
	}
	return checkRowsAffected(res, "correction", c.ID)
}

func (s *SQLiteStore) ListCorrections(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error) {
	query := `SELECT ` + correctionColumns + ` FROM corrections WHERE 1=1`
	var args []any

	if filter.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, filter.CompanyID)
	}
	if filter.FieldName != "" {
		query += ` AND field_name = ?`
		args = append(args, filter.FieldName)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list corrections")
	}
	defer rows.Close()

	var corrections []model.Correction
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, *c)
	}
	return corrections, eris.Wrap(rows.Err(), "sqlite: list corrections iterate")
}

func (s *SQLiteStore) LatestApprovedCorrection(ctx context.Context, companyID, field string) (*model.Correction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+correctionColumns+` FROM corrections
		 WHERE company_id = ? AND field_name = ? AND status = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		companyID, field, string(model.CorrectionApproved),
	)
	c, err := scanCorrection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *SQLiteStore) ApplyCorrection(ctx context.Context, c *model.Correction) error {
	col, ok := companyColumns[c.FieldName]
	if !ok {
		return model.NewValidationError("unknown company field: %s", c.FieldName)
	}
	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal correction metadata")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin apply correction")
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE companies SET `+col+` = ?, updated_at = ? WHERE id = ?`,
		c.NewValue, now, c.CompanyID,
	)
	if err != nil {
		return model.NewIntegrityError("apply correction: update company", err)
	}
	if err := checkRowsAffected(res, "company", c.CompanyID); err != nil {
		return err
	}

	if c.DataPointID != "" {
		res, err = tx.ExecContext(ctx,
			`UPDATE data_points SET field_value = ?, verified = 1, updated_at = ? WHERE id = ?`,
			c.NewValue, now, c.DataPointID,
		)
		if err != nil {
			return model.NewIntegrityError("apply correction: update data point", err)
		}
		if err := checkRowsAffected(res, "data point", c.DataPointID); err != nil {
			return err
		}
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE corrections SET status = ?, approved_by = ?, approved_at = ?, metadata = ? WHERE id = ?`,
		string(model.CorrectionApproved), nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.ID,
	)
	if err != nil {
		return model.NewIntegrityError("apply correction: update correction", err)
	}
	if err := checkRowsAffected(res, "correction", c.ID); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit apply correction")
}

// Collection cache

func (s *SQLiteStore) GetCachedCollection(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM collection_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached collection")
	}
	return data, nil
}

func (s *SQLiteStore) SetCachedCollection(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_cache (id, cache_key, data, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		id, key, data, now, expiresAt,
	)
	return eris.Wrap(err, "sqlite: set cached collection")
}

func (s *SQLiteStore) DeleteExpiredCollections(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_cache WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired collections")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return model.NewNotFoundError("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.VerificationRun, error) {
	var r model.VerificationRun
	var errMsg, category, resultJSON sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.CompanyID, &r.RiskScore, &category, &r.Status, &errMsg, &resultJSON, &startedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.RiskCategory = model.RiskCategory(category.String)
	r.Error = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		r.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	if resultJSON.Valid && resultJSON.String != "" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
	}
	return &r, nil
}

func scanCorrection(row scannable) (*model.Correction, error) {
	var c model.Correction
	var dataPointID, reason, previousID, approvedBy, metadataJSON sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(&c.ID, &c.CompanyID, &dataPointID, &c.FieldName, &c.FieldType, &c.OldValue, &c.NewValue,
		&reason, &c.Status, &c.Version, &previousID, &c.CorrectedBy, &approvedBy, &approvedAt, &metadataJSON, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan correction")
	}

	c.DataPointID = dataPointID.String
	c.Reason = reason.String
	c.PreviousCorrectionID = previousID.String
	c.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		t := approvedAt.Time
		c.ApprovedAt = &t
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &c.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal correction metadata")
		}
	}
	return &c, nil
}

func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
