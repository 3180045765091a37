package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/praxis-labs/veracity/internal/db"
	"github.com/praxis-labs/veracity/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. Statement
// caching is pgx's own, keyed by query text.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk data-point writes).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	legal_name          TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	jurisdiction        TEXT NOT NULL DEFAULT '',
	domain              TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verification_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id    TEXT NOT NULL REFERENCES companies(id),
	risk_score    INTEGER NOT NULL DEFAULT 0,
	risk_category TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	error         TEXT,
	result        JSONB,
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS data_points (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id       TEXT NOT NULL REFERENCES companies(id),
	data_type        TEXT NOT NULL,
	field_name       TEXT NOT NULL,
	field_value      TEXT NOT NULL,
	source           TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified         BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, data_type, field_name, source)
);

CREATE TABLE IF NOT EXISTS corrections (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	approved_at            TIMESTAMPTZ,
	metadata               JSONB,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS collection_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	cache_key  TEXT NOT NULL UNIQUE,
	data       BYTEA NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Companies

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.LegalName, c.RegistrationNumber, c.Jurisdiction, c.Domain, c.Email, c.Phone, now, now,
	)
	return eris.Wrap(err, "postgres: insert company")
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx,
		`SELECT id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.LegalName, &c.RegistrationNumber, &c.Jurisdiction, &c.Domain, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFoundError("company not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCompanyField(ctx context.Context, id, field, value string) error {
	col, ok := companyColumns[field]
	if !ok {
		return model.NewValidationError("unknown company field: %s", field)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("company not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT id, legal_name, registration_number, jurisdiction, domain, email, phone, created_at, updated_at
	          FROM companies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Jurisdiction != "" {
		query += fmt.Sprintf(` AND jurisdiction = $%d`, argIdx)
		args = append(args, filter.Jurisdiction)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.LegalName, &c.RegistrationNumber, &c.Jurisdiction, &c.Domain, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

// Verification runs

func (s *PostgresStore) CreateRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO verification_runs (id, company_id, status, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, companyID, string(model.RunStatusInProgress), now, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, model.NewConflictError("verification already in progress for company %s", companyID)
		}
		return nil, eris.Wrapf(err, "postgres: insert run for company %s", companyID)
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

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	now := time.Now().UTC()
	var tag pgconn.CommandTag
	var err error
	if status.Terminal() {
		tag, err = s.pool.Exec(ctx,
			`UPDATE verification_runs SET status = $1, error = $2, completed_at = $3, updated_at = $4 WHERE id = $5`,
			string(status), errMsg, now, now, runID,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE verification_runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
			string(status), errMsg, now, runID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE verification_runs
		 SET result = $1, risk_score = $2, risk_category = $3, status = $4, completed_at = $5, updated_at = $6
		 WHERE id = $7`,
		resultJSON, result.RiskScore, string(result.RiskCategory),
		string(model.RunStatusCompleted), now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("run not found: %s", runID)
	}
	return nil
}

const pgRunColumns = `id, company_id, risk_score, risk_category, status, error, result, started_at, completed_at, created_at, updated_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.VerificationRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM verification_runs WHERE id = $1`, runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFoundError("run not found: %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ActiveRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM verification_runs WHERE company_id = $1 AND status = $2`,
		companyID, string(model.RunStatusInProgress),
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) LatestRun(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM verification_runs WHERE company_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		companyID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.VerificationRun, error) {
	query := `SELECT ` + pgRunColumns + ` FROM verification_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CompanyID != "" {
		query += fmt.Sprintf(` AND company_id = $%d`, argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.VerificationRun
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// Data points

// dataPointCols is the column order used for bulk upserts.
var dataPointCols = []string{"id", "company_id", "data_type", "field_name", "field_value", "source", "confidence_score", "verified", "created_at", "updated_at"}

func (s *PostgresStore) SaveDataPoints(ctx context.Context, dps []model.DataPoint) error {
	if len(dps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(dps))
	for i := range dps {
		dp := &dps[i]
		if dp.ID == "" {
			dp.ID = uuid.New().String()
		}
		rows = append(rows, []any{
			dp.ID, dp.CompanyID, string(dp.DataType), dp.FieldName, dp.FieldValue,
			dp.Source, dp.ConfidenceScore, dp.Verified, now, now,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "data_points",
		Columns:      dataPointCols,
		ConflictKeys: []string{"company_id", "data_type", "field_name", "source"},
		UpdateCols:   []string{"field_value", "confidence_score", "verified", "updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: save data points")
}

const pgDataPointColumns = `id, company_id, data_type, field_name, field_value, source, confidence_score, verified, created_at, updated_at`

func (s *PostgresStore) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	var dp model.DataPoint
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgDataPointColumns+` FROM data_points WHERE id = $1`, id,
	).Scan(&dp.ID, &dp.CompanyID, &dp.DataType, &dp.FieldName, &dp.FieldValue, &dp.Source, &dp.ConfidenceScore, &dp.Verified, &dp.CreatedAt, &dp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFoundError("data point not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get data point %s", id)
	}
	return &dp, nil
}

func (s *PostgresStore) ListDataPoints(ctx context.Context, companyID string, dataType model.DataType) ([]model.DataPoint, error) {
	query := `SELECT ` + pgDataPointColumns + ` FROM data_points WHERE company_id = $1`
	args := []any{companyID}

	if dataType != "" {
		query += ` AND data_type = $2`
		args = append(args, string(dataType))
	}
	query += ` ORDER BY field_name, source`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list data points")
	}
	defer rows.Close()

	var dps []model.DataPoint
	for rows.Next() {
		var dp model.DataPoint
		if err := rows.Scan(&dp.ID, &dp.CompanyID, &dp.DataType, &dp.FieldName, &dp.FieldValue, &dp.Source, &dp.ConfidenceScore, &dp.Verified, &dp.CreatedAt, &dp.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan data point")
		}
		dps = append(dps, dp)
	}
	return dps, eris.Wrap(rows.Err(), "postgres: list data points iterate")
}

// Corrections

func (s *PostgresStore) CreateCorrection(ctx context.Context, c *model.Correction) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal correction metadata")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO corrections (id, company_id, data_point_id, field_name, field_type, old_value, new_value, reason, status, version, previous_correction_id, corrected_by, approved_by, approved_at, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.CompanyID, nullable(c.DataPointID), c.FieldName, c.FieldType, c.OldValue, c.NewValue,
		c.Reason, string(c.Status), c.Version, nullable(c.PreviousCorrectionID), c.CorrectedBy,
		nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert correction")
}

const pgCorrectionColumns = `id, company_id, data_point_id, field_name, field_type, old_value, new_value, reason, status, version, previous_correction_id, corrected_by, approved_by, approved_at, metadata, created_at`

func (s *PostgresStore) GetCorrection(ctx context.Context, id string) (*model.Correction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgCorrectionColumns+` FROM corrections WHERE id = $1`, id,
	)
	c, err := scanPgCorrection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFoundError("correction not found: %s", id)
	}
	return c, err
}

func (s *PostgresStore) UpdateCorrection(ctx context.Context, c *model.Correction) error {
	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal correction metadata")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE corrections SET status = $1, approved_by = $2, approved_at = $3, metadata = $4 WHERE id = $5`,
		string(c.Status), nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update correction %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("correction not found: %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) ListCorrections(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error) {
	query := `SELECT ` + pgCorrectionColumns + ` FROM corrections WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CompanyID != "" {
		query += fmt.Sprintf(` AND company_id = $%d`, argIdx)
		args = append(args, filter.CompanyID)
		argIdx++
	}
	if filter.FieldName != "" {
		query += fmt.Sprintf(` AND field_name = $%d`, argIdx)
		args = append(args, filter.FieldName)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list corrections")
	}
	defer rows.Close()

	var corrections []model.Correction
	for rows.Next() {
		c, err := scanPgCorrection(rows)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, *c)
	}
	return corrections, eris.Wrap(rows.Err(), "postgres: list corrections iterate")
}

func (s *PostgresStore) LatestApprovedCorrection(ctx context.Context, companyID, field string) (*model.Correction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgCorrectionColumns+` FROM corrections
		 WHERE company_id = $1 AND field_name = $2 AND status = $3
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		companyID, field, string(model.CorrectionApproved),
	)
	c, err := scanPgCorrection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *PostgresStore) ApplyCorrection(ctx context.Context, c *model.Correction) error {
	col, ok := companyColumns[c.FieldName]
	if !ok {
		return model.NewValidationError("unknown company field: %s", c.FieldName)
	}
	metadataJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal correction metadata")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin apply correction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	tag, err := tx.Exec(ctx,
		`UPDATE companies SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		c.NewValue, now, c.CompanyID,
	)
	if err != nil {
		return model.NewIntegrityError("apply correction: update company", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("company not found: %s", c.CompanyID)
	}

	if c.DataPointID != "" {
		tag, err = tx.Exec(ctx,
			`UPDATE data_points SET field_value = $1, verified = true, updated_at = $2 WHERE id = $3`,
			c.NewValue, now, c.DataPointID,
		)
		if err != nil {
			return model.NewIntegrityError("apply correction: update data point", err)
		}
		if tag.RowsAffected() == 0 {
			return model.NewNotFoundError("data point not found: %s", c.DataPointID)
		}
	}

	tag, err = tx.Exec(ctx,
		`UPDATE corrections SET status = $1, approved_by = $2, approved_at = $3, metadata = $4 WHERE id = $5`,
		string(model.CorrectionApproved), nullable(c.ApprovedBy), c.ApprovedAt, metadataJSON, c.ID,
	)
	if err != nil {
		return model.NewIntegrityError("apply correction: update correction", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError("correction not found: %s", c.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit apply correction")
}

// Collection cache

func (s *PostgresStore) GetCachedCollection(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM collection_cache WHERE cache_key = $1 AND expires_at > now()`,
		key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached collection")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedCollection(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO collection_cache (id, cache_key, data, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key) DO UPDATE SET data = $3, cached_at = $4, expires_at = $5`,
		id, key, data, now, expiresAt,
	)
	return eris.Wrap(err, "postgres: set cached collection")
}

func (s *PostgresStore) DeleteExpiredCollections(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM collection_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired collections")
	}
	return int(tag.RowsAffected()), nil
}

// scan helpers

func scanPgRun(row pgx.Row) (*model.VerificationRun, error) {
	var r model.VerificationRun
	var errMsg, category *string
	var resultJSON []byte
	var startedAt, completedAt *time.Time

	err := row.Scan(&r.ID, &r.CompanyID, &r.RiskScore, &category, &r.Status, &errMsg, &resultJSON, &startedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if category != nil {
		r.RiskCategory = model.RiskCategory(*category)
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	r.StartedAt = startedAt
	r.CompletedAt = completedAt
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
	}
	return &r, nil
}

func scanPgCorrection(row pgx.Row) (*model.Correction, error) {
	var c model.Correction
	var dataPointID, reason, previousID, approvedBy *string
	var metadataJSON []byte

	err := row.Scan(&c.ID, &c.CompanyID, &dataPointID, &c.FieldName, &c.FieldType, &c.OldValue, &c.NewValue,
		&reason, &c.Status, &c.Version, &previousID, &c.CorrectedBy, &approvedBy, &c.ApprovedAt, &metadataJSON, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan correction")
	}

	if dataPointID != nil {
		c.DataPointID = *dataPointID
	}
	if reason != nil {
		c.Reason = *reason
	}
	if previousID != nil {
		c.PreviousCorrectionID = *previousID
	}
	if approvedBy != nil {
		c.ApprovedBy = *approvedBy
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal correction metadata")
		}
	}
	return &c, nil
}
