package store

import (
	"context"
	"time"

	"github.com/praxis-labs/veracity/internal/model"
)

// RunFilter specifies criteria for listing verification runs.
type RunFilter struct {
	CompanyID string          `json:"company_id,omitempty"`
	Status    model.RunStatus `json:"status,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// CompanyFilter specifies criteria for listing companies.
type CompanyFilter struct {
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// CorrectionFilter specifies criteria for listing corrections. Results are
// always newest first.
type CorrectionFilter struct {
	CompanyID string                 `json:"company_id,omitempty"`
	FieldName string                 `json:"field_name,omitempty"`
	Status    model.CorrectionStatus `json:"status,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the verification engine.
type Store interface {
	// Companies
	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	UpdateCompanyField(ctx context.Context, id, field, value string) error
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)

	// Verification runs
	CreateRun(ctx context.Context, companyID string) (*model.VerificationRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.VerificationRun, error)
	ActiveRun(ctx context.Context, companyID string) (*model.VerificationRun, error)
	LatestRun(ctx context.Context, companyID string) (*model.VerificationRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.VerificationRun, error)

	// Data points
	SaveDataPoints(ctx context.Context, dps []model.DataPoint) error
	GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error)
	ListDataPoints(ctx context.Context, companyID string, dataType model.DataType) ([]model.DataPoint, error)

	// Corrections
	CreateCorrection(ctx context.Context, c *model.Correction) error
	GetCorrection(ctx context.Context, id string) (*model.Correction, error)
	UpdateCorrection(ctx context.Context, c *model.Correction) error
	ListCorrections(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error)
	LatestApprovedCorrection(ctx context.Context, companyID, field string) (*model.Correction, error)
	// ApplyCorrection atomically writes an approval: the company field, the
	// linked data point's value and verified flag, and the correction row
	// itself. Any failure rolls back the whole approval.
	ApplyCorrection(ctx context.Context, c *model.Correction) error

	// Collection cache
	GetCachedCollection(ctx context.Context, key string) ([]byte, error)
	SetCachedCollection(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredCollections(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
