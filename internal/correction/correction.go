// Package correction manages the review workflow for company field changes:
// propose, approve or reject, with a versioned per-field history chain.
package correction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/notify"
	"github.com/praxis-labs/veracity/internal/store"
)

// Service owns correction lifecycle transitions.
type Service struct {
	store    store.Store
	notifier notify.Notifier
}

// New wires a Service. notifier may be nil.
func New(st store.Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{store: st, notifier: notifier}
}

// CreateRequest is the input for proposing a correction.
type CreateRequest struct {
	CompanyID   string `json:"company_id"`
	DataPointID string `json:"data_point_id,omitempty"`
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type,omitempty"`
	NewValue    string `json:"new_value"`
	Reason      string `json:"reason,omitempty"`
	CorrectedBy string `json:"corrected_by"`
}

// fieldTypes are the value types a correction may declare.
var fieldTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"date":    true,
}

// CurrentValue resolves the live value a correction for the field would
// replace: the linked data point's value when dataPointID is given, the
// company record's otherwise. Boundaries use it to reject no-op corrections
// before they enter the workflow.
func (s *Service) CurrentValue(ctx context.Context, companyID, dataPointID, fieldName string) (string, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return "", err
	}
	value, ok := company.FieldValue(fieldName)
	if !ok {
		return "", model.NewValidationError("unknown company field %q", fieldName)
	}
	if dataPointID != "" {
		dp, err := s.store.GetDataPoint(ctx, dataPointID)
		if err != nil {
			return "", err
		}
		if dp.CompanyID != company.ID {
			return "", model.NewValidationError("data point %s belongs to another company", dataPointID)
		}
		value = dp.FieldValue
	}
	return value, nil
}

// Create proposes a PENDING correction. The old value is resolved from the
// linked data point when given, otherwise from the company record; the
// version continues the field's approved-correction chain. Proposing the
// current value again is allowed, the reviewer decides whether it is useful.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Correction, error) {
	if req.FieldName == "" {
		return nil, model.NewValidationError("field name is required")
	}
	if req.CorrectedBy == "" {
		return nil, model.NewValidationError("corrected_by is required")
	}

	fieldType := req.FieldType
	if fieldType == "" {
		fieldType = "string"
	}
	if !fieldTypes[fieldType] {
		return nil, model.NewValidationError("unknown field type %q", req.FieldType)
	}

	oldValue, err := s.CurrentValue(ctx, req.CompanyID, req.DataPointID, req.FieldName)
	if err != nil {
		return nil, err
	}

	prev, err := s.store.LatestApprovedCorrection(ctx, req.CompanyID, req.FieldName)
	if err != nil {
		return nil, err
	}
	var prevID, prevVersion string
	if prev != nil {
		prevID = prev.ID
		prevVersion = prev.Version
	}

	c := &model.Correction{
		CompanyID:            req.CompanyID,
		DataPointID:          req.DataPointID,
		FieldName:            req.FieldName,
		FieldType:            fieldType,
		OldValue:             oldValue,
		NewValue:             req.NewValue,
		Reason:               req.Reason,
		Status:               model.CorrectionPending,
		Version:              model.NextVersion(prevVersion),
		PreviousCorrectionID: prevID,
		CorrectedBy:          req.CorrectedBy,
	}
	if err := s.store.CreateCorrection(ctx, c); err != nil {
		return nil, err
	}

	zap.L().Info("correction proposed",
		zap.String("correction_id", c.ID),
		zap.String("company_id", c.CompanyID),
		zap.String("field", c.FieldName),
		zap.String("version", c.Version))

	s.notifier.Notify(ctx, notify.Event{
		Type:         notify.EventCorrectionCreated,
		CompanyID:    c.CompanyID,
		CorrectionID: c.ID,
		Detail:       map[string]any{"field": c.FieldName, "version": c.Version},
	})
	return c, nil
}

// Approve applies a PENDING correction: company field, linked data point, and
// the correction row update in one transaction. Non-pending corrections
// conflict.
func (s *Service) Approve(ctx context.Context, correctionID, approvedBy string) (*model.Correction, error) {
	c, err := s.store.GetCorrection(ctx, correctionID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CorrectionPending {
		return nil, model.NewConflictError("correction %s is %s, not PENDING", correctionID, c.Status)
	}

	now := time.Now().UTC()
	c.ApprovedBy = approvedBy
	c.ApprovedAt = &now
	if err := s.store.ApplyCorrection(ctx, c); err != nil {
		return nil, err
	}

	zap.L().Info("correction approved",
		zap.String("correction_id", c.ID),
		zap.String("field", c.FieldName),
		zap.String("approved_by", approvedBy))

	s.notifier.Notify(ctx, notify.Event{
		Type:         notify.EventCorrectionApproved,
		CompanyID:    c.CompanyID,
		CorrectionID: c.ID,
		Detail:       map[string]any{"field": c.FieldName, "new_value": c.NewValue},
	})
	return s.store.GetCorrection(ctx, correctionID)
}

// Reject marks a PENDING correction REJECTED and records the reviewer's
// reason in its metadata. Non-pending corrections conflict.
func (s *Service) Reject(ctx context.Context, correctionID, rejectedBy, reason string) (*model.Correction, error) {
	c, err := s.store.GetCorrection(ctx, correctionID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CorrectionPending {
		return nil, model.NewConflictError("correction %s is %s, not PENDING", correctionID, c.Status)
	}

	c.Status = model.CorrectionRejected
	c.ApprovedBy = rejectedBy
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	if reason != "" {
		c.Metadata["rejection_reason"] = reason
	}
	if err := s.store.UpdateCorrection(ctx, c); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:         notify.EventCorrectionRejected,
		CompanyID:    c.CompanyID,
		CorrectionID: c.ID,
		Detail:       map[string]any{"field": c.FieldName, "reason": reason},
	})
	return c, nil
}

// History lists a company's corrections newest first, optionally for one
// field.
func (s *Service) History(ctx context.Context, companyID, fieldName string) ([]model.Correction, error) {
	return s.store.ListCorrections(ctx, store.CorrectionFilter{
		CompanyID: companyID,
		FieldName: fieldName,
	})
}
