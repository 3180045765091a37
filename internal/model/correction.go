package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CorrectionStatus is the review state of a proposed field change.
type CorrectionStatus string

const (
	CorrectionPending  CorrectionStatus = "PENDING"
	CorrectionApproved CorrectionStatus = "APPROVED"
	CorrectionRejected CorrectionStatus = "REJECTED"
)

// Correction is a proposed, versioned change to a company field. It stays
// PENDING until a reviewer approves or rejects it; approval applies NewValue
// to the company record. PreviousCorrectionID links to the prior approved
// correction for the same field, forming a singly-linked history chain.
type Correction struct {
	ID                   string            `json:"id"`
	CompanyID            string            `json:"company_id"`
	DataPointID          string            `json:"data_point_id,omitempty"`
	FieldName            string            `json:"field_name"`
	FieldType            string            `json:"field_type"`
	OldValue             string            `json:"old_value"`
	NewValue             string            `json:"new_value"`
	Reason               string            `json:"reason,omitempty"`
	Status               CorrectionStatus  `json:"status"`
	Version              string            `json:"version"`
	PreviousCorrectionID string            `json:"previous_correction_id,omitempty"`
	CorrectedBy          string            `json:"corrected_by"`
	ApprovedBy           string            `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time        `json:"approved_at,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// NextVersion computes the version for a new correction given the latest
// approved predecessor's version. An empty or unparsable predecessor yields
// the initial version "1.0"; otherwise the minor component is incremented.
func NextVersion(prev string) string {
	if prev == "" {
		return "1.0"
	}
	parts := strings.Split(prev, ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return "1.0"
	}
	minor := 0
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			minor = m
		} else {
			return "1.0"
		}
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}
