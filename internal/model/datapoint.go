package model

import "time"

// DataType classifies the kind of attribute a DataPoint records.
type DataType string

const (
	DataTypeRegistration DataType = "REGISTRATION"
	DataTypeContact      DataType = "CONTACT"
	DataTypeAddress      DataType = "ADDRESS"
)

// DataPoint is one attributed fact about a company: which source reported it,
// what the value was, and how much we trust it. DataPoints are written during
// verification runs and only mutated by an approved correction.
type DataPoint struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	DataType        DataType  `json:"data_type"`
	FieldName       string    `json:"field_name"`
	FieldValue      string    `json:"field_value"`
	Source          string    `json:"source"`
	ConfidenceScore float64   `json:"confidence_score"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
