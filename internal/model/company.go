package model

import "time"

// Company is the business entity under verification. LegalName is the only
// required attribute; everything else is collected and cross-checked.
type Company struct {
	ID                 string    `json:"id"`
	LegalName          string    `json:"legal_name"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	Jurisdiction       string    `json:"jurisdiction,omitempty"`
	Domain             string    `json:"domain,omitempty"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Correctable company field names.
const (
	FieldLegalName          = "legal_name"
	FieldRegistrationNumber = "registration_number"
	FieldJurisdiction       = "jurisdiction"
	FieldDomain             = "domain"
	FieldEmail              = "email"
	FieldPhone              = "phone"
)

// FieldValue returns the value of a correctable company field by name.
// Unknown fields return "" and false.
func (c *Company) FieldValue(field string) (string, bool) {
	switch field {
	case FieldLegalName:
		return c.LegalName, true
	case FieldRegistrationNumber:
		return c.RegistrationNumber, true
	case FieldJurisdiction:
		return c.Jurisdiction, true
	case FieldDomain:
		return c.Domain, true
	case FieldEmail:
		return c.Email, true
	case FieldPhone:
		return c.Phone, true
	default:
		return "", false
	}
}

// SetFieldValue sets a correctable company field by name. Returns false for
// unknown fields.
func (c *Company) SetFieldValue(field, value string) bool {
	switch field {
	case FieldLegalName:
		c.LegalName = value
	case FieldRegistrationNumber:
		c.RegistrationNumber = value
	case FieldJurisdiction:
		c.Jurisdiction = value
	case FieldDomain:
		c.Domain = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	default:
		return false
	}
	return true
}
