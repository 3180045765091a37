package model

// ResultDiscrepancy is one cross-source disagreement surfaced by a run.
type ResultDiscrepancy struct {
	FieldName   string `json:"field_name"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// RunResult is the full outcome of a completed verification run, stored as a
// JSON document alongside the run row.
type RunResult struct {
	RiskScore    int          `json:"risk_score"`
	RiskCategory RiskCategory `json:"risk_category"`

	// Component risk scores keyed by component name, each 0-100.
	RiskBreakdown map[string]int `json:"risk_breakdown,omitempty"`

	Confidence      float64            `json:"confidence"`
	ConfidenceLevel string             `json:"confidence_level"`
	ConfidenceParts map[string]float64 `json:"confidence_parts,omitempty"`

	DNSVerified             bool    `json:"dns_verified"`
	EmailValid              bool    `json:"email_valid"`
	PhoneValid              bool    `json:"phone_valid"`
	RegistrationConsistency float64 `json:"registration_consistency"`

	Discrepancies []ResultDiscrepancy `json:"discrepancies,omitempty"`

	// Sources that contributed at least one data point to this run.
	Sources []string `json:"sources,omitempty"`
}
