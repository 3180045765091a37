// Package risk turns verification signals into a 0-100 risk score and a
// LOW/MEDIUM/HIGH category. Everything here is pure and deterministic so the
// same inputs always produce the same assessment; downstream reporting relies
// on the per-component breakdown being present in every result.
package risk

import "github.com/praxis-labs/veracity/internal/model"

// Component weights. They sum to 100; the overall score divides the weighted
// sum back down by 100.
const (
	DNSWeight                     = 25
	RegistrationConsistencyWeight = 25
	ContactValidationWeight       = 20
	DomainAuthenticityWeight      = 15
	CrossSourceValidationWeight   = 15
)

// Input is the flat signal set consumed by Overall. Pointer fields are
// tri-state: nil means the check was never performed.
type Input struct {
	DNSVerified          bool    `json:"dns_verified"`
	DomainAgeDays        *int    `json:"domain_age_days,omitempty"`
	RegistrationMatches  int     `json:"registration_matches"`
	TotalSources         int     `json:"total_sources"`
	EmailValid           bool    `json:"email_valid"`
	PhoneValid           bool    `json:"phone_valid"`
	EmailExists          *bool   `json:"email_exists,omitempty"`
	PhoneCarrierValid    *bool   `json:"phone_carrier_valid,omitempty"`
	DomainMatchesCompany bool    `json:"domain_matches_company"`
	SSLValid             *bool   `json:"ssl_valid,omitempty"`
	SuspiciousKeywords   int     `json:"suspicious_keywords"`
	DataConsistencyScore float64 `json:"data_consistency_score"`
	SourceReliabilityAvg float64 `json:"source_reliability_avg"`
}

// Weights reports the fixed component weight table for auditability.
type Weights struct {
	DNS          int `json:"dns"`
	Registration int `json:"registration"`
	Contact      int `json:"contact"`
	Domain       int `json:"domain"`
	CrossSource  int `json:"cross_source"`
}

// Breakdown holds the per-component risk scores behind an overall score.
type Breakdown struct {
	DNSRisk          int     `json:"dns_risk"`
	RegistrationRisk int     `json:"registration_risk"`
	ContactRisk      int     `json:"contact_risk"`
	DomainRisk       int     `json:"domain_risk"`
	CrossSourceRisk  int     `json:"cross_source_risk"`
	Weights          Weights `json:"weights"`
}

// Assessment is the full output of a risk calculation.
type Assessment struct {
	RiskScore    int                `json:"risk_score"`
	RiskCategory model.RiskCategory `json:"risk_category"`
	Breakdown    Breakdown          `json:"breakdown"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DNSRisk scores DNS trust. An unverified domain is maximum risk regardless
// of anything else; verified domains get riskier the younger they are.
func DNSRisk(dnsVerified bool, domainAgeDays *int) int {
	if !dnsVerified {
		return 100
	}
	if domainAgeDays == nil {
		return 50
	}
	switch age := *domainAgeDays; {
	case age < 30:
		return 80
	case age < 90:
		return 60
	case age < 365:
		return 30
	default:
		return 10
	}
}

// RegistrationConsistencyRisk scores agreement of registration data across
// sources. No sources at all is high risk, not neutral.
func RegistrationConsistencyRisk(registrationMatches, totalSources int) int {
	if totalSources == 0 {
		return 70
	}
	ratio := float64(registrationMatches) / float64(totalSources)
	switch {
	case ratio >= 0.9:
		return 10
	case ratio >= 0.7:
		return 30
	case ratio >= 0.5:
		return 60
	default:
		return 90
	}
}

// ContactValidationRisk scores contact information validity. Existence and
// carrier checks only move the score when they were actually performed.
func ContactValidationRisk(emailValid, phoneValid bool, emailExists, phoneCarrierValid *bool) int {
	score := 0

	if !emailValid {
		score += 40
	} else if emailExists != nil {
		if *emailExists {
			score -= 10
		} else {
			score += 30
		}
	}

	if !phoneValid {
		score += 40
	} else if phoneCarrierValid != nil {
		if *phoneCarrierValid {
			score -= 10
		} else {
			score += 20
		}
	}

	return clamp(score, 0, 100)
}

// DomainAuthenticityRisk scores whether the domain plausibly belongs to the
// company. A valid SSL certificate buys the score down, never below zero
// before the keyword penalty is applied.
func DomainAuthenticityRisk(domainMatchesCompany bool, sslValid *bool, suspiciousKeywords int) int {
	score := 0
	if !domainMatchesCompany {
		score += 50
	}
	if sslValid != nil {
		if *sslValid {
			score = max(0, score-15)
		} else {
			score += 30
		}
	}
	keywordPenalty := suspiciousKeywords * 10
	if keywordPenalty > 30 {
		keywordPenalty = 30
	}
	score += keywordPenalty
	return clamp(score, 0, 100)
}

// CrossSourceRisk scores disagreement and unreliability across data sources.
func CrossSourceRisk(dataConsistencyScore, sourceReliabilityAvg float64) int {
	consistencyRisk := (1.0 - dataConsistencyScore) * 60
	reliabilityRisk := (1.0 - sourceReliabilityAvg) * 40
	return clamp(int(consistencyRisk+reliabilityRisk), 0, 100)
}

func categoryFor(score int) model.RiskCategory {
	switch {
	case score <= 30:
		return model.RiskLow
	case score <= 70:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// Overall combines the five component risks through the fixed weight table
// into a single 0-100 score with category and full breakdown.
func Overall(in Input) Assessment {
	breakdown := Breakdown{
		DNSRisk:          DNSRisk(in.DNSVerified, in.DomainAgeDays),
		RegistrationRisk: RegistrationConsistencyRisk(in.RegistrationMatches, in.TotalSources),
		ContactRisk:      ContactValidationRisk(in.EmailValid, in.PhoneValid, in.EmailExists, in.PhoneCarrierValid),
		DomainRisk:       DomainAuthenticityRisk(in.DomainMatchesCompany, in.SSLValid, in.SuspiciousKeywords),
		CrossSourceRisk:  CrossSourceRisk(in.DataConsistencyScore, in.SourceReliabilityAvg),
		Weights: Weights{
			DNS:          DNSWeight,
			Registration: RegistrationConsistencyWeight,
			Contact:      ContactValidationWeight,
			Domain:       DomainAuthenticityWeight,
			CrossSource:  CrossSourceValidationWeight,
		},
	}

	score := (breakdown.DNSRisk*DNSWeight +
		breakdown.RegistrationRisk*RegistrationConsistencyWeight +
		breakdown.ContactRisk*ContactValidationWeight +
		breakdown.DomainRisk*DomainAuthenticityWeight +
		breakdown.CrossSourceRisk*CrossSourceValidationWeight) / 100
	score = clamp(score, 0, 100)

	return Assessment{
		RiskScore:    score,
		RiskCategory: categoryFor(score),
		Breakdown:    breakdown,
	}
}
