// Package discrepancy detects cross-source disagreement in collected company
// attributes and grades how severe the disagreement is.
package discrepancy

import "strings"

// Severity tiers describe how much the sources disagree, ordered from best to
// worst. The zero sources case is always SeverityHigh: absence of evidence is
// treated as the worst outcome, not a neutral one.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityNone:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Worse returns the worse of two severities.
func Worse(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// SourceValue is one source's report of a field value.
type SourceValue struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// Entry describes one source that disagreed with the primary value.
type Entry struct {
	Source     string  `json:"source"`
	Reported   string  `json:"reported"`
	Similarity float64 `json:"similarity"`
	Type       string  `json:"type"`
}

// Result is the outcome of comparing a primary value against N sources.
type Result struct {
	PrimaryValue   string   `json:"primary_value"`
	SourcesChecked int      `json:"sources_checked"`
	Matches        int      `json:"matches"`
	Discrepancies  []Entry  `json:"discrepancies,omitempty"`
	Confidence     float64  `json:"confidence"`
	Severity       Severity `json:"severity"`
}

func severityFromRatio(ratio float64) Severity {
	switch {
	case ratio >= 0.9:
		return SeverityNone
	case ratio >= 0.7:
		return SeverityLow
	case ratio >= 0.5:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// DetectName compares a primary legal name against the same field from other
// sources. Names are normalized (case, whitespace, diacritics, legal suffix)
// before comparison; non-matching sources are recorded with their word-set
// Jaccard similarity.
func DetectName(legalName string, sources []SourceValue) Result {
	result := Result{
		PrimaryValue:   legalName,
		SourcesChecked: len(sources),
		Severity:       SeverityHigh,
	}
	if len(sources) == 0 {
		return result
	}

	primary := NormalizeName(legalName)
	for _, src := range sources {
		candidate := NormalizeName(src.Value)
		if primary == candidate {
			result.Matches++
			continue
		}
		result.Discrepancies = append(result.Discrepancies, Entry{
			Source:     src.Source,
			Reported:   src.Value,
			Similarity: JaccardSimilarity(primary, candidate),
			Type:       "name_mismatch",
		})
	}

	ratio := float64(result.Matches) / float64(len(sources))
	result.Confidence = ratio
	result.Severity = severityFromRatio(ratio)
	return result
}

// DetectRegistration compares registration numbers across sources.
// Registration numbers must match exactly: severity is "none" only when every
// source agrees.
func DetectRegistration(registrationNumber string, sources []SourceValue) Result {
	result := Result{
		PrimaryValue:   registrationNumber,
		SourcesChecked: len(sources),
		Severity:       SeverityHigh,
	}
	if len(sources) == 0 {
		return result
	}

	primary := strings.ToUpper(strings.TrimSpace(registrationNumber))
	for _, src := range sources {
		candidate := strings.ToUpper(strings.TrimSpace(src.Value))
		if primary == candidate {
			result.Matches++
			continue
		}
		result.Discrepancies = append(result.Discrepancies, Entry{
			Source:   src.Source,
			Reported: candidate,
			Type:     "registration_mismatch",
		})
	}

	ratio := float64(result.Matches) / float64(len(sources))
	result.Confidence = ratio
	switch {
	case ratio == 1.0:
		result.Severity = SeverityNone
	case ratio >= 0.7:
		result.Severity = SeverityLow
	case ratio >= 0.5:
		result.Severity = SeverityMedium
	default:
		result.Severity = SeverityHigh
	}
	return result
}

// Address holds the comparable sub-fields of a postal address. Empty fields
// are skipped during comparison.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (a Address) fields() map[string]string {
	return map[string]string{
		"street":      a.Street,
		"city":        a.City,
		"state":       a.State,
		"country":     a.Country,
		"postal_code": a.PostalCode,
	}
}

var addressFieldOrder = []string{"street", "city", "state", "country", "postal_code"}

// SourceAddress is one source's report of a company address.
type SourceAddress struct {
	Source  string  `json:"source"`
	Address Address `json:"address"`
}

// FieldEntry describes a single address sub-field that differed significantly.
type FieldEntry struct {
	Field      string  `json:"field"`
	Primary    string  `json:"primary"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// AddressEntry describes one source whose address did not match overall.
type AddressEntry struct {
	Source             string       `json:"source"`
	FieldDiscrepancies []FieldEntry `json:"field_discrepancies,omitempty"`
	MatchRatio         float64      `json:"match_ratio"`
	Type               string       `json:"type"`
}

// AddressResult is the outcome of cross-source address comparison.
type AddressResult struct {
	Primary        Address        `json:"primary_address"`
	SourcesChecked int            `json:"sources_checked"`
	Matches        int            `json:"matches"`
	Discrepancies  []AddressEntry `json:"discrepancies,omitempty"`
	Confidence     float64        `json:"confidence"`
	Severity       Severity       `json:"severity"`
}

// DetectAddress compares a primary address against source addresses sub-field
// by sub-field. A source matches when at least 80% of the primary's present
// fields match exactly after normalization; otherwise each sub-field with
// similarity below 0.8 is reported individually.
func DetectAddress(primary Address, sources []SourceAddress) AddressResult {
	result := AddressResult{
		Primary:        primary,
		SourcesChecked: len(sources),
		Severity:       SeverityHigh,
	}
	if len(sources) == 0 {
		return result
	}

	primaryFields := primary.fields()
	present := 0
	for _, name := range addressFieldOrder {
		if primaryFields[name] != "" {
			present++
		}
	}

	for _, src := range sources {
		srcFields := src.Address.fields()
		fieldMatches := 0
		var fieldDiscrepancies []FieldEntry

		for _, name := range addressFieldOrder {
			primaryValue := NormalizeText(primaryFields[name])
			sourceValue := NormalizeText(srcFields[name])
			if primaryValue == "" || sourceValue == "" {
				continue
			}
			if primaryValue == sourceValue {
				fieldMatches++
				continue
			}
			similarity := JaccardSimilarity(primaryValue, sourceValue)
			if similarity < 0.8 {
				fieldDiscrepancies = append(fieldDiscrepancies, FieldEntry{
					Field:      name,
					Primary:    primaryFields[name],
					Source:     srcFields[name],
					Similarity: similarity,
				})
			}
		}

		var ratio float64
		if present > 0 {
			ratio = float64(fieldMatches) / float64(present)
		}
		if ratio >= 0.8 {
			result.Matches++
			continue
		}
		result.Discrepancies = append(result.Discrepancies, AddressEntry{
			Source:             src.Source,
			FieldDiscrepancies: fieldDiscrepancies,
			MatchRatio:         ratio,
			Type:               "address_mismatch",
		})
	}

	ratio := float64(result.Matches) / float64(len(sources))
	result.Confidence = ratio
	result.Severity = severityFromRatio(ratio)
	return result
}

// Consistency rolls up the three per-field results into a single score.
type Consistency struct {
	OverallConfidence      float64  `json:"overall_confidence"`
	TotalDiscrepancies     int      `json:"total_discrepancies"`
	Severity               Severity `json:"severity"`
	NameConfidence         float64  `json:"name_confidence"`
	AddressConfidence      float64  `json:"address_confidence"`
	RegistrationConfidence float64  `json:"registration_confidence"`
}

// Rollup weights: registration agreement counts most.
const (
	nameWeight         = 0.3
	addressWeight      = 0.3
	registrationWeight = 0.4
)

// OverallConsistency combines name, address, and registration results into a
// weighted confidence and a worst-of-three severity.
func OverallConsistency(name Result, address AddressResult, registration Result) Consistency {
	severity := Worse(Worse(name.Severity, address.Severity), registration.Severity)
	return Consistency{
		OverallConfidence: name.Confidence*nameWeight +
			address.Confidence*addressWeight +
			registration.Confidence*registrationWeight,
		TotalDiscrepancies:     len(name.Discrepancies) + len(address.Discrepancies) + len(registration.Discrepancies),
		Severity:               severity,
		NameConfidence:         name.Confidence,
		AddressConfidence:      address.Confidence,
		RegistrationConfidence: registration.Confidence,
	}
}
