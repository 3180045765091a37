// Package registration verifies company registration numbers against
// business directories and scores address completeness.
package registration

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/collect"
	"github.com/praxis-labs/veracity/internal/discrepancy"
	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/validate"
)

// Searcher queries the business directory catalog. The collect gateway
// satisfies it.
type Searcher interface {
	SearchDirectory(ctx context.Context, catalog *collect.Catalog, query string) []collect.Result
}

// NumberResult is the outcome of registration number format verification.
type NumberResult struct {
	RegistrationNumber string `json:"registration_number"`
	FormatValid        bool   `json:"format_valid"`
	Reason             string `json:"reason,omitempty"`
}

// CrossRefResult summarizes a directory cross-reference pass.
type CrossRefResult struct {
	SourcesQueried int     `json:"sources_queried"`
	SourcesMatched int     `json:"sources_matched"`
	Consistency    float64 `json:"consistency"`
	Verified       bool    `json:"verified"`
	// Degraded marks the single-source fallback: no directory responded, so
	// only format validation backs the result.
	Degraded bool     `json:"degraded"`
	Sources  []string `json:"sources,omitempty"`
	// Reports carries each responding source's best entry for downstream
	// discrepancy detection.
	Reports []SourceReport `json:"reports,omitempty"`
}

// SourceReport is one directory's view of the company.
type SourceReport struct {
	Source  string `json:"source"`
	Name    string `json:"name,omitempty"`
	Number  string `json:"number,omitempty"`
	Matched bool   `json:"matched"`
}

// nameMatchThreshold is the word-set similarity above which a directory entry
// counts as the same company.
const nameMatchThreshold = 0.8

// Verifier cross-references registrations through the directory catalog.
type Verifier struct {
	searcher Searcher
	catalog  *collect.Catalog
}

// New creates a Verifier. A nil catalog disables cross-referencing; every
// CrossReference call then takes the degraded path.
func New(searcher Searcher, catalog *collect.Catalog) *Verifier {
	return &Verifier{searcher: searcher, catalog: catalog}
}

// VerifyNumber validates registration number format for the jurisdiction.
func VerifyNumber(registrationNumber, jurisdiction string) NumberResult {
	res := NumberResult{RegistrationNumber: registrationNumber}
	fv := validate.RegistrationNumber(registrationNumber, jurisdiction)
	res.FormatValid = fv.Valid
	res.Reason = fv.Reason
	return res
}

// CrossReference looks the company up in every catalog directory and counts
// how many return a matching entry. Consistency is matches over responding
// sources. When nothing responds the result degrades to format-only.
func (v *Verifier) CrossReference(ctx context.Context, company *model.Company) CrossRefResult {
	formatOK := VerifyNumber(company.RegistrationNumber, company.Jurisdiction).FormatValid

	var responded []collect.Result
	if v.searcher != nil && v.catalog != nil {
		results := v.searcher.SearchDirectory(ctx, v.catalog, company.LegalName)
		responded, _ = collect.Partition(results)
	}

	if len(responded) == 0 {
		return CrossRefResult{
			Degraded: true,
			Verified: formatOK,
		}
	}

	res := CrossRefResult{SourcesQueried: len(responded)}
	wantName := discrepancy.NormalizeName(company.LegalName)
	wantNumber := strings.ToUpper(strings.TrimSpace(company.RegistrationNumber))

	for _, r := range responded {
		entries := parseDirectoryEntries(r.Data)
		best, matched := bestEntry(entries, wantName, wantNumber)
		if matched {
			res.SourcesMatched++
			res.Sources = append(res.Sources, r.Source)
		}
		if best != nil {
			res.Reports = append(res.Reports, SourceReport{
				Source:  r.Source,
				Name:    best.name(),
				Number:  best.number(),
				Matched: matched,
			})
		}
	}

	res.Consistency = float64(res.SourcesMatched) / float64(res.SourcesQueried)
	res.Verified = res.SourcesMatched > 0 && formatOK
	return res
}

// directoryEntry is the loose shape shared by directory search responses.
type directoryEntry struct {
	Name               string `json:"name"`
	CompanyName        string `json:"company_name"`
	LegalName          string `json:"legal_name"`
	RegistrationNumber string `json:"registration_number"`
	CompanyNumber      string `json:"company_number"`
}

func (e directoryEntry) name() string {
	for _, n := range []string{e.LegalName, e.Name, e.CompanyName} {
		if n != "" {
			return n
		}
	}
	return ""
}

func (e directoryEntry) number() string {
	if e.RegistrationNumber != "" {
		return e.RegistrationNumber
	}
	return e.CompanyNumber
}

// parseDirectoryEntries accepts the common envelope shapes directories use:
// a bare array, or an object wrapping one under results/companies/items.
func parseDirectoryEntries(data []byte) []directoryEntry {
	var entries []directoryEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries
	}

	var wrapper struct {
		Results   []directoryEntry `json:"results"`
		Companies []directoryEntry `json:"companies"`
		Items     []directoryEntry `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		zap.L().Debug("unrecognized directory response shape", zap.Error(err))
		return nil
	}
	for _, set := range [][]directoryEntry{wrapper.Results, wrapper.Companies, wrapper.Items} {
		if len(set) > 0 {
			return set
		}
	}
	return nil
}

// bestEntry picks the entry a source most plausibly means by this company:
// the first matching one, else the first with any name. The second return
// reports whether the source counts as a match.
func bestEntry(entries []directoryEntry, wantName, wantNumber string) (*directoryEntry, bool) {
	var fallback *directoryEntry
	for i := range entries {
		e := &entries[i]
		if wantNumber != "" && strings.EqualFold(strings.TrimSpace(e.number()), wantNumber) {
			return e, true
		}
		if wantName != "" {
			got := discrepancy.NormalizeName(e.name())
			if got != "" && discrepancy.JaccardSimilarity(wantName, got) >= nameMatchThreshold {
				return e, true
			}
		}
		if fallback == nil && e.name() != "" {
			fallback = e
		}
	}
	return fallback, false
}

// Address is a structured company address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// AddressResult scores an address for completeness and basic format validity.
type AddressResult struct {
	Completeness  float64  `json:"completeness"`
	PostalValid   bool     `json:"postal_valid"`
	CountryValid  bool     `json:"country_valid"`
	Verified      bool     `json:"verified"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// completenessThreshold is the minimum field coverage for a verifiable address.
const completenessThreshold = 0.6

var (
	postalRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\- ]{1,9}$`)
	countryRe = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// VerifyAddress checks completeness against the five address fields and the
// postal code and ISO country formats. Verified requires completeness at or
// above the threshold and valid formats for whichever of the two are present.
func VerifyAddress(addr Address) AddressResult {
	fields := []struct {
		name  string
		value string
	}{
		{"street", addr.Street},
		{"city", addr.City},
		{"state", addr.State},
		{"country", addr.Country},
		{"postal_code", addr.PostalCode},
	}

	var res AddressResult
	present := 0
	for _, f := range fields {
		if strings.TrimSpace(f.value) != "" {
			present++
		} else {
			res.MissingFields = append(res.MissingFields, f.name)
		}
	}
	res.Completeness = float64(present) / float64(len(fields))

	res.PostalValid = addr.PostalCode == "" || postalRe.MatchString(strings.TrimSpace(addr.PostalCode))
	res.CountryValid = addr.Country == "" || countryRe.MatchString(strings.TrimSpace(addr.Country))

	res.Verified = res.Completeness >= completenessThreshold && res.PostalValid && res.CountryValid
	return res
}
