package registration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/praxis-labs/veracity/internal/collect"
	"github.com/praxis-labs/veracity/internal/model"
)

type fakeSearcher struct {
	results []collect.Result
	queries []string
}

func (f *fakeSearcher) SearchDirectory(_ context.Context, _ *collect.Catalog, query string) []collect.Result {
	f.queries = append(f.queries, query)
	return f.results
}

func testCompany() *model.Company {
	return &model.Company{
		LegalName:          "Acme Corporation",
		RegistrationNumber: "REG-12345",
		Jurisdiction:       "DE",
	}
}

func directoryResult(source string, body string) collect.Result {
	return collect.Result{Source: source, Success: true, Data: json.RawMessage(body)}
}

func TestVerifyNumber(t *testing.T) {
	res := VerifyNumber("REG-12345", "DE")
	assert.True(t, res.FormatValid)
	assert.Empty(t, res.Reason)

	res = VerifyNumber("", "DE")
	assert.False(t, res.FormatValid)
	assert.NotEmpty(t, res.Reason)
}

func TestCrossReferenceMatchesByName(t *testing.T) {
	s := &fakeSearcher{results: []collect.Result{
		directoryResult("national_registry", `{"results":[{"name":"ACME Corp","registration_number":"OTHER-1"}]}`),
		directoryResult("business_index", `{"results":[{"name":"Unrelated Holdings"}]}`),
	}}
	v := New(s, &collect.Catalog{})

	res := v.CrossReference(context.Background(), testCompany())

	assert.Equal(t, []string{"Acme Corporation"}, s.queries)
	assert.Equal(t, 2, res.SourcesQueried)
	assert.Equal(t, 1, res.SourcesMatched)
	assert.InDelta(t, 0.5, res.Consistency, 1e-9)
	assert.True(t, res.Verified)
	assert.False(t, res.Degraded)
	assert.Equal(t, []string{"national_registry"}, res.Sources)
	assert.Equal(t, []SourceReport{
		{Source: "national_registry", Name: "ACME Corp", Number: "OTHER-1", Matched: true},
		{Source: "business_index", Name: "Unrelated Holdings", Matched: false},
	}, res.Reports)
}

func TestCrossReferenceMatchesByNumber(t *testing.T) {
	s := &fakeSearcher{results: []collect.Result{
		directoryResult("national_registry", `[{"name":"Completely Different Name","company_number":"reg-12345"}]`),
	}}
	v := New(s, &collect.Catalog{})

	res := v.CrossReference(context.Background(), testCompany())

	assert.Equal(t, 1, res.SourcesMatched)
	assert.Equal(t, 1.0, res.Consistency)
	assert.True(t, res.Verified)
}

func TestCrossReferenceNoMatches(t *testing.T) {
	s := &fakeSearcher{results: []collect.Result{
		directoryResult("national_registry", `{"companies":[{"name":"Globex International"}]}`),
	}}
	v := New(s, &collect.Catalog{})

	res := v.CrossReference(context.Background(), testCompany())

	assert.Equal(t, 1, res.SourcesQueried)
	assert.Zero(t, res.SourcesMatched)
	assert.Zero(t, res.Consistency)
	assert.False(t, res.Verified)
	assert.False(t, res.Degraded)
}

func TestCrossReferenceDegradedWhenNoSourcesRespond(t *testing.T) {
	s := &fakeSearcher{results: []collect.Result{
		{Source: "national_registry", Success: false, Err: "connection refused"},
	}}
	v := New(s, &collect.Catalog{})

	res := v.CrossReference(context.Background(), testCompany())

	assert.True(t, res.Degraded)
	assert.True(t, res.Verified)
	assert.Zero(t, res.SourcesQueried)
}

func TestCrossReferenceDegradedBadFormat(t *testing.T) {
	v := New(nil, nil)

	company := testCompany()
	company.RegistrationNumber = ""
	res := v.CrossReference(context.Background(), company)

	assert.True(t, res.Degraded)
	assert.False(t, res.Verified)
}

func TestCrossReferenceIgnoresUnparseableResponse(t *testing.T) {
	s := &fakeSearcher{results: []collect.Result{
		directoryResult("national_registry", `"just a string"`),
	}}
	v := New(s, &collect.Catalog{})

	res := v.CrossReference(context.Background(), testCompany())

	assert.Equal(t, 1, res.SourcesQueried)
	assert.Zero(t, res.SourcesMatched)
}

func TestVerifyAddressComplete(t *testing.T) {
	res := VerifyAddress(Address{
		Street:     "1 Hauptstrasse",
		City:       "Berlin",
		State:      "BE",
		Country:    "DE",
		PostalCode: "10115",
	})

	assert.Equal(t, 1.0, res.Completeness)
	assert.True(t, res.PostalValid)
	assert.True(t, res.CountryValid)
	assert.True(t, res.Verified)
	assert.Empty(t, res.MissingFields)
}

func TestVerifyAddressPartialAboveThreshold(t *testing.T) {
	res := VerifyAddress(Address{
		Street:  "1 Hauptstrasse",
		City:    "Berlin",
		Country: "DE",
	})

	assert.InDelta(t, 0.6, res.Completeness, 1e-9)
	assert.True(t, res.Verified)
	assert.ElementsMatch(t, []string{"state", "postal_code"}, res.MissingFields)
}

func TestVerifyAddressTooSparse(t *testing.T) {
	res := VerifyAddress(Address{City: "Berlin"})

	assert.InDelta(t, 0.2, res.Completeness, 1e-9)
	assert.False(t, res.Verified)
}

func TestVerifyAddressBadPostalCode(t *testing.T) {
	res := VerifyAddress(Address{
		Street:     "1 Hauptstrasse",
		City:       "Berlin",
		State:      "BE",
		Country:    "DE",
		PostalCode: "!!invalid!!",
	})

	assert.False(t, res.PostalValid)
	assert.False(t, res.Verified)
}

func TestVerifyAddressBadCountry(t *testing.T) {
	res := VerifyAddress(Address{
		Street:     "1 Hauptstrasse",
		City:       "Berlin",
		State:      "BE",
		Country:    "Germany",
		PostalCode: "10115",
	})

	assert.False(t, res.CountryValid)
	assert.False(t, res.Verified)
}
