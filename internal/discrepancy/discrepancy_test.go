package discrepancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example Company Inc", "EXAMPLE COMPANY"},
		{"example   company  LLC", "EXAMPLE COMPANY"},
		{"Acme Corporation", "ACME"},
		{"Acme Co", "ACME"},
		{"Café Holdings Ltd", "CAFE HOLDINGS"},
		{"", ""},
		{"Incorporated Widgets", "INCORPORATED WIDGETS"}, // suffix only stripped at the end
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, JaccardSimilarity("EXAMPLE COMPANY", "EXAMPLE COMPANY"))
	assert.InDelta(t, 1.0/3.0, JaccardSimilarity("EXAMPLE COMPANY", "EXAMPLE CORP"), 0.001)
	assert.Equal(t, 0.0, JaccardSimilarity("", "ANYTHING"))
	assert.Equal(t, 0.0, JaccardSimilarity("ALPHA", "BETA"))
}

func TestJaccardSimilarity_PartialOverlap(t *testing.T) {
	// {EXAMPLE, COMPANY} vs {DIFFERENT, COMPANY}: 1 shared, 3 in union.
	assert.InDelta(t, 1.0/3.0, JaccardSimilarity("EXAMPLE COMPANY", "DIFFERENT COMPANY"), 0.001)
}

func TestDetectName_AllMatch(t *testing.T) {
	res := DetectName("Example Company Inc", []SourceValue{
		{Source: "registry", Value: "Example Company Inc"},
		{Source: "directory", Value: "EXAMPLE COMPANY LLC"}, // suffix differs, normalizes equal
	})
	assert.Equal(t, 2, res.Matches)
	assert.Empty(t, res.Discrepancies)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, SeverityNone, res.Severity)
}

func TestDetectName_NoSources(t *testing.T) {
	res := DetectName("Example Company", nil)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, SeverityHigh, res.Severity)
}

func TestDetectName_OneMismatchOfThree(t *testing.T) {
	res := DetectName("Example Company Inc", []SourceValue{
		{Source: "a", Value: "Example Company Inc"},
		{Source: "b", Value: "Example Company Inc"},
		{Source: "c", Value: "Different Company Inc"},
	})
	assert.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "c", res.Discrepancies[0].Source)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 0.001)
	// 0.667 ratio falls in the medium tier.
	assert.Equal(t, SeverityMedium, res.Severity)
}

func TestDetectRegistration_RequiresExactUnanimity(t *testing.T) {
	sources := []SourceValue{
		{Source: "a", Value: "12345678"},
		{Source: "b", Value: " 12345678 "},
	}
	res := DetectRegistration("12345678", sources)
	assert.Equal(t, SeverityNone, res.Severity)
	assert.Equal(t, 1.0, res.Confidence)

	// 9 of 10 matching is "none" for names but only "low" for registration.
	many := make([]SourceValue, 10)
	for i := range many {
		many[i] = SourceValue{Source: "s", Value: "12345678"}
	}
	many[9].Value = "87654321"
	res = DetectRegistration("12345678", many)
	assert.Equal(t, SeverityLow, res.Severity)
	assert.InDelta(t, 0.9, res.Confidence, 0.001)
}

func TestDetectRegistration_NoSources(t *testing.T) {
	res := DetectRegistration("12345678", nil)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestDetectAddress_MatchingSource(t *testing.T) {
	primary := Address{Street: "1 Main St", City: "Springfield", State: "IL", Country: "US", PostalCode: "62701"}
	res := DetectAddress(primary, []SourceAddress{
		{Source: "registry", Address: primary},
	})
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, SeverityNone, res.Severity)
}

func TestDetectAddress_PartialMatch(t *testing.T) {
	primary := Address{Street: "1 Main St", City: "Springfield", State: "IL", Country: "US", PostalCode: "62701"}
	divergent := Address{Street: "99 Elm Avenue", City: "Springfield", State: "IL", Country: "US", PostalCode: "60601"}
	res := DetectAddress(primary, []SourceAddress{
		{Source: "directory", Address: divergent},
	})
	// 3 of 5 present fields match: below the 0.8 source-match threshold.
	assert.Equal(t, 0, res.Matches)
	assert.Len(t, res.Discrepancies, 1)
	entry := res.Discrepancies[0]
	assert.InDelta(t, 0.6, entry.MatchRatio, 0.001)
	// street and postal_code both differ with low similarity.
	assert.Len(t, entry.FieldDiscrepancies, 2)
	assert.Equal(t, SeverityHigh, res.Severity)
}

func TestDetectAddress_SkipsAbsentFields(t *testing.T) {
	primary := Address{City: "Springfield", Country: "US"}
	res := DetectAddress(primary, []SourceAddress{
		{Source: "a", Address: Address{City: "springfield", Country: "us", Street: "ignored"}},
	})
	assert.Equal(t, 1, res.Matches)
	assert.Equal(t, SeverityNone, res.Severity)
}

func TestDetectAddress_NoSources(t *testing.T) {
	res := DetectAddress(Address{City: "Springfield"}, nil)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestOverallConsistency_WeightsAndWorstSeverity(t *testing.T) {
	name := Result{Confidence: 1.0, Severity: SeverityNone}
	address := AddressResult{Confidence: 0.5, Severity: SeverityMedium}
	registration := Result{Confidence: 1.0, Severity: SeverityNone}

	c := OverallConsistency(name, address, registration)
	assert.InDelta(t, 1.0*0.3+0.5*0.3+1.0*0.4, c.OverallConfidence, 0.001)
	assert.Equal(t, SeverityMedium, c.Severity)
}

func TestOverallConsistency_WorstOfThreeIsHigh(t *testing.T) {
	c := OverallConsistency(
		Result{Confidence: 1.0, Severity: SeverityNone},
		AddressResult{Confidence: 1.0, Severity: SeverityNone},
		Result{Confidence: 0.0, Severity: SeverityHigh},
	)
	assert.Equal(t, SeverityHigh, c.Severity)
}

func TestWorse(t *testing.T) {
	assert.Equal(t, SeverityHigh, Worse(SeverityLow, SeverityHigh))
	assert.Equal(t, SeverityMedium, Worse(SeverityMedium, SeverityNone))
	assert.Equal(t, SeverityNone, Worse(SeverityNone, SeverityNone))
}
