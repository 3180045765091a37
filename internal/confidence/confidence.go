// Package confidence converts source pedigree and cross-source agreement into
// [0,1] trust scores for individual fields and whole verification runs.
package confidence

import "strings"

// SourceType classifies where a datum came from. Official registries carry
// the most weight; unattributed or user-typed data the least.
type SourceType string

const (
	SourceOfficialRegistry SourceType = "official_registry"
	SourcePublicAPI        SourceType = "public_api"
	SourceDNSLookup        SourceType = "dns_lookup"
	SourceWebScraping      SourceType = "web_scraping"
	SourceUserProvided     SourceType = "user_provided"
	SourceAIInferred       SourceType = "ai_inferred"
)

var sourceTypeWeights = map[SourceType]float64{
	SourceOfficialRegistry: 0.95,
	SourcePublicAPI:        0.80,
	SourceDNSLookup:        0.75,
	SourceWebScraping:      0.60,
	SourceUserProvided:     0.50,
	SourceAIInferred:       0.65,
}

const defaultSourceWeight = 0.50

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SourceConfidence scores a single datum from its source type, a data quality
// estimate in [0,1], and whether the datum was independently verified.
func SourceConfidence(sourceType SourceType, dataQuality float64, verified bool) float64 {
	base, ok := sourceTypeWeights[sourceType]
	if !ok {
		base = defaultSourceWeight
	}
	score := base + dataQuality*0.2
	if verified {
		score += 0.1
	} else {
		score -= 0.1
	}
	return clamp01(score)
}

// FieldSource is one source's report of a field value with its own confidence.
type FieldSource struct {
	Source     string  `json:"source"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

func valuesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FieldConfidence scores a field value against the sources that reported it.
// With cross-validation, matching sources keep their full confidence weight
// while disagreeing sources keep 30%, and unanimous agreement earns up to a
// 0.2 consistency bonus. Without cross-validation the best single source wins.
// Empty value or no sources scores zero.
func FieldConfidence(fieldValue string, sources []FieldSource, crossValidation bool) float64 {
	if len(sources) == 0 || fieldValue == "" {
		return 0.0
	}

	if !crossValidation {
		best := 0.0
		for _, s := range sources {
			if s.Confidence > best {
				best = s.Confidence
			}
		}
		return clamp01(best)
	}

	var weightedSum, totalWeight float64
	matching := 0
	for _, s := range sources {
		weight := s.Confidence
		if s.Value != "" && valuesEqual(s.Value, fieldValue) {
			matching++
		} else {
			weight *= 0.3
		}
		weightedSum += weight
		totalWeight += s.Confidence
	}
	if totalWeight == 0 {
		return 0.0
	}

	base := weightedSum / totalWeight
	bonus := float64(matching) / float64(len(sources)) * 0.2
	return clamp01(base + bonus)
}

// Level is the qualitative label for an overall confidence score.
type Level string

const (
	LevelVeryHigh Level = "very_high"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelVeryLow  Level = "very_low"
)

func levelFor(score float64) Level {
	switch {
	case score >= 0.9:
		return LevelVeryHigh
	case score >= 0.75:
		return LevelHigh
	case score >= 0.60:
		return LevelMedium
	case score >= 0.40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Overall is the rolled-up confidence for a verification run.
type Overall struct {
	Score              float64            `json:"overall_confidence"`
	Level              Level              `json:"confidence_level"`
	Breakdown          map[string]float64 `json:"breakdown"`
	DiscrepancyScore   float64            `json:"discrepancy_score"`
	DiscrepancyPenalty float64            `json:"discrepancy_penalty"`
}

// Verification dimension weights. Registration agreement carries the most.
const (
	dnsWeight          = 0.20
	registrationWeight = 0.35
	contactWeight      = 0.25
	addressWeight      = 0.20
)

// OverallConfidence combines per-dimension confidences into one score, then
// subtracts a penalty proportional to cross-source inconsistency.
func OverallConfidence(dns, registration, contact, address, discrepancyScore float64) Overall {
	weighted := dns*dnsWeight +
		registration*registrationWeight +
		contact*contactWeight +
		address*addressWeight
	penalty := (1.0 - discrepancyScore) * 0.15
	score := clamp01(weighted - penalty)

	return Overall{
		Score: score,
		Level: levelFor(score),
		Breakdown: map[string]float64{
			"dns":          dns,
			"registration": registration,
			"contact":      contact,
			"address":      address,
		},
		DiscrepancyScore:   discrepancyScore,
		DiscrepancyPenalty: penalty,
	}
}

// ReliabilitySource pairs a source with its historical reliability score.
type ReliabilitySource struct {
	Source      string  `json:"source"`
	Reliability float64 `json:"reliability"`
}

// SourceReliabilityAvg averages source reliabilities, defaulting to moderate
// reliability when nothing is known.
func SourceReliabilityAvg(sources []ReliabilitySource) float64 {
	if len(sources) == 0 {
		return 0.5
	}
	var sum float64
	for _, s := range sources {
		sum += s.Reliability
	}
	return sum / float64(len(sources))
}
