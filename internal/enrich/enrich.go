// Package enrich adds best-effort context to a verification run. Enrichment
// failures never fail a run; the orchestrator logs and moves on.
package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/pkg/anthropic"
)

// Enrichment holds the extra signals an enricher produced for a company.
type Enrichment struct {
	Summary        string   `json:"summary,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	SuspicionScore float64  `json:"suspicion_score"`
	Flags          []string `json:"flags,omitempty"`
	Source         string   `json:"source"`
}

// Enricher produces optional enrichment for a company.
type Enricher interface {
	// Available reports whether the enricher is configured and usable.
	Available() bool
	Enrich(ctx context.Context, company *model.Company) (*Enrichment, error)
}

// Noop is an Enricher that is never available.
type Noop struct{}

func (Noop) Available() bool { return false }

func (Noop) Enrich(context.Context, *model.Company) (*Enrichment, error) {
	return nil, nil
}

// KeywordScanner flags companies whose name or domain contains suspicious
// keywords. An empty keyword list scores everything 0.
type KeywordScanner struct {
	Keywords []string
}

func (s KeywordScanner) Available() bool { return len(s.Keywords) > 0 }

func (s KeywordScanner) Enrich(_ context.Context, company *model.Company) (*Enrichment, error) {
	e := &Enrichment{Source: "keyword_scanner"}
	if len(s.Keywords) == 0 {
		return e, nil
	}
	haystack := strings.ToLower(company.LegalName + " " + company.Domain)
	for _, kw := range s.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			e.Flags = append(e.Flags, kw)
		}
	}
	if len(e.Flags) > 0 {
		e.SuspicionScore = float64(len(e.Flags)) / float64(len(s.Keywords))
	}
	return e, nil
}

const enrichSystemPrompt = `You are a business legitimacy analyst. Given company
registration details, respond with a single JSON object and nothing else:
{"summary": "<one sentence>", "industry": "<best guess or empty>",
"suspicion_score": <0.0-1.0>, "flags": ["<short reason>", ...]}
A suspicion_score of 0 means nothing unusual; 1 means almost certainly not a
real business. Base flags only on the details provided.`

// AnthropicConfig configures the model-backed enricher.
type AnthropicConfig struct {
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

func (c AnthropicConfig) withDefaults() AnthropicConfig {
	if c.Model == "" {
		c.Model = "claude-haiku-4-5-20251001"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	return c
}

type anthropicEnricher struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropic creates a model-backed enricher. A nil client yields an
// enricher that reports unavailable.
func NewAnthropic(client anthropic.Client, cfg AnthropicConfig) Enricher {
	return &anthropicEnricher{client: client, cfg: cfg.withDefaults()}
}

func (e *anthropicEnricher) Available() bool { return e.client != nil }

func (e *anthropicEnricher) Enrich(ctx context.Context, company *model.Company) (*Enrichment, error) {
	if e.client == nil {
		return nil, nil
	}

	prompt, err := buildPrompt(company)
	if err != nil {
		return nil, err
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(enrichSystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create message")
	}
	resp.Usage.LogCost(e.cfg.Model, "enrichment")

	enrichment, err := parseEnrichment(resp.Text())
	if err != nil {
		zap.L().Warn("unparseable enrichment response",
			zap.String("company_id", company.ID),
			zap.Error(err))
		return nil, err
	}
	enrichment.Source = "anthropic"
	return enrichment, nil
}

func buildPrompt(company *model.Company) (string, error) {
	details, err := json.Marshal(map[string]string{
		"legal_name":          company.LegalName,
		"registration_number": company.RegistrationNumber,
		"jurisdiction":        company.Jurisdiction,
		"domain":              company.Domain,
		"email":               company.Email,
		"phone":               company.Phone,
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: marshal company details")
	}
	return "Assess this company:\n" + string(details), nil
}

// parseEnrichment tolerates a fenced code block around the JSON object.
func parseEnrichment(text string) (*Enrichment, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var e Enrichment
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return nil, eris.Wrap(err, "enrich: decode response")
	}
	if e.SuspicionScore < 0 {
		e.SuspicionScore = 0
	}
	if e.SuspicionScore > 1 {
		e.SuspicionScore = 1
	}
	return &e, nil
}
