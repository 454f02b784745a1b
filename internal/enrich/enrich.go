// Package enrich produces the lay-language fields for a candidate: a
// plain-English explanation, key takeaways, and a technical summary.
// With a configured generation service any failure is fatal to the run;
// without one a deterministic offline fallback is used.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tofu-daddy/longevity-hub/internal/config"
	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// technicalSummaryMax caps the fallback technical summary length.
const technicalSummaryMax = 700

// Result holds the three generated fields for one candidate.
type Result struct {
	LaymansExplanation string
	KeyTakeaways       []string
	TechnicalSummary   string
}

// Enricher generates lay-language fields for a candidate.
type Enricher interface {
	Enrich(ctx context.Context, title, abstract string) (Result, error)
}

// New creates an Enricher from the AI config. A missing credential
// selects the offline fallback, never an error; an unknown provider is a
// configuration mistake and fails.
func New(cfg *config.AIConfig, apiKey string) (Enricher, error) {
	if cfg == nil || apiKey == "" {
		return Fallback{}, nil
	}

	client := &http.Client{Timeout: 60 * time.Second}

	switch cfg.Provider {
	case "claude":
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return &claudeProvider{apiKey: apiKey, model: model, client: client, baseURL: claudeBaseURL}, nil
	case "openai", "":
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &openaiProvider{apiKey: apiKey, model: model, client: client, baseURL: openaiBaseURL}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: claude, openai)", cfg.Provider)
	}
}

const enrichPrompt = `You are a longevity science communicator. Return strict JSON with keys laymansExplanation (free text), keyTakeaways (array of exactly 3 strings), technicalSummary (free text). Vary opening style (do not always start with 'Imagine').

Title: %s
Abstract: %s`

// parsePayload decodes the provider's JSON object, tolerating camelCase
// or snake_case key spellings and a surrounding markdown code fence. An
// undecodable payload is an error: enrichment is all-or-nothing per run.
func parsePayload(text, abstract string) (Result, error) {
	var raw struct {
		LaymansExplanation      string   `json:"laymansExplanation"`
		LaymansExplanationSnake string   `json:"laymans_explanation"`
		KeyTakeaways            []string `json:"keyTakeaways"`
		KeyTakeawaysSnake       []string `json:"key_takeaways"`
		TechnicalSummary        string   `json:"technicalSummary"`
		TechnicalSummarySnake   string   `json:"technical_summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return Result{}, fmt.Errorf("parsing enrichment response: %w", err)
	}

	r := Result{
		LaymansExplanation: coalesce(raw.LaymansExplanation, raw.LaymansExplanationSnake),
		KeyTakeaways:       raw.KeyTakeaways,
		TechnicalSummary:   coalesce(raw.TechnicalSummary, raw.TechnicalSummarySnake),
	}
	if len(r.KeyTakeaways) == 0 {
		r.KeyTakeaways = raw.KeyTakeawaysSnake
	}
	if r.TechnicalSummary == "" {
		r.TechnicalSummary = normalize.Truncate(abstract, technicalSummaryMax)
	}
	return r, nil
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
