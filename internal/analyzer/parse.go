package analyzer

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// extractJSON pulls a JSON object out of a model reply, which may wrap it
// in a ```json fence, a bare fence, or return it raw.
func extractJSON(raw string) string {
	if i := strings.Index(raw, "```json"); i >= 0 {
		rest := raw[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	return strings.TrimSpace(raw)
}

// parseAnalysis decodes the model reply into an Analysis, backfilling any
// missing fields. A reply that is not JSON at all degrades to a NEUTRAL
// result carrying the raw text as reasoning, so the caller still gets a
// well-formed answer.
func parseAnalysis(raw string) *model.Analysis {
	var parsed struct {
		Signal              string   `json:"signal"`
		Confidence          *float64 `json:"confidence"`
		Reasoning           string   `json:"reasoning"`
		RiskLevel           string   `json:"risk_level"`
		KeyFactors          []string `json:"key_factors"`
		EntryRecommendation string   `json:"entry_recommendation"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		log.Printf("[WARN] failed to parse model reply as JSON: %v", err)
		return &model.Analysis{
			Signal:              model.SignalNeutral,
			Confidence:          0.5,
			Reasoning:           raw,
			RiskLevel:           model.RiskMedium,
			KeyFactors:          []string{},
			EntryRecommendation: "Manual review recommended",
		}
	}

	a := &model.Analysis{
		Signal:              model.Signal(strings.ToUpper(parsed.Signal)),
		Confidence:          0.5,
		Reasoning:           parsed.Reasoning,
		RiskLevel:           model.RiskLevel(strings.ToUpper(parsed.RiskLevel)),
		KeyFactors:          parsed.KeyFactors,
		EntryRecommendation: parsed.EntryRecommendation,
	}
	if parsed.Confidence != nil {
		a.Confidence = *parsed.Confidence
	}
	switch a.Signal {
	case model.SignalLong, model.SignalShort, model.SignalNeutral:
	default:
		a.Signal = model.SignalNeutral
	}
	switch a.RiskLevel {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		a.RiskLevel = model.RiskMedium
	}
	if a.Reasoning == "" {
		a.Reasoning = "No reasoning available"
	}
	if a.KeyFactors == nil {
		a.KeyFactors = []string{}
	}
	if a.EntryRecommendation == "" {
		a.EntryRecommendation = "Consult additional sources"
	}
	return a
}
