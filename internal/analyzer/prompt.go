package analyzer

import (
	"fmt"
	"strings"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// buildPrompt renders the analysis prompt for a pair. The optional metrics
// are appended only when the upstream API provided them.
func buildPrompt(symbolA, symbolB string, m *model.Metrics) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an expert cryptocurrency pairs trading analyst. Analyze the following trading pair metrics and provide detailed reasoning.

**Trading Pair:** %s / %s

**Statistical Metrics:**
- Z-Score: %.4f
- Correlation: %.4f
- Spread Mean: %.6f
- Spread Std Dev: %.6f
- Beta (hedge ratio): %.4f
- Volatility: %.4f
`, symbolA, symbolB, m.ZScore, m.Corr, m.Mean, m.Std, m.Beta, m.Volatility)

	var extended []string
	if m.CurrentSpread != nil {
		extended = append(extended, fmt.Sprintf("- Current Spread: %.6f", *m.CurrentSpread))
	}
	if m.HalfLife != nil {
		extended = append(extended, fmt.Sprintf("- Half-life: %.4f", *m.HalfLife))
	}
	if m.CointegrationPValue != nil {
		extended = append(extended, fmt.Sprintf("- Cointegration p-value: %.4f", *m.CointegrationPValue))
	}
	if m.IsCointegrated != nil {
		extended = append(extended, fmt.Sprintf("- Cointegrated: %t", *m.IsCointegrated))
	}
	if m.Sharpe != nil {
		extended = append(extended, fmt.Sprintf("- Sharpe: %.4f", *m.Sharpe))
	}
	if m.SignalType != nil {
		extended = append(extended, "- Upstream signal: "+*m.SignalType)
	}
	if len(extended) > 0 {
		b.WriteString("\n**Additional Metrics:**\n")
		b.WriteString(strings.Join(extended, "\n"))
		b.WriteString("\n")
	}

	b.WriteString(`
**Analysis Requirements:**
1. **Signal Strength**: Evaluate if Z-score indicates a trading opportunity (typically |Z| > 2.0 suggests mean reversion opportunity)
2. **Pair Suitability**: Assess correlation strength (>0.7 is good for pairs trading)
3. **Risk Assessment**: Consider volatility and spread characteristics
4. **Trading Recommendation**: Provide clear LONG/SHORT/NEUTRAL recommendation with confidence level
5. **Reasoning**: Explain the statistical rationale step-by-step

**Output Format (JSON):**
` + "```json" + `
{
  "signal": "LONG" | "SHORT" | "NEUTRAL",
  "confidence": 0.0-1.0,
  "reasoning": "detailed explanation with statistical justification",
  "risk_level": "LOW" | "MEDIUM" | "HIGH",
  "key_factors": ["factor1", "factor2", ...],
  "entry_recommendation": "specific guidance on entry timing"
}
` + "```" + `

Provide your analysis now:`)

	return b.String()
}
