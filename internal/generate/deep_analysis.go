package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"
)

// defaultTicker is analyzed when the show has not featured any token yet.
const defaultTicker = "PEPE"

// DeepAnalysisGenerator covers the deep-analysis segment: one full
// market-intelligence pass over the most recently featured token.
type DeepAnalysisGenerator struct {
	intel MarketIntel
}

func NewDeepAnalysisGenerator(intel MarketIntel) *DeepAnalysisGenerator {
	return &DeepAnalysisGenerator{intel: intel}
}

func (g *DeepAnalysisGenerator) Name() string { return "deep-analysis" }

func (g *DeepAnalysisGenerator) GenerateContent(ctx context.Context, sc Context) (*Output, error) {
	ticker := defaultTicker
	address := ""
	if n := len(sc.TrackedTokens); n > 0 {
		address = sc.TrackedTokens[n-1]
		ticker = "" // resolved by the service from the address
	}

	analysis, err := g.intel.AnalyzeToken(ctx, ticker, address)
	if err != nil {
		return nil, err
	}
	if analysis.Ticker != "" {
		ticker = analysis.Ticker
	}

	record := map[string]interface{}{
		"token":                   ticker,
		"regime":                  analysis.Regime,
		"narrative_phase":         analysis.NarrativePhase,
		"risk_score":              analysis.RiskScore,
		"confidence":              analysis.Confidence,
		"position_recommendation": analysis.PositionRecommendation,
		"divergence_detected":     analysis.DivergenceDetected,
	}

	return &Output{
		SpeakerNotes:   formatDeepAnalysis(ticker, analysis),
		FeaturedTokens: []TokenRef{{Address: address, Ticker: ticker}},
		Analyses:       []map[string]interface{}{record},
		Metadata:       map[string]interface{}{"analyzed_token": ticker},
	}, nil
}

func formatDeepAnalysis(ticker string, a *swarm.Analysis) string {
	var b strings.Builder
	b.WriteString("=== DEEP ANALYSIS ===\n\n")
	fmt.Fprintf(&b, "Token: $%s\n\n", ticker)

	b.WriteString("Charts & Risk:\n")
	fmt.Fprintf(&b, "  - Regime: %s\n", orUnknown(a.Regime))
	fmt.Fprintf(&b, "  - Confidence: %.1f%%\n", a.Confidence*100)
	fmt.Fprintf(&b, "  - Risk Score: %.2f\n", a.RiskScore)
	fmt.Fprintf(&b, "  - Position: %s\n\n", orNone(a.PositionRecommendation))

	b.WriteString("Social & Narrative:\n")
	fmt.Fprintf(&b, "  - Narrative Phase: %s\n", orUnknown(a.NarrativePhase))
	fmt.Fprintf(&b, "  - Divergence: %s\n\n", divergenceLabel(a.DivergenceDetected))

	b.WriteString("FINAL ASSESSMENT:\n")
	fmt.Fprintf(&b, "  %s", assessment(a))

	return b.String()
}

func assessment(a *swarm.Analysis) string {
	regime := strings.ToLower(a.Regime)

	if a.DivergenceDetected {
		return "CAUTION: Divergence detected. Price and narrative misaligned."
	}
	if strings.Contains(regime, "breakout") && a.RiskScore < 0.5 {
		return "OPPORTUNITY: Low risk breakout forming."
	}
	if strings.Contains(regime, "euphoria") || a.RiskScore > 0.7 {
		return "HIGH RISK: Euphoric conditions, consider taking profits."
	}
	if strings.Contains(regime, "accumulation") {
		return "WATCH: Accumulation phase, build position carefully."
	}
	return "NEUTRAL: No strong signal, monitor for changes."
}

func divergenceLabel(detected bool) string {
	if detected {
		return "DETECTED"
	}
	return "None"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
