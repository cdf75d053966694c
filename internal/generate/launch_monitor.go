package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
)

const launchLookback = 5 * time.Minute

// LaunchMonitorGenerator covers the launch-monitor segment: fresh launchpad
// deployments from the last few minutes, the top ones run through market
// intelligence.
type LaunchMonitorGenerator struct {
	launches LaunchSource
	intel    MarketIntel
}

func NewLaunchMonitorGenerator(launches LaunchSource, intel MarketIntel) *LaunchMonitorGenerator {
	return &LaunchMonitorGenerator{launches: launches, intel: intel}
}

func (g *LaunchMonitorGenerator) Name() string { return "launch-monitor" }

func (g *LaunchMonitorGenerator) GenerateContent(ctx context.Context, sc Context) (*Output, error) {
	events, err := g.launches.DetectLaunches(ctx, launchLookback)
	if err != nil {
		return nil, err
	}

	// A quiet window is content, not a failure.
	if len(events) == 0 {
		return &Output{
			SpeakerNotes: quietLaunchNotes(),
			Metadata:     map[string]interface{}{"launch_count": 0},
		}, nil
	}

	if len(events) > 3 {
		events = events[:3]
	}

	var (
		tokens     []TokenRef
		analyses   []map[string]interface{}
		progresses = make([]float64, len(events))
	)

	for i, ev := range events {
		tokens = append(tokens, TokenRef{
			Address: ev.TokenAddress,
			Ticker:  ev.Ticker,
			Price:   ev.InitialPrice,
		})

		// Curve progress is flavor, not load-bearing; -1 hides the line.
		progresses[i] = -1
		if p, err := g.launches.CurveProgress(ctx, ev.TokenAddress); err == nil {
			progresses[i] = p
		}

		// Per-token analysis failures are skipped, not fatal.
		analysis, err := g.intel.AnalyzeToken(ctx, ev.Ticker, ev.TokenAddress)
		if err != nil {
			log.Printf("⚠️ launch-monitor: analysis failed for %s: %v", ev.Ticker, err)
			continue
		}
		analyses = append(analyses, map[string]interface{}{
			"token":           ev.Ticker,
			"regime":          analysis.Regime,
			"narrative_phase": analysis.NarrativePhase,
			"risk_score":      analysis.RiskScore,
		})
	}

	return &Output{
		SpeakerNotes:   formatLaunchNotes(events, progresses, analyses),
		FeaturedTokens: tokens,
		Analyses:       analyses,
		Metadata:       map[string]interface{}{"launch_count": len(events)},
	}, nil
}

func quietLaunchNotes() string {
	return strings.TrimSpace(`
=== LAUNCH MONITOR ===

No new launches detected in the past 5 minutes.
The launchpad pipeline is quiet right now.

We'll check back next segment for fresh deployments.`)
}

func formatLaunchNotes(events []pumpfun.LaunchEvent, progresses []float64, analyses []map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("=== LAUNCH MONITOR ===\n\n")
	fmt.Fprintf(&b, "Detected %d fresh launches in the past 5 minutes:\n\n", len(events))

	for i, ev := range events {
		ticker := ev.Ticker
		if ticker == "" {
			ticker = "UNKNOWN"
		}
		addr := ev.TokenAddress
		if len(addr) > 10 {
			addr = addr[:10] + "..."
		}

		fmt.Fprintf(&b, "%d. $%s\n", i+1, ticker)
		fmt.Fprintf(&b, "   Address: %s\n", addr)
		fmt.Fprintf(&b, "   Launch Price: $%.8f\n", ev.InitialPrice)
		if progresses[i] >= 0 {
			fmt.Fprintf(&b, "   Curve Progress: %.1f%%\n", progresses[i])
		}

		if i < len(analyses) {
			a := analyses[i]
			fmt.Fprintf(&b, "   Regime: %v\n", a["regime"])
			fmt.Fprintf(&b, "   Narrative: %v\n", a["narrative_phase"])
			if risk, ok := a["risk_score"].(float64); ok {
				fmt.Fprintf(&b, "   Risk: %.2f (%s)\n", risk, riskLabel(risk))
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func riskLabel(risk float64) string {
	switch {
	case risk > 0.7:
		return "HIGH"
	case risk > 0.4:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
