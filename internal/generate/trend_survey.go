package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// trendWatchlist are the evergreen meme coins surveyed each rotation.
var trendWatchlist = []struct {
	Ticker string
	Name   string
}{
	{"PEPE", "Pepe"},
	{"DOGE", "Dogecoin"},
	{"SHIB", "Shiba Inu"},
	{"WIF", "Dogwifhat"},
	{"BONK", "Bonk"},
}

// TrendSurveyGenerator covers the trend-survey segment: narrative phases
// across the meme-coin watchlist.
type TrendSurveyGenerator struct {
	intel MarketIntel
}

func NewTrendSurveyGenerator(intel MarketIntel) *TrendSurveyGenerator {
	return &TrendSurveyGenerator{intel: intel}
}

func (g *TrendSurveyGenerator) Name() string { return "trend-survey" }

func (g *TrendSurveyGenerator) GenerateContent(ctx context.Context, sc Context) (*Output, error) {
	var b strings.Builder
	b.WriteString("=== TREND SURVEY ===\n\n")
	b.WriteString("Tracking narrative phases across top meme coins:\n\n")

	var (
		analyses []map[string]interface{}
		tokens   []TokenRef
		lastErr  error
	)

	for _, coin := range trendWatchlist {
		result, err := g.intel.Query(ctx,
			fmt.Sprintf("What's the narrative phase on $%s?", coin.Ticker), coin.Ticker)
		if err != nil {
			log.Printf("⚠️ trend-survey: query failed for %s: %v", coin.Ticker, err)
			lastErr = err
			continue
		}

		phase := result.NarrativePhase
		if phase == "" {
			phase = "Unknown"
		}

		analyses = append(analyses, map[string]interface{}{
			"token":           coin.Ticker,
			"narrative_phase": phase,
		})
		tokens = append(tokens, TokenRef{Ticker: coin.Ticker})

		fmt.Fprintf(&b, "$%s (%s)\n", coin.Ticker, coin.Name)
		fmt.Fprintf(&b, "  Narrative: %s\n", phase)
		fmt.Fprintf(&b, "  %s\n\n", phaseCommentary(phase))
	}

	// All queries failing means the gateway is down, not a quiet market.
	if len(analyses) == 0 && lastErr != nil {
		return nil, lastErr
	}

	b.WriteString("The meme economy is constantly evolving - stay vigilant!")

	return &Output{
		SpeakerNotes:   b.String(),
		FeaturedTokens: tokens,
		Analyses:       analyses,
		Metadata:       map[string]interface{}{"surveyed": len(analyses)},
	}, nil
}

func phaseCommentary(narrative string) string {
	phase := strings.ToLower(narrative)
	switch {
	case strings.Contains(phase, "discovery"):
		return "Early stage - watch for validation"
	case strings.Contains(phase, "validation"):
		return "Building momentum"
	case strings.Contains(phase, "peak"):
		return "Peak hype - consider exit timing"
	case strings.Contains(phase, "doubt"):
		return "Losing steam"
	case strings.Contains(phase, "dead"):
		return "Narrative collapsed"
	case phase == "" || phase == "unknown":
		return "No strong narrative signal"
	default:
		return "Monitoring"
	}
}
