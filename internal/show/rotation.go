package show

import "time"

// Segment types in the fixed rotation.
const (
	TypeLaunchMonitor        = "launch-monitor"
	TypeDeepAnalysis         = "deep-analysis"
	TypeCreativeBreak        = "creative-break"
	TypeTrendSurvey          = "trend-survey"
	TypeSingleTokenDeepDive  = "single-token-deep-dive"
	TypeCommunityInteraction = "community-interaction"
	TypeMetaBreakdown        = "meta-breakdown"
	TypeNarrativeInsight     = "narrative-insight"
)

// RotationEntry is one slot in the show's fixed segment sequence.
type RotationEntry struct {
	Type    string        `json:"type"`
	Planned time.Duration `json:"-"`
}

// PlannedSecs returns the planned duration in whole seconds, the unit
// persisted on Segment rows.
func (e RotationEntry) PlannedSecs() int {
	return int(e.Planned / time.Second)
}

// DefaultRotation is the eight-segment sequence a show traverses exactly
// once. It does not loop within a show.
func DefaultRotation() []RotationEntry {
	return []RotationEntry{
		{Type: TypeLaunchMonitor, Planned: 7 * time.Minute},
		{Type: TypeDeepAnalysis, Planned: 9 * time.Minute},
		{Type: TypeCreativeBreak, Planned: 5 * time.Minute},
		{Type: TypeTrendSurvey, Planned: 7 * time.Minute},
		{Type: TypeSingleTokenDeepDive, Planned: 10 * time.Minute},
		{Type: TypeCommunityInteraction, Planned: 7 * time.Minute},
		{Type: TypeMetaBreakdown, Planned: 9 * time.Minute},
		{Type: TypeNarrativeInsight, Planned: 8 * time.Minute},
	}
}
