// Package generate produces segment content. Each segment type maps to a
// Generator capability; unregistered types fall back to a placeholder
// generator so lookups never fail.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/0xChampi/hyper-threat-tokencast/internal/community"
	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"
)

// Context carries everything a generator may need about the segment it is
// filling: identity, position, and what the show has featured so far.
type Context struct {
	ShowID        uint
	ShowNumber    int
	SegmentID     uint
	SegmentType   string
	SegmentNumber int
	Planned       time.Duration
	Elapsed       time.Duration // cumulative show time at activation
	TrackedTokens []string      // addresses featured earlier in the show
}

// TokenRef points at a token featured by a segment.
type TokenRef struct {
	Address   string  `json:"address"`
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
}

// Output is what a generator hands back to the scheduler.
type Output struct {
	SpeakerNotes   string                   `json:"speaker_notes"`
	FeaturedTokens []TokenRef               `json:"featured_tokens"`
	Analyses       []map[string]interface{} `json:"analyses"`
	Metadata       map[string]interface{}   `json:"metadata,omitempty"`
}

// Generator fills one segment type with content.
type Generator interface {
	Name() string
	GenerateContent(ctx context.Context, sc Context) (*Output, error)
}

// Gateway capabilities, defined consumer-side so tests can stub them.

// MarketIntel is the market-intelligence gateway.
type MarketIntel interface {
	AnalyzeToken(ctx context.Context, ticker, address string) (*swarm.Analysis, error)
	Query(ctx context.Context, question, ticker string) (*swarm.QueryResult, error)
}

// LaunchSource is the token-launch data gateway.
type LaunchSource interface {
	DetectLaunches(ctx context.Context, window time.Duration) ([]pumpfun.LaunchEvent, error)
	CurveProgress(ctx context.Context, address string) (float64, error)
	TokenMetrics(ctx context.Context, address string) (*pumpfun.TokenMetrics, error)
}

// CommunitySource reads the live audience feed.
type CommunitySource interface {
	Snapshot(ctx context.Context, showID uint) (*community.Snapshot, error)
}

// Registry maps segment types to generators. Lookups for valid but
// unregistered types resolve to the placeholder generator.
type Registry struct {
	generators map[string]Generator
	fallback   Generator
}

func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
		fallback:   &placeholderGenerator{},
	}
}

func (r *Registry) Register(segmentType string, g Generator) {
	r.generators[segmentType] = g
}

// For never returns nil.
func (r *Registry) For(segmentType string) Generator {
	if g, ok := r.generators[segmentType]; ok {
		return g
	}
	return r.fallback
}

// Run invokes a generator under a deadline. A generator that ignores its
// context cannot stall a transition: the call is abandoned when the
// deadline passes and treated as a failure.
func Run(ctx context.Context, g Generator, sc Context, timeout time.Duration) (*Output, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out *Output
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := g.GenerateContent(runCtx, sc)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if res.out == nil {
			return nil, fmt.Errorf("generator %s returned no output", g.Name())
		}
		return res.out, nil
	case <-runCtx.Done():
		return nil, fmt.Errorf("generator %s: %w", g.Name(), runCtx.Err())
	}
}

// Fallback is the static, generator-independent content used when
// generation fails. Availability of the show outranks completeness.
func Fallback(sc Context) *Output {
	notes := fmt.Sprintf(
		"Segment %d: %s\n\nLive data sources are temporarily unavailable.\nFree-form commentary until the next segment.",
		sc.SegmentNumber, sc.SegmentType,
	)
	return &Output{
		SpeakerNotes:   notes,
		FeaturedTokens: nil,
		Analyses:       nil,
	}
}

// placeholderGenerator serves every segment type that has no dedicated
// generator. Pass-through notes, no external calls.
type placeholderGenerator struct{}

func (g *placeholderGenerator) Name() string { return "placeholder" }

func (g *placeholderGenerator) GenerateContent(_ context.Context, sc Context) (*Output, error) {
	notes := fmt.Sprintf(
		"Segment %d: %s (planned %d min)\n\nNo dedicated generator for this segment type.\nHost improvises on the running themes of show #%d.",
		sc.SegmentNumber, sc.SegmentType, int(sc.Planned/time.Minute), sc.ShowNumber,
	)
	return &Output{
		SpeakerNotes: notes,
		Metadata:     map[string]interface{}{"placeholder": true},
	}, nil
}
