package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CommunityGenerator covers the community-interaction segment: highlights
// from the live audience feed (mentions, questions, viewers).
type CommunityGenerator struct {
	feed CommunitySource
}

func NewCommunityGenerator(feed CommunitySource) *CommunityGenerator {
	return &CommunityGenerator{feed: feed}
}

func (g *CommunityGenerator) Name() string { return "community-interaction" }

func (g *CommunityGenerator) GenerateContent(ctx context.Context, sc Context) (*Output, error) {
	snap, err := g.feed.Snapshot(ctx, sc.ShowID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("=== COMMUNITY INTERACTION ===\n\n")
	b.WriteString("Time to hear from the community!\n\n")

	hasFeedback := len(snap.Mentions) > 0 || len(snap.Questions) > 0

	if hasFeedback {
		b.WriteString("Community Highlights:\n")

		if len(snap.Mentions) > 0 {
			b.WriteString("\nMost Mentioned Tokens:\n")
			for _, m := range topMentions(snap.Mentions, 5) {
				fmt.Fprintf(&b, "  - $%s: %d mentions\n", m.ticker, m.count)
			}
		}

		if len(snap.Questions) > 0 {
			b.WriteString("\nTop Community Questions:\n")
			questions := snap.Questions
			if len(questions) > 3 {
				questions = questions[:3]
			}
			for i, q := range questions {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
			}
		}
	} else {
		b.WriteString("No community feedback captured yet.\n")
		b.WriteString("Drop your questions and token mentions in the chat!\n")
	}

	b.WriteString("\nKeep engaging - your input shapes the show!")

	return &Output{
		SpeakerNotes: b.String(),
		Metadata: map[string]interface{}{
			"has_feedback": hasFeedback,
			"viewers":      snap.Viewers,
		},
	}, nil
}

type mention struct {
	ticker string
	count  int64
}

func topMentions(mentions map[string]int64, limit int) []mention {
	out := make([]mention, 0, len(mentions))
	for ticker, count := range mentions {
		out = append(out, mention{ticker, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].ticker < out[j].ticker
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
