package show

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/0xChampi/hyper-threat-tokencast/internal/generate"
	"github.com/0xChampi/hyper-threat-tokencast/internal/models"
)

// Lifecycle events pushed to the publisher.
const (
	EventShowStarted = "show.started"
	EventSegmentLive = "segment.live"
	EventShowEnded   = "show.ended"
)

// EventPublisher receives lifecycle events. Best-effort; publish failures
// never interrupt the show.
type EventPublisher interface {
	Publish(event string, data interface{}) error
}

// ViewerSource reports the live audience size for a show.
type ViewerSource interface {
	Viewers(ctx context.Context, showID uint) int64
}

type Options struct {
	AutoTransition   bool
	GeneratorTimeout time.Duration
	Rotation         []RotationEntry // nil means DefaultRotation
	Publisher        EventPublisher  // optional
	Viewers          ViewerSource    // optional
}

// Orchestrator owns the show lifecycle. The mutex is the single exclusion
// point for every mutation of the live show/segment pair; generator and
// gateway calls happen outside it, with the resulting state write
// re-entering the lock.
type Orchestrator struct {
	mu    sync.Mutex
	store *Store
	reg   *generate.Registry
	clock Clock
	opts  Options

	sched *Scheduler
	live  *liveState // nil when no show is live
}

type liveState struct {
	show      models.Show
	segment   models.Segment
	completed int      // segments completed so far
	tokens    []string // addresses featured so far, in order
}

func NewOrchestrator(store *Store, reg *generate.Registry, clock Clock, opts Options) *Orchestrator {
	if opts.GeneratorTimeout <= 0 {
		opts.GeneratorTimeout = 20 * time.Second
	}
	return &Orchestrator{
		store: store,
		reg:   reg,
		clock: clock,
		opts:  opts,
	}
}

// Reconcile finalizes anything a previous process left live. Called once
// at boot, before the orchestrator accepts commands.
func (o *Orchestrator) Reconcile() error {
	dangling, err := o.store.CurrentLive()
	if err != nil {
		return err
	}
	if dangling == nil {
		return nil
	}
	log.Printf("⚠️ Show #%d was left live by a previous run, finalizing", dangling.ShowNumber)
	if _, err := o.store.ReconcileDangling(o.clock.Now()); err != nil {
		return err
	}
	return nil
}

// Start creates a new show and activates the first rotation segment.
// Fails with ErrConflict when a show is already live.
func (o *Orchestrator) Start(estimatedMinutes int) (*models.Show, *models.Segment, error) {
	if estimatedMinutes <= 0 {
		return nil, nil, fmt.Errorf("estimated duration must be positive: %w", ErrValidation)
	}

	o.mu.Lock()
	if o.live != nil {
		num := o.live.show.ShowNumber
		o.mu.Unlock()
		return nil, nil, fmt.Errorf("show #%d is already live: %w", num, ErrConflict)
	}

	num, err := o.store.NextShowNumber()
	if err != nil {
		o.mu.Unlock()
		return nil, nil, err
	}

	now := o.clock.Now()
	sh := models.Show{
		ShowNumber:        num,
		StartedAt:         now,
		Status:            models.ShowLive,
		EstimatedDuration: estimatedMinutes,
	}

	sched := NewSchedulerWith(o.rotationEntries())
	entry, _ := sched.Advance() // index 0, the sequence is never empty

	seg := models.Segment{
		SegmentType:   entry.Type,
		SegmentNumber: 1,
		StartedAt:     now,
		PlannedSecs:   entry.PlannedSecs(),
		Status:        models.SegmentLive,
	}

	if err := o.store.StartShow(&sh, &seg); err != nil {
		o.mu.Unlock()
		return nil, nil, err
	}

	o.sched = sched
	o.live = &liveState{show: sh, segment: seg}

	showsStarted.Inc()
	segmentsActivated.WithLabelValues(entry.Type).Inc()
	log.Printf("🎬 Started show #%d (ID: %d)", sh.ShowNumber, sh.ID)
	log.Printf("▶️  Segment #1: %s (%ds planned)", entry.Type, seg.PlannedSecs)

	genCtx := o.genContextLocked(entry)
	o.armTimerLocked(seg, entry.Planned)
	o.mu.Unlock()

	o.publish(EventShowStarted, map[string]interface{}{
		"show_id":     sh.ID,
		"show_number": sh.ShowNumber,
		"started_at":  sh.StartedAt,
	})

	o.generateAndPersist(seg, genCtx)

	showCopy, segCopy := o.freshCopies(sh.ID, seg.ID, sh, seg)
	return &showCopy, &segCopy, nil
}

// Transition completes the live segment and activates the next one as a
// single unit. fromSegmentID identifies the segment the trigger intends to
// complete; when that segment is no longer live the call is an idempotent
// no-op returning the currently live segment. Zero means "whatever is
// live". The second return value is true when the rotation is exhausted
// and the show was auto-finalized.
func (o *Orchestrator) Transition(fromSegmentID uint) (*models.Segment, bool, error) {
	o.mu.Lock()
	if o.live == nil {
		o.mu.Unlock()
		return nil, false, fmt.Errorf("no show is currently live: %w", ErrNotFound)
	}

	cur := o.live.segment
	if fromSegmentID != 0 && fromSegmentID != cur.ID {
		// The race was already won by another trigger. No further mutation.
		segCopy := cur
		o.mu.Unlock()
		return &segCopy, false, nil
	}

	now := o.clock.Now()

	entry, ok := o.sched.Peek()
	if !ok {
		// Sequence exhausted: finalize exactly as if End() had been called.
		showCopy, err := o.finalizeLocked(now)
		o.mu.Unlock()
		if err != nil {
			return nil, false, err
		}
		log.Printf("🏁 Show #%d completed all segments", showCopy.ShowNumber)
		o.publish(EventShowEnded, map[string]interface{}{
			"show_id":     showCopy.ID,
			"show_number": showCopy.ShowNumber,
			"ended_at":    showCopy.EndedAt,
		})
		return nil, true, nil
	}

	next := models.Segment{
		ShowID:        cur.ShowID,
		SegmentType:   entry.Type,
		SegmentNumber: cur.SegmentNumber + 1,
		StartedAt:     now,
		PlannedSecs:   entry.PlannedSecs(),
		Status:        models.SegmentLive,
	}

	curCopy := cur
	curCopy.ViewerCount = o.viewerCountLocked(cur.ShowID)
	if err := o.store.CompleteAndActivate(&curCopy, &next, now); err != nil {
		o.mu.Unlock()
		return nil, false, err
	}
	o.sched.Advance()

	o.live.segment = next
	o.live.completed++

	segmentsActivated.WithLabelValues(entry.Type).Inc()
	log.Printf("▶️  Segment #%d: %s (previous ran %ds)", next.SegmentNumber, entry.Type, curCopy.ActualSecs)

	genCtx := o.genContextLocked(entry)
	o.armTimerLocked(next, entry.Planned)
	segCopy := next
	showID := o.live.show.ID
	o.mu.Unlock()

	o.publish(EventSegmentLive, map[string]interface{}{
		"show_id":        showID,
		"segment_id":     segCopy.ID,
		"segment_type":   segCopy.SegmentType,
		"segment_number": segCopy.SegmentNumber,
	})

	o.generateAndPersist(segCopy, genCtx)

	_, segCopy = o.freshCopies(showID, segCopy.ID, models.Show{}, segCopy)
	return &segCopy, false, nil
}

// End finalizes the live show: the live segment completes first, then the
// show, and the pending automatic transition is cancelled.
func (o *Orchestrator) End() (*models.Show, error) {
	o.mu.Lock()
	if o.live == nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("no show is currently live: %w", ErrNotFound)
	}

	showCopy, err := o.finalizeLocked(o.clock.Now())
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Printf("🏁 Ended show #%d", showCopy.ShowNumber)
	o.publish(EventShowEnded, map[string]interface{}{
		"show_id":     showCopy.ID,
		"show_number": showCopy.ShowNumber,
		"ended_at":    showCopy.EndedAt,
	})
	return &showCopy, nil
}

// finalizeLocked completes the live segment (if any) and then the show,
// cancels the timer and clears the live singleton. Caller holds the lock.
func (o *Orchestrator) finalizeLocked(now time.Time) (models.Show, error) {
	o.sched.Cancel()

	ls := o.live
	viewers := o.viewerCountLocked(ls.show.ID)
	ls.show.ViewerCount = viewers

	var segPtr *models.Segment
	if ls.segment.Status == models.SegmentLive {
		seg := ls.segment
		seg.ViewerCount = viewers
		segPtr = &seg
	}

	if err := o.store.FinalizeShow(&ls.show, segPtr, now); err != nil {
		return models.Show{}, err
	}

	showCopy := ls.show
	o.live = nil
	o.sched = nil
	return showCopy, nil
}

// SegmentView is the live segment portion of a state snapshot.
type SegmentView struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Number      int       `json:"number"`
	StartedAt   time.Time `json:"started_at"`
	PlannedSecs int       `json:"planned_seconds"`
}

// RemainingView is one not-yet-played rotation entry.
type RemainingView struct {
	Type        string `json:"type"`
	PlannedSecs int    `json:"planned_seconds"`
}

// Snapshot is a consistent point-in-time view of the live show.
type Snapshot struct {
	ShowID            uint            `json:"show_id"`
	ShowNumber        int             `json:"show_number"`
	Status            string          `json:"status"`
	StartedAt         time.Time       `json:"started_at"`
	Segment           SegmentView     `json:"current_segment"`
	SegmentsCompleted int             `json:"segments_completed"`
	Remaining         []RemainingView `json:"remaining_segments"`
}

// CurrentState returns a read-only snapshot of the live show, taken under
// the exclusion point so it never exposes a record mid-mutation.
func (o *Orchestrator) CurrentState() (*Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.live == nil {
		return nil, fmt.Errorf("no show is currently live: %w", ErrNotFound)
	}

	ls := o.live
	remaining := o.sched.Remaining()
	views := make([]RemainingView, 0, len(remaining))
	for _, e := range remaining {
		views = append(views, RemainingView{Type: e.Type, PlannedSecs: e.PlannedSecs()})
	}

	return &Snapshot{
		ShowID:     ls.show.ID,
		ShowNumber: ls.show.ShowNumber,
		Status:     ls.show.Status,
		StartedAt:  ls.show.StartedAt,
		Segment: SegmentView{
			ID:          ls.segment.ID,
			Type:        ls.segment.SegmentType,
			Number:      ls.segment.SegmentNumber,
			StartedAt:   ls.segment.StartedAt,
			PlannedSecs: ls.segment.PlannedSecs,
		},
		SegmentsCompleted: ls.completed,
		Remaining:         views,
	}, nil
}

// GetShow loads a show with its segments ordered by number.
func (o *Orchestrator) GetShow(id uint) (*models.Show, error) {
	return o.store.GetShow(id)
}

// genContextLocked builds the generator context for the live segment.
func (o *Orchestrator) genContextLocked(entry RotationEntry) generate.Context {
	ls := o.live
	return generate.Context{
		ShowID:        ls.show.ID,
		ShowNumber:    ls.show.ShowNumber,
		SegmentID:     ls.segment.ID,
		SegmentType:   ls.segment.SegmentType,
		SegmentNumber: ls.segment.SegmentNumber,
		Planned:       entry.Planned,
		Elapsed:       o.clock.Now().Sub(ls.show.StartedAt),
		TrackedTokens: append([]string(nil), ls.tokens...),
	}
}

// rotationEntries returns the configured rotation, defaulting to the
// standard eight-segment sequence.
func (o *Orchestrator) rotationEntries() []RotationEntry {
	if len(o.opts.Rotation) > 0 {
		return o.opts.Rotation
	}
	return DefaultRotation()
}

// viewerCountLocked reads the live audience size, 0 without a source.
func (o *Orchestrator) viewerCountLocked(showID uint) int {
	if o.opts.Viewers == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return int(o.opts.Viewers.Viewers(ctx, showID))
}

// armTimerLocked schedules the automatic transition for a segment. The
// timer carries the segment id it was armed for, so a late fire after a
// manual skip is a no-op.
func (o *Orchestrator) armTimerLocked(seg models.Segment, planned time.Duration) {
	if !o.opts.AutoTransition {
		return
	}
	segID := seg.ID
	o.sched.Arm(planned, func() {
		if _, ended, err := o.Transition(segID); err != nil {
			log.Printf("⚠️ Automatic transition failed: %v", err)
		} else if ended {
			log.Printf("🏁 Rotation exhausted, show auto-finalized")
		}
	})
}

// generateAndPersist runs the generator for an activated segment, outside
// the lock, then re-enters it to write the result. Failure or timeout
// degrades to fallback content; the segment stays live either way.
func (o *Orchestrator) generateAndPersist(seg models.Segment, genCtx generate.Context) {
	g := o.reg.For(seg.SegmentType)

	started := time.Now()
	out, err := generate.Run(context.Background(), g, genCtx, o.opts.GeneratorTimeout)
	generationDuration.WithLabelValues(seg.SegmentType).Observe(time.Since(started).Seconds())

	source := models.SourceGenerator
	if err != nil {
		log.Printf("⚠️ Generator %s failed for segment #%d: %v (using fallback)", g.Name(), seg.SegmentNumber, err)
		generatorFailures.WithLabelValues(seg.SegmentType).Inc()
		out = generate.Fallback(genCtx)
		source = models.SourceFallback
	}

	payload := marshalPayload(out)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SaveSegmentContent(seg.ID, out.SpeakerNotes, payload, source); err != nil {
		log.Printf("❌ Failed to persist content for segment %d: %v", seg.ID, err)
		return
	}

	now := o.clock.Now()
	for _, t := range out.FeaturedTokens {
		if t.Address == "" {
			continue
		}
		tok := models.TrackedToken{
			Address:        t.Address,
			Ticker:         t.Ticker,
			DiscoveredAt:   now,
			CurrentPrice:   t.Price,
			MarketCap:      t.MarketCap,
			TrackingStatus: models.TrackingActive,
		}
		if err := o.store.UpsertToken(&tok); err != nil {
			log.Printf("⚠️ Failed to track token %s: %v", t.Address, err)
			continue
		}
		if o.live != nil && o.live.show.ID == seg.ShowID {
			o.live.tokens = appendUnique(o.live.tokens, t.Address)
		}
	}

	if o.live != nil && o.live.segment.ID == seg.ID {
		o.live.segment.SpeakerNotes = out.SpeakerNotes
		o.live.segment.GeneratedPayload = payload
		o.live.segment.ContentSource = source
	}
}

// freshCopies re-reads the in-memory copies under the lock after content
// generation, falling back to the pre-generation values when the show has
// already moved on.
func (o *Orchestrator) freshCopies(showID, segID uint, sh models.Show, seg models.Segment) (models.Show, models.Segment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.live != nil && o.live.show.ID == showID {
		sh = o.live.show
	}
	if o.live != nil && o.live.segment.ID == segID {
		seg = o.live.segment
	}
	return sh, seg
}

func (o *Orchestrator) publish(event string, data interface{}) {
	if o.opts.Publisher == nil {
		return
	}
	go func() { _ = o.opts.Publisher.Publish(event, data) }()
}

type payloadDoc struct {
	Analyses       []map[string]interface{} `json:"analyses"`
	FeaturedTokens []generate.TokenRef      `json:"featured_tokens"`
	Metadata       map[string]interface{}   `json:"metadata,omitempty"`
}

func marshalPayload(out *generate.Output) string {
	doc := payloadDoc{
		Analyses:       out.Analyses,
		FeaturedTokens: out.FeaturedTokens,
		Metadata:       out.Metadata,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
