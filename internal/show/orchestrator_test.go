package show

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/0xChampi/hyper-threat-tokencast/internal/generate"
	"github.com/0xChampi/hyper-threat-tokencast/internal/models"
)

// Helper to create a disposable in-memory DB
func setupShowDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := d.AutoMigrate(&models.Show{}, &models.Segment{}, &models.TrackedToken{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	// A second pool connection would open a second empty :memory: db.
	sqlDB, _ := d.DB()
	sqlDB.SetMaxOpenConns(1)
	return d
}

// stubGenerator returns canned output or a canned error.
type stubGenerator struct {
	notes  string
	tokens []generate.TokenRef
	err    error
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) GenerateContent(_ context.Context, _ generate.Context) (*generate.Output, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &generate.Output{SpeakerNotes: g.notes, FeaturedTokens: g.tokens}, nil
}

func newTestOrchestrator(t *testing.T, reg *generate.Registry) (*Orchestrator, *gorm.DB, *MockClock) {
	t.Helper()
	db := setupShowDB(t)
	if reg == nil {
		reg = generate.NewRegistry()
	}
	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	// Automatic transitions stay off so tests drive every step themselves.
	orc := NewOrchestrator(NewStore(db), reg, clock, Options{AutoTransition: false})
	return orc, db, clock
}

func TestStartCreatesShowAndFirstSegment(t *testing.T) {
	orc, db, clock := newTestOrchestrator(t, nil)

	sh, seg, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if sh.ShowNumber != 1 {
		t.Errorf("show number = %d, want 1", sh.ShowNumber)
	}
	if sh.Status != models.ShowLive {
		t.Errorf("show status = %s, want %s", sh.Status, models.ShowLive)
	}
	if !sh.StartedAt.Equal(clock.MockTime) {
		t.Errorf("show started at %v, want %v", sh.StartedAt, clock.MockTime)
	}

	if seg.SegmentType != TypeLaunchMonitor {
		t.Errorf("first segment type = %s, want %s", seg.SegmentType, TypeLaunchMonitor)
	}
	if seg.SegmentNumber != 1 {
		t.Errorf("first segment number = %d, want 1", seg.SegmentNumber)
	}
	if seg.PlannedSecs != 420 {
		t.Errorf("first segment planned = %ds, want 420", seg.PlannedSecs)
	}
	if seg.Status != models.SegmentLive {
		t.Errorf("first segment status = %s, want %s", seg.Status, models.SegmentLive)
	}

	// Placeholder generator content is persisted on the row.
	var stored models.Segment
	if err := db.First(&stored, seg.ID).Error; err != nil {
		t.Fatalf("segment row missing: %v", err)
	}
	if stored.SpeakerNotes == "" {
		t.Error("segment has no speaker notes")
	}
	if stored.ContentSource != models.SourceGenerator {
		t.Errorf("content source = %s, want %s", stored.ContentSource, models.SourceGenerator)
	}
}

func TestStartRejectsInvalidDuration(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil)

	for _, minutes := range []int{0, -5} {
		if _, _, err := orc.Start(minutes); !errors.Is(err, ErrValidation) {
			t.Errorf("Start(%d) error = %v, want ErrValidation", minutes, err)
		}
	}
}

func TestStartConflictKeepsLiveShowUntouched(t *testing.T) {
	orc, db, _ := newTestOrchestrator(t, nil)

	first, _, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, _, err := orc.Start(60); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Start error = %v, want ErrConflict", err)
	}

	var showCount int64
	db.Model(&models.Show{}).Count(&showCount)
	if showCount != 1 {
		t.Errorf("show count = %d, want 1", showCount)
	}

	snap, err := orc.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState failed: %v", err)
	}
	if snap.ShowID != first.ID {
		t.Errorf("live show = %d, want %d", snap.ShowID, first.ID)
	}
}

func TestTransitionAdvancesRotation(t *testing.T) {
	orc, db, clock := newTestOrchestrator(t, nil)

	_, first, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	clock.Advance(7 * time.Minute)
	seg, ended, err := orc.Transition(0)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if ended {
		t.Fatal("Transition reported show ended after one segment")
	}
	if seg.SegmentType != TypeDeepAnalysis {
		t.Errorf("second segment type = %s, want %s", seg.SegmentType, TypeDeepAnalysis)
	}
	if seg.SegmentNumber != 2 {
		t.Errorf("second segment number = %d, want 2", seg.SegmentNumber)
	}

	// The previous segment is completed with its measured runtime.
	var prev models.Segment
	if err := db.First(&prev, first.ID).Error; err != nil {
		t.Fatalf("first segment row missing: %v", err)
	}
	if prev.Status != models.SegmentCompleted {
		t.Errorf("first segment status = %s, want %s", prev.Status, models.SegmentCompleted)
	}
	if prev.ActualSecs != 420 {
		t.Errorf("first segment actual = %ds, want 420", prev.ActualSecs)
	}
	if prev.EndedAt == nil {
		t.Error("first segment has no ended_at")
	}
}

func TestTransitionIsIdempotentPerSegment(t *testing.T) {
	orc, db, _ := newTestOrchestrator(t, nil)

	_, first, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	second, _, err := orc.Transition(first.ID)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// A second trigger naming the already-completed segment must not
	// advance the show again.
	got, ended, err := orc.Transition(first.ID)
	if err != nil {
		t.Fatalf("stale Transition failed: %v", err)
	}
	if ended {
		t.Error("stale Transition ended the show")
	}
	if got.ID != second.ID {
		t.Errorf("stale Transition returned segment %d, want live segment %d", got.ID, second.ID)
	}

	var segCount int64
	db.Model(&models.Segment{}).Count(&segCount)
	if segCount != 2 {
		t.Errorf("segment count = %d, want 2", segCount)
	}
}

func TestTransitionWithoutLiveShow(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil)

	if _, _, err := orc.Transition(0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transition error = %v, want ErrNotFound", err)
	}
}

func TestRotationExhaustionFinalizesShow(t *testing.T) {
	orc, db, clock := newTestOrchestrator(t, nil)

	sh, _, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rotation := DefaultRotation()
	for i := 1; i < len(rotation); i++ {
		clock.Advance(time.Minute)
		seg, ended, err := orc.Transition(0)
		if err != nil {
			t.Fatalf("Transition %d failed: %v", i, err)
		}
		if ended {
			t.Fatalf("show ended early at transition %d", i)
		}
		if seg.SegmentNumber != i+1 {
			t.Errorf("transition %d activated segment #%d, want #%d", i, seg.SegmentNumber, i+1)
		}
		if seg.SegmentType != rotation[i].Type {
			t.Errorf("transition %d activated %s, want %s", i, seg.SegmentType, rotation[i].Type)
		}
	}

	// The transition past the final entry finalizes instead of activating.
	clock.Advance(time.Minute)
	seg, ended, err := orc.Transition(0)
	if err != nil {
		t.Fatalf("final Transition failed: %v", err)
	}
	if !ended {
		t.Fatal("final Transition did not end the show")
	}
	if seg != nil {
		t.Errorf("final Transition returned segment %d, want none", seg.ID)
	}

	var stored models.Show
	if err := db.Preload("Segments").First(&stored, sh.ID).Error; err != nil {
		t.Fatalf("show row missing: %v", err)
	}
	if stored.Status != models.ShowCompleted {
		t.Errorf("show status = %s, want %s", stored.Status, models.ShowCompleted)
	}
	if stored.EndedAt == nil {
		t.Error("show has no ended_at")
	}
	if len(stored.Segments) != len(rotation) {
		t.Fatalf("show has %d segments, want %d", len(stored.Segments), len(rotation))
	}
	for i, s := range stored.Segments {
		if s.SegmentNumber != i+1 {
			t.Errorf("segment %d has number %d, numbering must be gapless", i, s.SegmentNumber)
		}
		if s.Status != models.SegmentCompleted {
			t.Errorf("segment #%d status = %s, want %s", s.SegmentNumber, s.Status, models.SegmentCompleted)
		}
	}

	if _, err := orc.CurrentState(); !errors.Is(err, ErrNotFound) {
		t.Errorf("CurrentState after exhaustion = %v, want ErrNotFound", err)
	}

	// A fresh show picks the next number.
	next, _, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start after exhaustion failed: %v", err)
	}
	if next.ShowNumber != 2 {
		t.Errorf("next show number = %d, want 2", next.ShowNumber)
	}
}

func TestEndFinalizesSegmentThenShow(t *testing.T) {
	orc, db, clock := newTestOrchestrator(t, nil)

	_, seg, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	clock.Advance(90 * time.Second)
	sh, err := orc.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if sh.Status != models.ShowCompleted {
		t.Errorf("show status = %s, want %s", sh.Status, models.ShowCompleted)
	}

	var stored models.Segment
	if err := db.First(&stored, seg.ID).Error; err != nil {
		t.Fatalf("segment row missing: %v", err)
	}
	if stored.Status != models.SegmentCompleted {
		t.Errorf("segment status = %s, want %s", stored.Status, models.SegmentCompleted)
	}
	if stored.ActualSecs != 90 {
		t.Errorf("segment actual = %ds, want 90", stored.ActualSecs)
	}

	if _, err := orc.End(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second End error = %v, want ErrNotFound", err)
	}
}

func TestGeneratorFailureFallsBack(t *testing.T) {
	reg := generate.NewRegistry()
	reg.Register(TypeLaunchMonitor, &stubGenerator{err: errors.New("gateway down")})
	orc, db, _ := newTestOrchestrator(t, reg)

	_, seg, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var stored models.Segment
	if err := db.First(&stored, seg.ID).Error; err != nil {
		t.Fatalf("segment row missing: %v", err)
	}
	if stored.ContentSource != models.SourceFallback {
		t.Errorf("content source = %s, want %s", stored.ContentSource, models.SourceFallback)
	}
	if stored.SpeakerNotes == "" {
		t.Error("fallback left the segment without speaker notes")
	}
	if stored.Status != models.SegmentLive {
		t.Errorf("segment status = %s, the segment must stay live on generator failure", stored.Status)
	}
}

func TestFeaturedTokensAreTracked(t *testing.T) {
	reg := generate.NewRegistry()
	reg.Register(TypeLaunchMonitor, &stubGenerator{
		notes: "fresh launch",
		tokens: []generate.TokenRef{
			{Address: "So1aNaAddr111", Ticker: "MOON", Price: 0.0001, MarketCap: 50000},
			{Ticker: "NOADDR"}, // no address, must be skipped
		},
	})
	orc, db, _ := newTestOrchestrator(t, reg)

	if _, _, err := orc.Start(60); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var tokens []models.TrackedToken
	if err := db.Find(&tokens).Error; err != nil {
		t.Fatalf("token query failed: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("tracked %d tokens, want 1", len(tokens))
	}
	if tokens[0].Address != "So1aNaAddr111" || tokens[0].Ticker != "MOON" {
		t.Errorf("tracked token = %s/%s, want So1aNaAddr111/MOON", tokens[0].Address, tokens[0].Ticker)
	}
	if tokens[0].TrackingStatus != models.TrackingActive {
		t.Errorf("tracking status = %s, want %s", tokens[0].TrackingStatus, models.TrackingActive)
	}
}

func TestCurrentStateSnapshot(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t, nil)

	if _, err := orc.CurrentState(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CurrentState with no show = %v, want ErrNotFound", err)
	}

	sh, seg, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap, err := orc.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState failed: %v", err)
	}
	if snap.ShowID != sh.ID || snap.ShowNumber != 1 {
		t.Errorf("snapshot show = %d/#%d, want %d/#1", snap.ShowID, snap.ShowNumber, sh.ID)
	}
	if snap.Segment.ID != seg.ID || snap.Segment.Type != TypeLaunchMonitor {
		t.Errorf("snapshot segment = %d/%s, want %d/%s", snap.Segment.ID, snap.Segment.Type, seg.ID, TypeLaunchMonitor)
	}
	if snap.SegmentsCompleted != 0 {
		t.Errorf("segments completed = %d, want 0", snap.SegmentsCompleted)
	}
	if len(snap.Remaining) != 7 {
		t.Fatalf("remaining = %d entries, want 7", len(snap.Remaining))
	}
	if snap.Remaining[0].Type != TypeDeepAnalysis {
		t.Errorf("next remaining = %s, want %s", snap.Remaining[0].Type, TypeDeepAnalysis)
	}

	if _, _, err := orc.Transition(0); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	snap, err = orc.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState failed: %v", err)
	}
	if snap.SegmentsCompleted != 1 {
		t.Errorf("segments completed = %d, want 1", snap.SegmentsCompleted)
	}
	if len(snap.Remaining) != 6 {
		t.Errorf("remaining = %d entries, want 6", len(snap.Remaining))
	}
}

func TestReconcileFinalizesDanglingShow(t *testing.T) {
	db := setupShowDB(t)

	// A previous process died mid-show.
	dangling := models.Show{ShowNumber: 1, StartedAt: time.Now(), Status: models.ShowLive}
	if err := db.Create(&dangling).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	seg := models.Segment{
		ShowID: dangling.ID, SegmentType: TypeLaunchMonitor, SegmentNumber: 1,
		StartedAt: time.Now(), Status: models.SegmentLive,
	}
	if err := db.Create(&seg).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	orc := NewOrchestrator(NewStore(db), generate.NewRegistry(), clock, Options{})
	if err := orc.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var sh models.Show
	db.First(&sh, dangling.ID)
	if sh.Status != models.ShowCompleted {
		t.Errorf("dangling show status = %s, want %s", sh.Status, models.ShowCompleted)
	}
	var stored models.Segment
	db.First(&stored, seg.ID)
	if stored.Status != models.SegmentCompleted {
		t.Errorf("dangling segment status = %s, want %s", stored.Status, models.SegmentCompleted)
	}
	// The true runtime died with the old process; 0 marks it unknown.
	if stored.ActualSecs != 0 {
		t.Errorf("reconciled segment actual = %ds, want 0 (unknown)", stored.ActualSecs)
	}

	// Reconciled state must not block a new show.
	if _, _, err := orc.Start(45); err != nil {
		t.Fatalf("Start after reconcile failed: %v", err)
	}
}

// stubViewers reports a fixed audience size.
type stubViewers struct {
	count int64
}

func (s *stubViewers) Viewers(context.Context, uint) int64 { return s.count }

func TestViewerCountsRecordedOnCompletion(t *testing.T) {
	db := setupShowDB(t)
	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	orc := NewOrchestrator(NewStore(db), generate.NewRegistry(), clock, Options{
		Viewers: &stubViewers{count: 42},
	})

	_, first, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	second, _, err := orc.Transition(0)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	var stored models.Segment
	if err := db.First(&stored, first.ID).Error; err != nil {
		t.Fatalf("first segment row missing: %v", err)
	}
	if stored.ViewerCount != 42 {
		t.Errorf("completed segment viewer count = %d, want 42", stored.ViewerCount)
	}

	sh, err := orc.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if sh.ViewerCount != 42 {
		t.Errorf("show viewer count = %d, want 42", sh.ViewerCount)
	}
	// Fresh struct: reusing stored would carry first.ID into the query conditions.
	stored = models.Segment{}
	if err := db.First(&stored, second.ID).Error; err != nil {
		t.Fatalf("second segment row missing: %v", err)
	}
	if stored.ViewerCount != 42 {
		t.Errorf("final segment viewer count = %d, want 42", stored.ViewerCount)
	}
}

// fastRotation keeps deadline tests out of real-time territory.
func fastRotation(planned time.Duration, types ...string) []RotationEntry {
	entries := make([]RotationEntry, len(types))
	for i, segType := range types {
		entries[i] = RotationEntry{Type: segType, Planned: planned}
	}
	return entries
}

func TestAutomaticTransitionRunsTheRotation(t *testing.T) {
	db := setupShowDB(t)
	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	orc := NewOrchestrator(NewStore(db), generate.NewRegistry(), clock, Options{
		AutoTransition: true,
		Rotation:       fastRotation(20*time.Millisecond, TypeLaunchMonitor, TypeDeepAnalysis),
	})

	sh, _, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The deadline timers alone must walk both segments and finalize.
	deadline := time.Now().Add(5 * time.Second)
	for {
		var stored models.Show
		if err := db.First(&stored, sh.ID).Error; err != nil {
			t.Fatalf("show row missing: %v", err)
		}
		if stored.Status == models.ShowCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("show still %s, automatic transitions never finalized it", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var segments []models.Segment
	if err := db.Order("segment_number ASC").Find(&segments).Error; err != nil {
		t.Fatalf("segment query failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	for i, seg := range segments {
		if seg.SegmentNumber != i+1 {
			t.Errorf("segment %d has number %d, numbering must be gapless", i, seg.SegmentNumber)
		}
		if seg.Status != models.SegmentCompleted {
			t.Errorf("segment #%d status = %s, want %s", seg.SegmentNumber, seg.Status, models.SegmentCompleted)
		}
	}

	if _, err := orc.CurrentState(); !errors.Is(err, ErrNotFound) {
		t.Errorf("CurrentState after auto-finalize = %v, want ErrNotFound", err)
	}
}

func TestEndStopsPendingAutomaticTransition(t *testing.T) {
	db := setupShowDB(t)
	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	orc := NewOrchestrator(NewStore(db), generate.NewRegistry(), clock, Options{
		AutoTransition: true,
		Rotation:       fastRotation(200*time.Millisecond, TypeLaunchMonitor, TypeDeepAnalysis),
	})

	sh, _, err := orc.Start(60)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := orc.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	// Outlive the armed deadline; a cancelled timer must not mutate the
	// finalized show.
	time.Sleep(500 * time.Millisecond)

	var segCount int64
	db.Model(&models.Segment{}).Count(&segCount)
	if segCount != 1 {
		t.Errorf("segment count = %d, want 1 (timer fired after End)", segCount)
	}
	var stored models.Show
	if err := db.First(&stored, sh.ID).Error; err != nil {
		t.Fatalf("show row missing: %v", err)
	}
	if stored.Status != models.ShowCompleted {
		t.Errorf("show status = %s, want %s", stored.Status, models.ShowCompleted)
	}
	if _, err := orc.CurrentState(); !errors.Is(err, ErrNotFound) {
		t.Errorf("CurrentState after End = %v, want ErrNotFound", err)
	}
}

// capturePublisher records lifecycle events for inspection.
type capturePublisher struct {
	events chan string
}

func (p *capturePublisher) Publish(event string, _ interface{}) error {
	p.events <- event
	return nil
}

func TestLifecycleEventsPublished(t *testing.T) {
	db := setupShowDB(t)
	pub := &capturePublisher{events: make(chan string, 16)}
	clock := &MockClock{MockTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	orc := NewOrchestrator(NewStore(db), generate.NewRegistry(), clock, Options{Publisher: pub})

	waitFor := func(want string) {
		t.Helper()
		select {
		case got := <-pub.events:
			if got != want {
				t.Errorf("event = %s, want %s", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s event published", want)
		}
	}

	if _, _, err := orc.Start(60); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(EventShowStarted)

	if _, _, err := orc.Transition(0); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	waitFor(EventSegmentLive)

	if _, err := orc.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	waitFor(EventShowEnded)
}
