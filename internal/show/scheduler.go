package show

import (
	"time"
)

// Scheduler walks one show through the fixed rotation exactly once.
// It owns the cursor and the automatic-transition timer; all methods are
// called under the orchestrator's lock, which is the single exclusion
// point for the live show.
type Scheduler struct {
	rotation []RotationEntry
	cursor   int // index of the live entry, -1 before first activation
	timer    *time.Timer
}

func NewScheduler() *Scheduler {
	return NewSchedulerWith(DefaultRotation())
}

// NewSchedulerWith walks a custom rotation. Tests shrink the entries to
// drive the deadline path without real-time waits.
func NewSchedulerWith(rotation []RotationEntry) *Scheduler {
	return &Scheduler{
		rotation: rotation,
		cursor:   -1,
	}
}

// Current returns the rotation entry of the live segment.
func (s *Scheduler) Current() (RotationEntry, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rotation) {
		return RotationEntry{}, false
	}
	return s.rotation[s.cursor], true
}

// Peek returns the next entry without advancing, or false on exhaustion.
func (s *Scheduler) Peek() (RotationEntry, bool) {
	next := s.cursor + 1
	if next >= len(s.rotation) {
		return RotationEntry{}, false
	}
	return s.rotation[next], true
}

// Advance moves the cursor to the next entry. Returns false when the
// sequence is exhausted; the cursor does not move past the end.
func (s *Scheduler) Advance() (RotationEntry, bool) {
	entry, ok := s.Peek()
	if !ok {
		return RotationEntry{}, false
	}
	s.cursor++
	return entry, true
}

// Remaining returns the entries after the live one, in order.
func (s *Scheduler) Remaining() []RotationEntry {
	next := s.cursor + 1
	if next >= len(s.rotation) {
		return nil
	}
	out := make([]RotationEntry, len(s.rotation)-next)
	copy(out, s.rotation[next:])
	return out
}

// Arm schedules the automatic transition for the live segment,
// replacing any previously armed timer.
func (s *Scheduler) Arm(d time.Duration, fire func()) {
	s.Cancel()
	s.timer = time.AfterFunc(d, fire)
}

// Cancel stops the pending automatic transition. Safe to call twice.
// A timer that already fired is harmless: the transition it triggers
// no-ops once its segment is no longer live.
func (s *Scheduler) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
