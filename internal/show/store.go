package show

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/0xChampi/hyper-threat-tokencast/internal/models"
)

// Store is the persistence gateway for shows, segments and tracked tokens.
// All multi-row lifecycle writes go through transactions so a failed
// operation is a no-op on storage.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NextShowNumber returns max(show_number)+1, starting at 1.
func (s *Store) NextShowNumber() (int, error) {
	var last models.Show
	err := s.db.Order("show_number DESC").First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return last.ShowNumber + 1, nil
}

// StartShow creates the show and its first segment as one unit, so a show
// is never observable without an active segment.
func (s *Store) StartShow(sh *models.Show, seg *models.Segment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sh).Error; err != nil {
			return err
		}
		seg.ShowID = sh.ID
		return tx.Create(seg).Error
	})
}

// CurrentLive returns the live show, or nil when none is live.
// The unique status discipline guarantees at most one row.
func (s *Store) CurrentLive() (*models.Show, error) {
	var sh models.Show
	err := s.db.Where("status = ?", models.ShowLive).First(&sh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// GetShow loads a show with its segments ordered by segment_number.
func (s *Store) GetShow(id uint) (*models.Show, error) {
	var sh models.Show
	err := s.db.Preload("Segments", func(db *gorm.DB) *gorm.DB {
		return db.Order("segment_number ASC")
	}).First(&sh, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("show %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// CompleteAndActivate applies the two-step transition as one unit:
// the current segment is completed and the next one created in a single
// transaction, so no reader ever sees a mid-show state without a live
// segment. cur is nil for the very first activation of a show.
func (s *Store) CompleteAndActivate(cur, next *models.Segment, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if cur != nil {
			if err := completeSegment(tx, cur, now); err != nil {
				return err
			}
		}
		return tx.Create(next).Error
	})
}

// FinalizeShow completes the still-live segment (if any) and then the show,
// in that order, as one transaction.
func (s *Store) FinalizeShow(sh *models.Show, cur *models.Segment, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if cur != nil && cur.Status == models.SegmentLive {
			if err := completeSegment(tx, cur, now); err != nil {
				return err
			}
		}
		sh.Status = models.ShowCompleted
		sh.EndedAt = &now
		return tx.Model(&models.Show{}).Where("id = ?", sh.ID).Updates(map[string]interface{}{
			"status":       models.ShowCompleted,
			"ended_at":     now,
			"viewer_count": sh.ViewerCount,
		}).Error
	})
}

func completeSegment(tx *gorm.DB, seg *models.Segment, now time.Time) error {
	seg.Status = models.SegmentCompleted
	seg.EndedAt = &now
	seg.ActualSecs = int(now.Sub(seg.StartedAt) / time.Second)
	return tx.Model(&models.Segment{}).Where("id = ?", seg.ID).Updates(map[string]interface{}{
		"status":       models.SegmentCompleted,
		"ended_at":     now,
		"actual_secs":  seg.ActualSecs,
		"viewer_count": seg.ViewerCount,
	}).Error
}

// SaveSegmentContent persists generator output (or fallback content) onto
// an already-activated segment.
func (s *Store) SaveSegmentContent(id uint, notes, payload, source string) error {
	return s.db.Model(&models.Segment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"speaker_notes":     notes,
		"generated_payload": payload,
		"content_source":    source,
	}).Error
}

// ReconcileDangling finalizes any show a previous process left live,
// so the singleton-live invariant holds across restarts. Reconciled
// segments keep actual_secs at 0: the true runtime died with the old
// process, and ended_at here records reconcile time, not playout end.
func (s *Store) ReconcileDangling(now time.Time) (int64, error) {
	seg := s.db.Model(&models.Segment{}).
		Where("status = ?", models.SegmentLive).
		Updates(map[string]interface{}{"status": models.SegmentCompleted, "ended_at": now})
	if seg.Error != nil {
		return 0, seg.Error
	}
	res := s.db.Model(&models.Show{}).
		Where("status = ?", models.ShowLive).
		Updates(map[string]interface{}{"status": models.ShowCompleted, "ended_at": now})
	return res.RowsAffected, res.Error
}

// UpsertToken creates or refreshes a tracked token keyed by address.
func (s *Store) UpsertToken(t *models.TrackedToken) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ticker", "current_price", "market_cap", "holders_count",
			"volume24h", "curve_progress", "updated_at",
		}),
	}).Create(t).Error
}

func (s *Store) TokenByAddress(addr string) (*models.TrackedToken, error) {
	var t models.TrackedToken
	err := s.db.Where("address = ?", addr).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("token %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveToken(t *models.TrackedToken) error {
	return s.db.Save(t).Error
}

// TrendingTokens lists active tokens discovered in the window, busiest first.
func (s *Store) TrendingTokens(since time.Time, limit int) ([]models.TrackedToken, error) {
	var tokens []models.TrackedToken
	err := s.db.Where("discovered_at >= ? AND tracking_status = ?", since, models.TrackingActive).
		Order("volume24h DESC").
		Limit(limit).
		Find(&tokens).Error
	return tokens, err
}
