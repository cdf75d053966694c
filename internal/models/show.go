package models

import (
	"time"
)

// Show status states
const (
	ShowScheduled = "scheduled"
	ShowLive      = "live"
	ShowCompleted = "completed"
)

// Segment status states. Transitions are strictly forward:
// pending -> live -> completed. A segment is never reactivated.
const (
	SegmentPending   = "pending"
	SegmentLive      = "live"
	SegmentCompleted = "completed"
)

// Content source marker so downstream consumers can tell degraded
// segments apart from gateway-sourced ones.
const (
	SourceGenerator = "generator"
	SourceFallback  = "fallback"
)

// Show is one end-to-end broadcast session.
// At most one row has status = 'live' at any instant.
type Show struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ShowNumber        int        `gorm:"uniqueIndex;not null" json:"show_number"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	Status            string     `gorm:"type:varchar(20);index;default:'scheduled'" json:"status"`
	EstimatedDuration int        `json:"estimated_duration"` // minutes
	ViewerCount       int        `gorm:"default:0" json:"viewer_count"`

	Segments []Segment `gorm:"foreignKey:ShowID" json:"segments,omitempty"`
}

// Segment is one timed content block within a Show.
// Keyed by (show_id, segment_number); numbers are 1-based and gapless.
type Segment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ShowID        uint       `gorm:"uniqueIndex:idx_show_segment_number;not null" json:"show_id"`
	SegmentType   string     `gorm:"type:varchar(50);index;not null" json:"segment_type"`
	SegmentNumber int        `gorm:"uniqueIndex:idx_show_segment_number;not null" json:"segment_number"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	PlannedSecs   int        `json:"planned_seconds"`
	ActualSecs    int        `json:"actual_seconds"` // set on completion only
	Status        string     `gorm:"type:varchar(20);index;default:'pending'" json:"status"`

	SpeakerNotes     string `gorm:"type:text" json:"speaker_notes"`
	GeneratedPayload string `gorm:"type:text" json:"generated_payload"` // opaque JSON from the generator
	ContentSource    string `gorm:"type:varchar(20)" json:"content_source"`
	ViewerCount      int    `gorm:"default:0" json:"viewer_count"`
}

func (Segment) TableName() string {
	return "show_segments"
}
