package models

import "time"

// Token tracking states
const (
	TrackingActive    = "active"
	TrackingGraduated = "graduated"
	TrackingRugged    = "rugged"
)

// TrackedToken is a launchpad token the show has featured at least once.
// Tokens outlive shows and segments; many segments may reference the
// same address.
type TrackedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address      string    `gorm:"uniqueIndex;type:varchar(255);not null" json:"address"`
	Ticker       string    `gorm:"type:varchar(50);index" json:"ticker"`
	DiscoveredAt time.Time `gorm:"index" json:"discovered_at"`

	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	HoldersCount  int     `json:"holders_count"`
	Volume24h     float64 `json:"volume_24h"`
	CurveProgress float64 `json:"curve_progress"` // 0-100%

	TrackingStatus string `gorm:"type:varchar(20);index;default:'active'" json:"tracking_status"`
}
