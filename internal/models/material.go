package models

import "time"

// Material is a consumable stock item tracked by the ledger.
// CurrentQty is a 3-decimal fixed-point quantity and must never go negative.
type Material struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"size:128;not null;uniqueIndex"`
	Unit         string  `gorm:"size:16"`
	CurrentQty   float64 `gorm:"type:decimal(12,3);not null;default:0"`
	ThresholdQty float64 `gorm:"type:decimal(12,3);not null;default:0"`
	Version      int     `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Material availability classifications, derived from available quantity
// versus threshold. Never persisted.
const (
	StockStatusOK       = "ok"
	StockStatusLow      = "low"
	StockStatusShortage = "shortage"
)
