package models

import "time"

// Customer is owned by the customer-management collaborator; the core only
// references it from projects and estimates.
type Customer struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Phone     string `gorm:"size:32"`
	Email     string `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Estimate is a quoted set of material lines for a customer. The core reads
// estimates only for committed-aware stock previews.
type Estimate struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	CustomerID uint   `gorm:"not null;index"`
	Title      string `gorm:"size:255"`
	Status     string `gorm:"size:16;not null;default:draft"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Lines []EstimateLine `gorm:"foreignKey:EstimateID;constraint:OnDelete:CASCADE"`
}

// EstimateLine is a single quoted material requirement.
type EstimateLine struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	EstimateID   uint    `gorm:"not null;index"`
	MaterialID   *uint   `gorm:"index"`
	MaterialName string  `gorm:"size:128"`
	Qty          float64 `gorm:"type:decimal(12,3);not null;default:0"`
}
