package models

import "time"

// Project statuses. InProgress and DeliveryScheduled are the "active" states
// from which completion is allowed.
const (
	ProjectStatusInProgress        = "in_progress"
	ProjectStatusDeliveryScheduled = "delivery_scheduled"
	ProjectStatusCompleted         = "completed"
)

// Project is a work order for a customer. It exclusively owns its tasks and
// deliveries; deleting a project cascades to both.
type Project struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CustomerID  uint   `gorm:"not null;index"`
	Title       string `gorm:"size:255;not null"`
	Status      string `gorm:"size:24;not null;default:in_progress;index"`
	DueOn       string `gorm:"size:10"`
	CompletedAt *time.Time
	Version     int `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks      []Task     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Deliveries []Delivery `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Active reports whether the project can still be completed.
func (p *Project) Active() bool {
	return p.Status == ProjectStatusInProgress || p.Status == ProjectStatusDeliveryScheduled
}
