package models

import "time"

// Delivery statuses.
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCancelled = "cancelled"
)

// DateLayout is the calendar-date format used for delivery dates and
// due dates throughout the system.
const DateLayout = "2006-01-02"

// Delivery is a scheduled hand-over for a project. No two deliveries on the
// same project may share a date and title.
type Delivery struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID   uint   `gorm:"not null;uniqueIndex:ux_delivery_project_date_title,priority:1"`
	Date        string `gorm:"size:10;not null;uniqueIndex:ux_delivery_project_date_title,priority:2"`
	Title       string `gorm:"size:255;not null;uniqueIndex:ux_delivery_project_date_title,priority:3"`
	Status      string `gorm:"size:16;not null;default:pending;index"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
