package models

import "time"

// AuditEntry is an append-only record of an executed mutation. Entries are
// never updated or deleted. The inverse columns hold a machine-executable
// operation that undoes the entry when replayed through the normal mutation
// path; whether the inverse can currently be applied is computed at read
// time, never stored.
type AuditEntry struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Action         string `gorm:"size:32;not null;index"`
	TargetType     string `gorm:"size:16;not null"`
	TargetID       uint   `gorm:"not null"`
	ProjectID      *uint  `gorm:"index"`
	Summary        string `gorm:"type:text"`
	InverseMethod  string `gorm:"size:8"`
	InversePath    string `gorm:"size:255"`
	InversePayload string `gorm:"type:text"`
	CreatedAt      time.Time
}
