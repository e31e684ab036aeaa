package models

import "time"

// IdempotencyRecord stores the first response produced for a
// (method, path, client-key) triple. The key is the colon-joined composite;
// first write wins and the row is never updated.
type IdempotencyRecord struct {
	Key       string `gorm:"primaryKey;size:512"`
	Status    int    `gorm:"not null"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName keeps the table name from pluralizing awkwardly.
func (IdempotencyRecord) TableName() string { return "idempotency_records" }
