// Package idempotency persists the first response produced for each
// client-keyed mutating request, so retries replay that response instead of
// re-executing side effects.
package idempotency

import (
	"errors"
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Header is the client-supplied idempotency key header.
const Header = "X-Idempotency-Key"

// Stored is a previously recorded response.
type Stored struct {
	Status int
	Body   []byte
}

// CompositeKey scopes a client key to one method and path, so the same key
// cannot collide across unrelated endpoints.
func CompositeKey(method, path, clientKey string) string {
	return method + ":" + path + ":" + clientKey
}

// Lookup returns the stored response for the triple, or nil on miss.
func Lookup(gdb *gorm.DB, method, path, clientKey string) (*Stored, error) {
	var row models.IdempotencyRecord
	err := gdb.First(&row, "`key` = ?", CompositeKey(method, path, clientKey)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: lookup: %w", err)
	}
	return &Stored{Status: row.Status, Body: []byte(row.Body)}, nil
}

// Record stores a response under the triple. The first write wins; a
// concurrent duplicate is silently dropped, never overwriting the
// authoritative response.
func Record(gdb *gorm.DB, method, path, clientKey string, status int, body []byte) error {
	row := models.IdempotencyRecord{
		Key:    CompositeKey(method, path, clientKey),
		Status: status,
		Body:   string(body),
	}
	err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("idempotency: record: %w", err)
	}
	return nil
}
