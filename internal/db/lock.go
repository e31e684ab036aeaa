package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate applies SELECT ... FOR UPDATE on dialects that support it.
// SQLite rejects the syntax and serializes all writers at the database
// level, so the clause is skipped there without losing isolation.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
