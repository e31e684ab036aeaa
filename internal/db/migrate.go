package db

import (
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Customer{},
		&models.Estimate{},
		&models.EstimateLine{},
		&models.Material{},
		&models.Project{},
		&models.Task{},
		&models.TaskMaterialLine{},
		&models.Delivery{},
		&models.AuditEntry{},
		&models.IdempotencyRecord{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
