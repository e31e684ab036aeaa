package db

import (
	"testing"

	"github.com/ostrander/workbench/internal/config"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		User: "root",
		Host: "127.0.0.1",
		Port: 3306,
		Name: "workbench",
	})
	want := "root@tcp(127.0.0.1:3306)/workbench?parseTime=true"
	if dsn != want {
		t.Errorf("DSN = %q, want %q", dsn, want)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAutoMigrate(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Spot-check a couple of tables are usable.
	m := models.Material{Name: "paper", Unit: "sheet", CurrentQty: 10, ThresholdQty: 2}
	if err := gdb.Create(&m).Error; err != nil {
		t.Fatalf("create material: %v", err)
	}
	var count int64
	if err := gdb.Model(&models.AuditEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count audit entries: %v", err)
	}
}

func TestLockForUpdate_SQLiteNoClause(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	gdb.Create(&models.Material{Name: "glue", CurrentQty: 1})

	// Must not produce a FOR UPDATE syntax error on sqlite.
	var m models.Material
	if err := LockForUpdate(gdb).First(&m, "name = ?", "glue").Error; err != nil {
		t.Fatalf("locked read on sqlite: %v", err)
	}
}
