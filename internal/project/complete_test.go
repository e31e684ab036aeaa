package project

import (
	"testing"
	"time"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/inventory"
	"github.com/ostrander/workbench/internal/models"
	taskop "github.com/ostrander/workbench/internal/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openProjectTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.Material{}, &models.Project{}, &models.Task{},
		&models.TaskMaterialLine{}, &models.Delivery{}, &models.AuditEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func materialQty(t *testing.T, gdb *gorm.DB, id uint) float64 {
	t.Helper()
	var m models.Material
	if err := gdb.First(&m, id).Error; err != nil {
		t.Fatalf("load material %d: %v", id, err)
	}
	return m.CurrentQty
}

func TestComplete_PreconditionOpenTask(t *testing.T) {
	gdb := openProjectTestDB(t)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "oak dresser", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{
			{Title: "cut panels", Status: models.TaskStatusDone, PreparedAt: &now},
			{Title: "final polish", Status: models.TaskStatusTodo},
		},
		Deliveries: []models.Delivery{{Date: "2026-09-01", Title: "drop-off", Status: models.DeliveryStatusPending}},
	}
	gdb.Create(&p)

	_, err := Complete(gdb, p.ID, nil)
	ae, ok := apperr.From(err)
	if !ok || ae.Code != apperr.CodePreconditionFailed {
		t.Fatalf("error = %v, want precondition_failed", err)
	}
	titles, _ := ae.Details.([]string)
	if len(titles) != 1 || titles[0] != "final polish" {
		t.Errorf("unready titles = %v", titles)
	}

	// Nothing changed.
	var fresh models.Project
	gdb.First(&fresh, p.ID)
	if fresh.Status != models.ProjectStatusInProgress {
		t.Errorf("project status = %q", fresh.Status)
	}
	var d models.Delivery
	gdb.First(&d, "project_id = ?", p.ID)
	if d.Status != models.DeliveryStatusPending {
		t.Errorf("delivery flipped on failed completion: %q", d.Status)
	}
}

func TestComplete_PreconditionUnpreparedWithUsedQty(t *testing.T) {
	gdb := openProjectTestDB(t)
	m := models.Material{Name: "wax", CurrentQty: 5}
	gdb.Create(&m)
	// Done but never prepared, with a positive used quantity: completion
	// bookkeeping was skipped somewhere, so the gate must hold.
	p := models.Project{CustomerID: 1, Title: "side table", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "wax top", Status: models.TaskStatusDone,
			Lines: []models.TaskMaterialLine{{MaterialID: &m.ID, QtyUsed: 1}}}},
	}
	gdb.Create(&p)

	_, err := Complete(gdb, p.ID, nil)
	ae, ok := apperr.From(err)
	if !ok || ae.Code != apperr.CodePreconditionFailed {
		t.Fatalf("error = %v, want precondition_failed", err)
	}
}

func TestComplete_ResidualDebitAndDeliveryFlip(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 5, ThresholdQty: 1}
	gdb.Create(&wax)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "side table", Status: models.ProjectStatusDeliveryScheduled,
		Tasks: []models.Task{{Title: "wax top", Status: models.TaskStatusDone, PreparedAt: &now,
			Lines: []models.TaskMaterialLine{{MaterialID: &wax.ID, QtyUsed: 2}}}},
		Deliveries: []models.Delivery{
			{Date: "2026-09-01", Title: "drop-off", Status: models.DeliveryStatusPending},
			{Date: "2026-09-02", Title: "pickup", Status: models.DeliveryStatusCancelled},
		},
	}
	gdb.Create(&p)

	result, err := Complete(gdb, p.ID, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Debits != 1 || result.Deliveries != 1 {
		t.Errorf("result = %+v", result)
	}
	if got := materialQty(t, gdb, wax.ID); got != 3 {
		t.Errorf("wax qty = %v, want 3", got)
	}

	var line models.TaskMaterialLine
	gdb.First(&line)
	if !line.Debited || line.DebitedBy != models.DebitedByProject || line.DebitedQty != 2 {
		t.Errorf("line marker = %+v", line)
	}

	var deliveries []models.Delivery
	gdb.Order("date ASC").Find(&deliveries, "project_id = ?", p.ID)
	if deliveries[0].Status != models.DeliveryStatusDelivered || deliveries[0].CompletedAt == nil {
		t.Errorf("pending delivery not flipped: %+v", deliveries[0])
	}
	if deliveries[1].Status != models.DeliveryStatusCancelled {
		t.Errorf("cancelled delivery touched: %+v", deliveries[1])
	}
}

func TestComplete_SkipsLinesAlreadyDebitedByTask(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 5}
	gdb.Create(&wax)
	p := models.Project{CustomerID: 1, Title: "side table", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "wax top", Status: models.TaskStatusTodo,
			Lines: []models.TaskMaterialLine{{MaterialID: &wax.ID, QtyPlanned: 2, QtyUsed: 2}}}},
	}
	gdb.Create(&p)

	// Task completion debits the line; project completion must not debit it
	// again even though QtyUsed is positive.
	if _, err := taskop.Complete(gdb, p.Tasks[0].ID); err != nil {
		t.Fatalf("task complete: %v", err)
	}
	if got := materialQty(t, gdb, wax.ID); got != 3 {
		t.Fatalf("wax qty after task complete = %v, want 3", got)
	}

	result, err := Complete(gdb, p.ID, nil)
	if err != nil {
		t.Fatalf("project complete: %v", err)
	}
	if result.Debits != 0 {
		t.Errorf("residual debits = %d, want 0", result.Debits)
	}
	if got := materialQty(t, gdb, wax.ID); got != 3 {
		t.Errorf("wax qty double-debited: %v", got)
	}
}

func TestComplete_LowStockReport(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 3, ThresholdQty: 2}
	gdb.Create(&wax)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "side table", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "wax top", Status: models.TaskStatusDone, PreparedAt: &now,
			Lines: []models.TaskMaterialLine{{MaterialID: &wax.ID, QtyUsed: 2}}}},
	}
	gdb.Create(&p)

	result, err := Complete(gdb, p.ID, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(result.LowStock) != 1 || result.LowStock[0].Name != "wax" || result.LowStock[0].CurrentQty != 1 {
		t.Errorf("lowStock = %+v", result.LowStock)
	}
}

func TestComplete_AlreadyCompletedConflict(t *testing.T) {
	gdb := openProjectTestDB(t)
	p := models.Project{CustomerID: 1, Title: "empty", Status: models.ProjectStatusInProgress}
	gdb.Create(&p)

	if _, err := Complete(gdb, p.ID, nil); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	_, err := Complete(gdb, p.ID, nil)
	ae, ok := apperr.From(err)
	if !ok || ae.Code != apperr.CodeConflict {
		t.Fatalf("second Complete error = %v, want conflict", err)
	}
}

func TestRevert_RestoresLedgerAndDeliveries(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 5}
	gdb.Create(&wax)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "side table", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "wax top", Status: models.TaskStatusDone, PreparedAt: &now,
			Lines: []models.TaskMaterialLine{{MaterialID: &wax.ID, QtyUsed: 2}}}},
		Deliveries: []models.Delivery{{Date: "2026-09-01", Title: "drop-off", Status: models.DeliveryStatusPending}},
	}
	gdb.Create(&p)

	if _, err := Complete(gdb, p.ID, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	result, err := Revert(gdb, p.ID)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if result.Status != models.ProjectStatusDeliveryScheduled || result.Credits != 1 {
		t.Errorf("result = %+v", result)
	}
	if got := materialQty(t, gdb, wax.ID); got != 5 {
		t.Errorf("wax qty after revert = %v, want 5", got)
	}

	var fresh models.Project
	gdb.First(&fresh, p.ID)
	if fresh.CompletedAt != nil {
		t.Error("completedAt not cleared")
	}
	var d models.Delivery
	gdb.First(&d, "project_id = ?", p.ID)
	if d.Status != models.DeliveryStatusPending || d.CompletedAt != nil {
		t.Errorf("delivery not unflipped: %+v", d)
	}
}

func TestRevert_NotCompletedConflict(t *testing.T) {
	gdb := openProjectTestDB(t)
	p := models.Project{CustomerID: 1, Title: "empty", Status: models.ProjectStatusInProgress}
	gdb.Create(&p)

	_, err := Revert(gdb, p.ID)
	ae, ok := apperr.From(err)
	if !ok || ae.Code != apperr.CodeConflict {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestComplete_ExplicitCompletedAt(t *testing.T) {
	gdb := openProjectTestDB(t)
	p := models.Project{CustomerID: 1, Title: "empty", Status: models.ProjectStatusInProgress}
	gdb.Create(&p)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	result, err := Complete(gdb, p.ID, &at)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !result.CompletedAt.Equal(at) {
		t.Errorf("completedAt = %v, want %v", result.CompletedAt, at)
	}
}

func TestComplete_SharedMaterialShortfallListsTotals(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 10}
	gdb.Create(&wax)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "bench", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "seal", Status: models.TaskStatusDone, PreparedAt: &now,
			Lines: []models.TaskMaterialLine{
				{MaterialID: &wax.ID, QtyUsed: 6},
				{MaterialID: &wax.ID, QtyUsed: 6},
			}}}}
	gdb.Create(&p)

	// The residual lines fit individually but their sum overdraws the
	// material; the shortfall is reported against the total.
	_, err := Complete(gdb, p.ID, nil)
	ae, ok := apperr.From(err)
	if !ok || ae.Code != apperr.CodeInsufficientStock {
		t.Fatalf("error = %v, want insufficient_stock", err)
	}
	shorts, ok := ae.Details.([]inventory.ShortLine)
	if !ok || len(shorts) != 1 {
		t.Fatalf("details = %+v", ae.Details)
	}
	if shorts[0].Name != "wax" || shorts[0].Required != 12 || shorts[0].Available != 10 {
		t.Errorf("short line = %+v", shorts[0])
	}
	if got := materialQty(t, gdb, wax.ID); got != 10 {
		t.Errorf("qty = %v, partial debit leaked", got)
	}
	var fresh models.Project
	gdb.First(&fresh, p.ID)
	if fresh.Status != models.ProjectStatusInProgress {
		t.Errorf("project status = %q, want in_progress", fresh.Status)
	}
}

func TestRevert_CreditsSharedMaterialLines(t *testing.T) {
	gdb := openProjectTestDB(t)
	wax := models.Material{Name: "wax", CurrentQty: 10}
	gdb.Create(&wax)
	now := time.Now()
	p := models.Project{CustomerID: 1, Title: "bench", Status: models.ProjectStatusInProgress,
		Tasks: []models.Task{{Title: "seal", Status: models.TaskStatusDone, PreparedAt: &now,
			Lines: []models.TaskMaterialLine{
				{MaterialID: &wax.ID, QtyUsed: 4},
				{MaterialID: &wax.ID, QtyUsed: 3},
			}}}}
	gdb.Create(&p)

	if _, err := Complete(gdb, p.ID, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := materialQty(t, gdb, wax.ID); got != 3 {
		t.Fatalf("qty after complete = %v, want 3", got)
	}

	result, err := Revert(gdb, p.ID)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if result.Credits != 2 {
		t.Errorf("credits = %d, want 2", result.Credits)
	}
	if got := materialQty(t, gdb, wax.ID); got != 10 {
		t.Errorf("qty after revert = %v, want 10", got)
	}
	var lines []models.TaskMaterialLine
	gdb.Find(&lines)
	for _, l := range lines {
		if l.Debited || l.DebitedQty != 0 {
			t.Errorf("line marker not cleared: %+v", l)
		}
	}
}
