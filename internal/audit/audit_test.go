package audit

import (
	"testing"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.AuditEntry{}, &models.Task{}, &models.Project{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func TestAppend_StoresInverse(t *testing.T) {
	gdb := openAuditTestDB(t)

	projID := uint(4)
	err := Append(gdb, Entry{
		Action:     ActionTaskCompleted,
		TargetType: TargetTask,
		TargetID:   7,
		ProjectID:  &projID,
		Summary:    `task "sand frame" completed`,
		Inverse: &Inverse{
			Method:  "POST",
			Path:    "/tasks/7/revert-complete",
			Payload: map[string]any{},
		},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var row models.AuditEntry
	if err := gdb.First(&row).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if row.InverseMethod != "POST" || row.InversePath != "/tasks/7/revert-complete" {
		t.Errorf("inverse = %s %s", row.InverseMethod, row.InversePath)
	}
	if row.InversePayload != "{}" {
		t.Errorf("payload = %q, want {}", row.InversePayload)
	}
}

func TestCanUndo_TaskCompletion(t *testing.T) {
	gdb := openAuditTestDB(t)
	task := models.Task{ProjectID: 1, Title: "glue joints", Status: models.TaskStatusDone}
	gdb.Create(&task)

	entry := models.AuditEntry{
		Action:      ActionTaskCompleted,
		TargetType:  TargetTask,
		TargetID:    task.ID,
		InversePath: "/tasks/1/revert-complete",
	}

	undoable, err := CanUndo(gdb, &entry)
	if err != nil {
		t.Fatalf("CanUndo: %v", err)
	}
	if !undoable {
		t.Error("completion of a still-done task should be undoable")
	}

	// Once the task is no longer done, the completion entry stops being
	// undoable and the revert entry becomes undoable.
	gdb.Model(&task).Update("status", models.TaskStatusTodo)

	undoable, _ = CanUndo(gdb, &entry)
	if undoable {
		t.Error("completion entry should not be undoable after revert")
	}

	revert := models.AuditEntry{Action: ActionTaskReverted, TargetType: TargetTask, TargetID: task.ID}
	undoable, _ = CanUndo(gdb, &revert)
	if !undoable {
		t.Error("revert entry should be undoable while task is open")
	}
}

func TestCanUndo_MissingTarget(t *testing.T) {
	gdb := openAuditTestDB(t)
	entry := models.AuditEntry{Action: ActionProjectCompleted, TargetType: TargetProject, TargetID: 99}
	undoable, err := CanUndo(gdb, &entry)
	if err != nil {
		t.Fatalf("CanUndo: %v", err)
	}
	if undoable {
		t.Error("entry for a deleted project should not be undoable")
	}
}

func TestCanUndo_BulkShiftAlways(t *testing.T) {
	gdb := openAuditTestDB(t)
	entry := models.AuditEntry{Action: ActionDeliveriesShifted, InversePath: "/deliveries/bulk-shift"}
	undoable, err := CanUndo(gdb, &entry)
	if err != nil {
		t.Fatalf("CanUndo: %v", err)
	}
	if !undoable {
		t.Error("bulk shift entries are always undoable")
	}
}

func TestCanUndo_EmptyInverseNever(t *testing.T) {
	gdb := openAuditTestDB(t)
	entry := models.AuditEntry{Action: "estimate_accepted"}
	undoable, err := CanUndo(gdb, &entry)
	if err != nil {
		t.Fatalf("CanUndo: %v", err)
	}
	if undoable {
		t.Error("entry with empty inverse must never be undoable")
	}
}

func TestList_FilterAndLimit(t *testing.T) {
	gdb := openAuditTestDB(t)
	projA, projB := uint(1), uint(2)
	for i := 0; i < 3; i++ {
		Append(gdb, Entry{Action: ActionDeliveriesShifted, TargetType: TargetDelivery, ProjectID: &projA,
			Inverse: &Inverse{Method: "POST", Path: "/deliveries/bulk-shift", Payload: map[string]any{"days": -1}}})
	}
	Append(gdb, Entry{Action: ActionDeliveriesShifted, TargetType: TargetDelivery, ProjectID: &projB,
		Inverse: &Inverse{Method: "POST", Path: "/deliveries/bulk-shift", Payload: map[string]any{"days": -1}}})

	views, err := List(gdb, 2, &projA)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	// Newest first.
	if views[0].ID < views[1].ID {
		t.Error("entries not in descending id order")
	}
	for _, v := range views {
		if v.ProjectID == nil || *v.ProjectID != projA {
			t.Errorf("project filter leaked entry %d", v.ID)
		}
		if v.Inverse == nil || v.Inverse.Path != "/deliveries/bulk-shift" {
			t.Errorf("inverse missing on entry %d", v.ID)
		}
	}
}
