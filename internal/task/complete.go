// Package task implements the task completion state machine: todo/doing to
// done with a transactional all-or-nothing material debit, and back.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/audit"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/inventory"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// LineDebit reports one material movement performed by a transition.
type LineDebit struct {
	MaterialID uint    `json:"materialId"`
	Name       string  `json:"name"`
	Qty        float64 `json:"qty"`
}

// Result is the outcome of a successful transition.
type Result struct {
	TaskID     uint        `json:"taskId"`
	ProjectID  uint        `json:"projectId"`
	Status     string      `json:"status"`
	PreparedAt *time.Time  `json:"preparedAt,omitempty"`
	Debits     []LineDebit `json:"debits,omitempty"`
	Credits    []LineDebit `json:"credits,omitempty"`
}

// Complete transitions a task to done, debiting the effective quantity of
// every material line. All lines are verified against locked stock before
// any debit; a single short line fails the whole transition with every
// short line listed.
func Complete(gdb *gorm.DB, taskID uint) (*Result, error) {
	var result *Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if t.Status == models.TaskStatusDone {
			return apperr.New(apperr.CodeConflict, "task already done")
		}

		lines, err := loadLines(tx, t.ID)
		if err != nil {
			return err
		}
		materials, lineMaterial, err := inventory.LockLineMaterials(tx, lines)
		if err != nil {
			return err
		}

		// Verify totals per material before debiting any line, so lines
		// sharing a material cannot each pass while their sum overdraws it.
		// Lines referencing unregistered materials carry no reservation and
		// are skipped.
		required := make(map[uint]float64)
		for i := range lines {
			qty := lines[i].EffectiveQty()
			if qty <= 0 {
				continue
			}
			mid, ok := lineMaterial[lines[i].ID]
			if !ok {
				continue
			}
			required[mid] = inventory.Round3(required[mid] + qty)
		}
		if shorts := inventory.ShortTotals(materials, required); len(shorts) > 0 {
			return apperr.Newf(apperr.CodeInsufficientStock, "insufficient stock for %d material(s)", len(shorts)).
				WithDetails(shorts)
		}

		var debits []LineDebit
		for i := range lines {
			qty := lines[i].EffectiveQty()
			if qty <= 0 {
				continue
			}
			mid, ok := lineMaterial[lines[i].ID]
			if !ok {
				continue
			}
			m := materials[mid]
			if err := inventory.ApplyDelta(tx, m, -qty); err != nil {
				return err
			}
			err := tx.Model(&models.TaskMaterialLine{}).Where("id = ?", lines[i].ID).
				Updates(map[string]interface{}{
					"debited":     true,
					"debited_by":  models.DebitedByTask,
					"debited_qty": inventory.Round3(qty),
				}).Error
			if err != nil {
				return fmt.Errorf("task: mark line %d debited: %w", lines[i].ID, err)
			}
			debits = append(debits, LineDebit{MaterialID: m.ID, Name: m.Name, Qty: qty})
		}

		now := time.Now()
		if err := updateTask(tx, t, map[string]interface{}{
			"status":      models.TaskStatusDone,
			"prepared_at": now,
		}); err != nil {
			return err
		}

		err = audit.Append(tx, audit.Entry{
			Action:     audit.ActionTaskCompleted,
			TargetType: audit.TargetTask,
			TargetID:   t.ID,
			ProjectID:  &t.ProjectID,
			Summary:    fmt.Sprintf("task %q completed (%d material debit(s))", t.Title, len(debits)),
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    fmt.Sprintf("/tasks/%d/revert-complete", t.ID),
				Payload: map[string]any{},
			},
		})
		if err != nil {
			return err
		}

		result = &Result{
			TaskID:     t.ID,
			ProjectID:  t.ProjectID,
			Status:     models.TaskStatusDone,
			PreparedAt: &now,
			Debits:     debits,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revert transitions a done task back to todo, crediting back exactly what
// its completion debited and clearing preparedAt.
func Revert(gdb *gorm.DB, taskID uint) (*Result, error) {
	var result *Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if t.Status != models.TaskStatusDone {
			return apperr.New(apperr.CodeConflict, "task already incomplete")
		}

		lines, err := loadLines(tx, t.ID)
		if err != nil {
			return err
		}

		var debited []models.TaskMaterialLine
		for i := range lines {
			if lines[i].Debited && lines[i].DebitedBy == models.DebitedByTask {
				debited = append(debited, lines[i])
			}
		}
		// Same ascending material-id lock order as Complete.
		materials, lineMaterial, err := inventory.LockLineMaterials(tx, debited)
		if err != nil {
			return err
		}

		var credits []LineDebit
		for i := range debited {
			mid, ok := lineMaterial[debited[i].ID]
			if !ok {
				return apperr.Newf(apperr.CodeConflict, "material for line %d no longer exists", debited[i].ID)
			}
			m := materials[mid]
			if err := inventory.ApplyDelta(tx, m, debited[i].DebitedQty); err != nil {
				return err
			}
			err = tx.Model(&models.TaskMaterialLine{}).Where("id = ?", debited[i].ID).
				Updates(map[string]interface{}{
					"debited":     false,
					"debited_by":  "",
					"debited_qty": 0,
				}).Error
			if err != nil {
				return fmt.Errorf("task: clear line %d debit: %w", debited[i].ID, err)
			}
			credits = append(credits, LineDebit{MaterialID: m.ID, Name: m.Name, Qty: debited[i].DebitedQty})
		}

		if err := updateTask(tx, t, map[string]interface{}{
			"status":      models.TaskStatusTodo,
			"prepared_at": nil,
		}); err != nil {
			return err
		}

		err = audit.Append(tx, audit.Entry{
			Action:     audit.ActionTaskReverted,
			TargetType: audit.TargetTask,
			TargetID:   t.ID,
			ProjectID:  &t.ProjectID,
			Summary:    fmt.Sprintf("task %q completion reverted (%d material credit(s))", t.Title, len(credits)),
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    fmt.Sprintf("/tasks/%d/complete", t.ID),
				Payload: map[string]any{},
			},
		})
		if err != nil {
			return err
		}

		result = &Result{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			Status:    models.TaskStatusTodo,
			Credits:   credits,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func lockTask(tx *gorm.DB, taskID uint) (*models.Task, error) {
	var t models.Task
	err := db.LockForUpdate(tx).First(&t, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("task: lock task %d: %w", taskID, err)
	}
	return &t, nil
}

func loadLines(tx *gorm.DB, taskID uint) ([]models.TaskMaterialLine, error) {
	var lines []models.TaskMaterialLine
	if err := tx.Where("task_id = ?", taskID).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("task: load lines for task %d: %w", taskID, err)
	}
	return lines, nil
}

// updateTask applies the transition with the optimistic version check; a
// stale version means another request transitioned the task first.
func updateTask(tx *gorm.DB, t *models.Task, changes map[string]interface{}) error {
	changes["version"] = t.Version + 1
	res := tx.Model(&models.Task{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("task: update task %d: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeConflict, "task was modified concurrently")
	}
	t.Version++
	return nil
}
