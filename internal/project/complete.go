// Package project implements the project completion state machine. Locks
// are taken in Project, then Task, then Material order, the direction
// completion flows, so concurrent transitions cannot deadlock.
package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/audit"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/inventory"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// LowStockLine reports a material that fell under its threshold during
// project completion.
type LowStockLine struct {
	MaterialID   uint    `json:"materialId"`
	Name         string  `json:"name"`
	CurrentQty   float64 `json:"currentQty"`
	ThresholdQty float64 `json:"thresholdQty"`
}

// Result is the outcome of a successful transition.
type Result struct {
	ProjectID   uint           `json:"projectId"`
	Title       string         `json:"title"`
	Status      string         `json:"status"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Debits      int            `json:"debits"`
	Credits     int            `json:"credits"`
	Deliveries  int64          `json:"deliveries"`
	LowStock    []LowStockLine `json:"lowStock,omitempty"`
}

// Complete transitions an active project to completed. All tasks must be
// done and prepared; any task line with a positive used quantity that no
// prior task completion debited is debited here, under the line's explicit
// debit marker, and every pending delivery flips to delivered.
func Complete(gdb *gorm.DB, projectID uint, completedAt *time.Time) (*Result, error) {
	var result *Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		p, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Status == models.ProjectStatusCompleted {
			return apperr.New(apperr.CodeConflict, "project already completed")
		}
		if !p.Active() {
			return apperr.Newf(apperr.CodeConflict, "project is %s", p.Status)
		}

		tasks, err := lockTasks(tx, p.ID)
		if err != nil {
			return err
		}

		// Readiness gate. A task blocks completion when it is not done, or
		// when it was marked done without preparation bookkeeping while
		// carrying a positive used quantity.
		var unready []string
		for i := range tasks {
			switch {
			case tasks[i].Status != models.TaskStatusDone:
				unready = append(unready, tasks[i].Title)
			case tasks[i].PreparedAt == nil && hasPositiveUsed(tasks[i].Lines):
				unready = append(unready, tasks[i].Title)
			}
		}
		if len(unready) > 0 {
			return apperr.Newf(apperr.CodePreconditionFailed,
				"tasks not ready: %s", strings.Join(unready, ", ")).
				WithDetails(unready)
		}

		// Catch-all debit: used quantities recorded after task completion
		// (or through paths that skipped it) that no transition has debited
		// yet. The explicit marker is the authority, never task status.
		var pending []models.TaskMaterialLine
		for i := range tasks {
			for j := range tasks[i].Lines {
				line := tasks[i].Lines[j]
				if line.QtyUsed > 0 && !line.Debited {
					pending = append(pending, line)
				}
			}
		}

		materials, lineMaterial, err := inventory.LockLineMaterials(tx, pending)
		if err != nil {
			return err
		}

		// Verify summed totals per material, not lines independently.
		required := make(map[uint]float64)
		for i := range pending {
			mid, ok := lineMaterial[pending[i].ID]
			if !ok {
				continue
			}
			required[mid] = inventory.Round3(required[mid] + pending[i].QtyUsed)
		}
		if shorts := inventory.ShortTotals(materials, required); len(shorts) > 0 {
			return apperr.Newf(apperr.CodeInsufficientStock, "insufficient stock for %d material(s)", len(shorts)).
				WithDetails(shorts)
		}

		debits := 0
		var lowStock []LowStockLine
		for i := range pending {
			mid, ok := lineMaterial[pending[i].ID]
			if !ok {
				continue
			}
			m := materials[mid]
			qty := inventory.Round3(pending[i].QtyUsed)
			if err := inventory.ApplyDelta(tx, m, -qty); err != nil {
				return err
			}
			err := tx.Model(&models.TaskMaterialLine{}).Where("id = ?", pending[i].ID).
				Updates(map[string]interface{}{
					"debited":     true,
					"debited_by":  models.DebitedByProject,
					"debited_qty": qty,
				}).Error
			if err != nil {
				return fmt.Errorf("project: mark line %d debited: %w", pending[i].ID, err)
			}
			debits++
			if m.CurrentQty < m.ThresholdQty {
				lowStock = append(lowStock, LowStockLine{
					MaterialID:   m.ID,
					Name:         m.Name,
					CurrentQty:   m.CurrentQty,
					ThresholdQty: m.ThresholdQty,
				})
			}
		}

		now := time.Now()
		if completedAt != nil {
			now = *completedAt
		}
		if err := updateProject(tx, p, map[string]interface{}{
			"status":       models.ProjectStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return err
		}

		flip := tx.Model(&models.Delivery{}).
			Where("project_id = ? AND status = ?", p.ID, models.DeliveryStatusPending).
			Updates(map[string]interface{}{
				"status":       models.DeliveryStatusDelivered,
				"completed_at": now,
			})
		if flip.Error != nil {
			return fmt.Errorf("project: flip deliveries for project %d: %w", p.ID, flip.Error)
		}

		err = audit.Append(tx, audit.Entry{
			Action:     audit.ActionProjectCompleted,
			TargetType: audit.TargetProject,
			TargetID:   p.ID,
			ProjectID:  &p.ID,
			Summary:    fmt.Sprintf("project %q completed (%d residual debit(s), %d delivery(ies))", p.Title, debits, flip.RowsAffected),
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    fmt.Sprintf("/projects/%d/revert-complete", p.ID),
				Payload: map[string]any{},
			},
		})
		if err != nil {
			return err
		}

		result = &Result{
			ProjectID:   p.ID,
			Title:       p.Title,
			Status:      models.ProjectStatusCompleted,
			CompletedAt: &now,
			Debits:      debits,
			Deliveries:  flip.RowsAffected,
			LowStock:    lowStock,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revert transitions a completed project back to delivery_scheduled,
// crediting back exactly the lines its completion debited and returning
// delivered deliveries to pending.
func Revert(gdb *gorm.DB, projectID uint) (*Result, error) {
	var result *Result
	err := gdb.Transaction(func(tx *gorm.DB) error {
		p, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if p.Status != models.ProjectStatusCompleted {
			return apperr.New(apperr.CodeConflict, "project not completed")
		}

		tasks, err := lockTasks(tx, p.ID)
		if err != nil {
			return err
		}

		var debited []models.TaskMaterialLine
		for i := range tasks {
			for j := range tasks[i].Lines {
				if tasks[i].Lines[j].Debited && tasks[i].Lines[j].DebitedBy == models.DebitedByProject {
					debited = append(debited, tasks[i].Lines[j])
				}
			}
		}
		// Same ascending material-id lock order as Complete.
		materials, lineMaterial, err := inventory.LockLineMaterials(tx, debited)
		if err != nil {
			return err
		}

		credits := 0
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
				return fmt.Errorf("project: clear line %d debit: %w", debited[i].ID, err)
			}
			credits++
		}

		if err := updateProject(tx, p, map[string]interface{}{
			"status":       models.ProjectStatusDeliveryScheduled,
			"completed_at": nil,
		}); err != nil {
			return err
		}

		flip := tx.Model(&models.Delivery{}).
			Where("project_id = ? AND status = ?", p.ID, models.DeliveryStatusDelivered).
			Updates(map[string]interface{}{
				"status":       models.DeliveryStatusPending,
				"completed_at": nil,
			})
		if flip.Error != nil {
			return fmt.Errorf("project: unflip deliveries for project %d: %w", p.ID, flip.Error)
		}

		err = audit.Append(tx, audit.Entry{
			Action:     audit.ActionProjectReverted,
			TargetType: audit.TargetProject,
			TargetID:   p.ID,
			ProjectID:  &p.ID,
			Summary:    fmt.Sprintf("project %q completion reverted (%d material credit(s))", p.Title, credits),
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    fmt.Sprintf("/projects/%d/complete", p.ID),
				Payload: map[string]any{},
			},
		})
		if err != nil {
			return err
		}

		result = &Result{
			ProjectID:  p.ID,
			Title:      p.Title,
			Status:     models.ProjectStatusDeliveryScheduled,
			Credits:    credits,
			Deliveries: flip.RowsAffected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func hasPositiveUsed(lines []models.TaskMaterialLine) bool {
	for i := range lines {
		if lines[i].QtyUsed > 0 {
			return true
		}
	}
	return false
}

func lockProject(tx *gorm.DB, projectID uint) (*models.Project, error) {
	var p models.Project
	err := db.LockForUpdate(tx).First(&p, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "project %d not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("project: lock project %d: %w", projectID, err)
	}
	return &p, nil
}

func lockTasks(tx *gorm.DB, projectID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := db.LockForUpdate(tx).Preload("Lines").
		Where("project_id = ?", projectID).Order("id ASC").Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("project: lock tasks for project %d: %w", projectID, err)
	}
	return tasks, nil
}

func updateProject(tx *gorm.DB, p *models.Project, changes map[string]interface{}) error {
	changes["version"] = p.Version + 1
	res := tx.Model(&models.Project{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("project: update project %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeConflict, "project was modified concurrently")
	}
	p.Version++
	return nil
}
