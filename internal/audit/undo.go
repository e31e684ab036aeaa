package audit

import (
	"errors"
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// CanUndo reports whether an entry's inverse can currently be applied. It is
// computed from the present state of the referenced entity, never stored, so
// it cannot drift the way a persisted flag would.
//
// A completion is undoable while the target is still completed; a revert is
// undoable while the target is not completed. Bulk shifts carry their exact
// id list and delta in the inverse, so they are always undoable. Any other
// entry is undoable iff it recorded a non-empty inverse.
func CanUndo(gdb *gorm.DB, entry *models.AuditEntry) (bool, error) {
	switch entry.Action {
	case ActionTaskCompleted:
		task, err := loadTask(gdb, entry.TargetID)
		if err != nil || task == nil {
			return false, err
		}
		return task.Status == models.TaskStatusDone, nil
	case ActionTaskReverted:
		task, err := loadTask(gdb, entry.TargetID)
		if err != nil || task == nil {
			return false, err
		}
		return task.Status != models.TaskStatusDone, nil
	case ActionProjectCompleted:
		project, err := loadProject(gdb, entry.TargetID)
		if err != nil || project == nil {
			return false, err
		}
		return project.Status == models.ProjectStatusCompleted, nil
	case ActionProjectReverted:
		project, err := loadProject(gdb, entry.TargetID)
		if err != nil || project == nil {
			return false, err
		}
		return project.Status != models.ProjectStatusCompleted, nil
	case ActionDeliveriesShifted:
		return true, nil
	default:
		return entry.InversePath != "", nil
	}
}

func loadTask(gdb *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := gdb.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: load task %d: %w", id, err)
	}
	return &task, nil
}

func loadProject(gdb *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	if err := gdb.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: load project %d: %w", id, err)
	}
	return &project, nil
}
