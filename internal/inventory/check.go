package inventory

import (
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// ShortLine names one material that cannot cover a required quantity.
type ShortLine struct {
	Name      string  `json:"name"`
	Required  float64 `json:"required"`
	Available float64 `json:"available"`
	Shortage  float64 `json:"shortage,omitempty"`
}

// TaskCheck is the per-task result of CheckTaskMaterials.
type TaskCheck struct {
	TaskID     uint        `json:"taskId"`
	Title      string      `json:"title"`
	Sufficient bool        `json:"sufficient"`
	Shortages  []ShortLine `json:"shortages,omitempty"`
}

// CheckTaskMaterials evaluates, per task, whether current stock covers each
// line's planned quantity. Materials are resolved by id first, then by name;
// unresolvable lines count as fully short. Raw current stock is compared
// here, not committed-aware availability — this answers "could I complete
// this task right now".
func CheckTaskMaterials(gdb *gorm.DB, taskIDs []uint) ([]TaskCheck, error) {
	var tasks []models.Task
	if err := gdb.Preload("Lines").Where("id IN ?", taskIDs).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("inventory: load tasks: %w", err)
	}

	checks := make([]TaskCheck, len(tasks))
	for i := range tasks {
		check := TaskCheck{TaskID: tasks[i].ID, Title: tasks[i].Title, Sufficient: true}
		for j := range tasks[i].Lines {
			line := &tasks[i].Lines[j]
			if line.QtyPlanned <= 0 {
				continue
			}
			m, err := resolve(gdb, line.MaterialID, line.MaterialName)
			if err != nil {
				return nil, err
			}
			if m == nil {
				check.Shortages = append(check.Shortages, ShortLine{
					Name:     line.MaterialName,
					Required: line.QtyPlanned,
					Shortage: line.QtyPlanned,
				})
				check.Sufficient = false
				continue
			}
			if m.CurrentQty < line.QtyPlanned {
				check.Shortages = append(check.Shortages, ShortLine{
					Name:      m.Name,
					Required:  line.QtyPlanned,
					Available: m.CurrentQty,
					Shortage:  Round3(line.QtyPlanned - m.CurrentQty),
				})
				check.Sufficient = false
			}
		}
		checks[i] = check
	}
	return checks, nil
}
