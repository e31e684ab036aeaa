package inventory

import (
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// CalculateCommitted sums the effective quantity of every material line whose
// parent task is still open, grouped by material id. Lines without a material
// id refer to unregistered materials and are never reserved.
func CalculateCommitted(gdb *gorm.DB) (map[uint]float64, error) {
	var lines []models.TaskMaterialLine
	err := gdb.Model(&models.TaskMaterialLine{}).
		Joins("JOIN tasks ON tasks.id = task_material_lines.task_id").
		Where("tasks.status <> ?", models.TaskStatusDone).
		Where("task_material_lines.material_id IS NOT NULL").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("inventory: load open lines: %w", err)
	}

	committed := make(map[uint]float64)
	for i := range lines {
		if qty := lines[i].EffectiveQty(); qty > 0 {
			committed[*lines[i].MaterialID] = Round3(committed[*lines[i].MaterialID] + qty)
		}
	}
	return committed, nil
}

// Available is the quantity that can safely be promised to new work:
// current stock minus reserved-but-not-consumed.
func Available(m *models.Material, committed map[uint]float64) float64 {
	return Round3(m.CurrentQty - committed[m.ID])
}

// ClassifyStock reports shortage when availability is negative, low when it
// sits under the threshold, ok otherwise.
func ClassifyStock(available, threshold float64) string {
	switch {
	case available < 0:
		return models.StockStatusShortage
	case available < threshold:
		return models.StockStatusLow
	default:
		return models.StockStatusOK
	}
}

// ReportRow is one material's availability snapshot.
type ReportRow struct {
	MaterialID   uint    `json:"materialId"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	CurrentQty   float64 `json:"currentQty"`
	ThresholdQty float64 `json:"thresholdQty"`
	Committed    float64 `json:"committed"`
	Available    float64 `json:"available"`
	Status       string  `json:"status"`
}

// Report is the availability report returned by GET /materials/availability.
// Unregistered lists material names that appear on open task lines without a
// registered material.
type Report struct {
	Rows         []ReportRow `json:"rows"`
	Unregistered []string    `json:"unregistered"`
}

// AvailabilityReport builds the advisory availability snapshot. It takes no
// locks; a slightly stale read is acceptable because the final authority for
// any debit is the transactional state machine, not this report.
func AvailabilityReport(gdb *gorm.DB) (*Report, error) {
	committed, err := CalculateCommitted(gdb)
	if err != nil {
		return nil, err
	}

	var materials []models.Material
	if err := gdb.Order("name ASC").Find(&materials).Error; err != nil {
		return nil, fmt.Errorf("inventory: load materials: %w", err)
	}

	report := &Report{Rows: make([]ReportRow, len(materials))}
	for i := range materials {
		m := &materials[i]
		avail := Available(m, committed)
		report.Rows[i] = ReportRow{
			MaterialID:   m.ID,
			Name:         m.Name,
			Unit:         m.Unit,
			CurrentQty:   m.CurrentQty,
			ThresholdQty: m.ThresholdQty,
			Committed:    committed[m.ID],
			Available:    avail,
			Status:       ClassifyStock(avail, m.ThresholdQty),
		}
	}

	err = gdb.Model(&models.TaskMaterialLine{}).
		Distinct("task_material_lines.material_name").
		Joins("JOIN tasks ON tasks.id = task_material_lines.task_id").
		Where("tasks.status <> ?", models.TaskStatusDone).
		Where("task_material_lines.material_id IS NULL").
		Where("task_material_lines.material_name <> ''").
		Order("task_material_lines.material_name ASC").
		Pluck("task_material_lines.material_name", &report.Unregistered).Error
	if err != nil {
		return nil, fmt.Errorf("inventory: load unregistered names: %w", err)
	}
	return report, nil
}
