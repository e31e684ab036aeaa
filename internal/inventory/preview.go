package inventory

import (
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// PreviewLine is one quoted material requirement to check before accepting
// an estimate.
type PreviewLine struct {
	MaterialID *uint   `json:"materialId"`
	Name       string  `json:"name"`
	Qty        float64 `json:"qty"`
}

// PreviewResult partitions estimate lines by whether committed-aware
// availability covers them. Status is shortage when any line is short,
// unregistered when lines reference unknown materials but none is short,
// ok otherwise.
type PreviewResult struct {
	Status       string      `json:"status"`
	OK           []string    `json:"ok"`
	Shortages    []ShortLine `json:"shortages,omitempty"`
	Unregistered []string    `json:"unregistered,omitempty"`
}

// StockPreview checks estimate lines against availability (current stock
// minus committed), the quantity that can actually be promised to new work
// on top of what open tasks already reserve. Advisory only: no locks, no
// mutation.
func StockPreview(gdb *gorm.DB, lines []PreviewLine) (*PreviewResult, error) {
	committed, err := CalculateCommitted(gdb)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{Status: models.StockStatusOK, OK: []string{}}
	for i := range lines {
		if lines[i].Qty <= 0 {
			continue
		}
		m, err := resolve(gdb, lines[i].MaterialID, lines[i].Name)
		if err != nil {
			return nil, err
		}
		if m == nil {
			result.Unregistered = append(result.Unregistered, lines[i].Name)
			continue
		}
		avail := Available(m, committed)
		if avail < lines[i].Qty {
			result.Shortages = append(result.Shortages, ShortLine{
				Name:      m.Name,
				Required:  lines[i].Qty,
				Available: avail,
				Shortage:  Round3(lines[i].Qty - avail),
			})
			continue
		}
		result.OK = append(result.OK, m.Name)
	}

	switch {
	case len(result.Shortages) > 0:
		result.Status = models.StockStatusShortage
	case len(result.Unregistered) > 0:
		result.Status = "unregistered"
	}
	return result, nil
}

// EstimateLines loads an estimate's lines as preview input, for previews
// that reference a stored estimate instead of posting lines inline.
func EstimateLines(gdb *gorm.DB, estimateID uint) ([]PreviewLine, error) {
	var rows []models.EstimateLine
	if err := gdb.Where("estimate_id = ?", estimateID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("inventory: load estimate %d lines: %w", estimateID, err)
	}
	lines := make([]PreviewLine, len(rows))
	for i := range rows {
		lines[i] = PreviewLine{
			MaterialID: rows[i].MaterialID,
			Name:       rows[i].MaterialName,
			Qty:        rows[i].Qty,
		}
	}
	return lines, nil
}
