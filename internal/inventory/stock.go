// Package inventory owns the materials ledger: committed/available
// calculations, sufficiency checks, stock previews, and the receive
// operation. All mutations round to 3 decimals and keep current quantity
// non-negative at every commit boundary.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// Round3 rounds a quantity to the ledger's 3-decimal fixed point.
func Round3(q float64) float64 {
	return math.Round(q*1000) / 1000
}

// FormatQty renders a quantity without trailing zeros, for summaries.
func FormatQty(q float64) string {
	return strconv.FormatFloat(Round3(q), 'f', -1, 64)
}

// ApplyDelta adds delta to a material's current quantity under the row lock
// the caller already holds, enforcing the non-negative invariant and the
// optimistic version token. The in-memory material is updated to match.
func ApplyDelta(tx *gorm.DB, m *models.Material, delta float64) error {
	newQty := Round3(m.CurrentQty + delta)
	if newQty < 0 {
		return apperr.Newf(apperr.CodeInsufficientStock, "material %q stock would go negative", m.Name)
	}
	res := tx.Model(&models.Material{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]interface{}{
			"current_qty": newQty,
			"version":     m.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("inventory: update material %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Newf(apperr.CodeConflict, "material %q was modified concurrently", m.Name)
	}
	m.CurrentQty = newQty
	m.Version++
	return nil
}

// ResolveForUpdate loads a material by id, else by name, under a row lock.
// Returns nil without error when no material matches.
func ResolveForUpdate(tx *gorm.DB, id *uint, name string) (*models.Material, error) {
	var m models.Material
	var err error
	switch {
	case id != nil:
		err = db.LockForUpdate(tx).First(&m, *id).Error
	case name != "":
		err = db.LockForUpdate(tx).First(&m, "name = ?", name).Error
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: resolve material: %w", err)
	}
	return &m, nil
}

// resolve loads a material by id, else by name, without locking.
func resolve(tx *gorm.DB, id *uint, name string) (*models.Material, error) {
	var m models.Material
	var err error
	switch {
	case id != nil:
		err = tx.First(&m, *id).Error
	case name != "":
		err = tx.First(&m, "name = ?", name).Error
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: resolve material: %w", err)
	}
	return &m, nil
}

// ShortTotals compares the summed required quantity per material against the
// locked stock and lists every material that cannot cover its total, in
// ascending material-id order. Summing first matters: two lines drawing on
// the same material can each pass an independent check while their sum
// overdraws it.
func ShortTotals(materials map[uint]*models.Material, required map[uint]float64) []ShortLine {
	ids := make([]uint, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var shorts []ShortLine
	for _, id := range ids {
		m := materials[id]
		if m.CurrentQty < required[id] {
			shorts = append(shorts, ShortLine{
				Name:      m.Name,
				Required:  required[id],
				Available: m.CurrentQty,
				Shortage:  Round3(required[id] - m.CurrentQty),
			})
		}
	}
	return shorts
}

// LockLineMaterials resolves the materials referenced by a set of task lines
// and row-locks them in ascending material-id order, so concurrent
// completions touching overlapping materials cannot deadlock. The second map
// links each resolvable line id to its material id; lines referencing
// unregistered materials are absent from it.
func LockLineMaterials(tx *gorm.DB, lines []models.TaskMaterialLine) (map[uint]*models.Material, map[uint]uint, error) {
	lineMaterial := make(map[uint]uint)
	idSet := make(map[uint]bool)
	for i := range lines {
		m, err := resolve(tx, lines[i].MaterialID, lines[i].MaterialName)
		if err != nil {
			return nil, nil, err
		}
		if m == nil {
			continue
		}
		lineMaterial[lines[i].ID] = m.ID
		idSet[m.ID] = true
	}

	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[uint]*models.Material, len(ids))
	for _, id := range ids {
		var m models.Material
		if err := db.LockForUpdate(tx).First(&m, id).Error; err != nil {
			return nil, nil, fmt.Errorf("inventory: lock material %d: %w", id, err)
		}
		locked[id] = &m
	}
	return locked, lineMaterial, nil
}
