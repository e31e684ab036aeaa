// Package delivery implements the transactional bulk date shift over a set
// of deliveries.
package delivery

import (
	"fmt"
	"sort"
	"time"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/audit"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// maxShiftDays bounds a single shift in either direction.
const maxShiftDays = 30

// ShiftInput selects the deliveries to move and by how much. When IDs is
// non-empty it wins over the status/date filter.
type ShiftInput struct {
	Days   int    `json:"days"`
	IDs    []uint `json:"ids,omitempty"`
	Status string `json:"status,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ShiftChange records one delivery's date movement.
type ShiftChange struct {
	ID      uint   `json:"id"`
	OldDate string `json:"oldDate"`
	NewDate string `json:"newDate"`
}

// ShiftResult is the outcome of a successful bulk shift.
type ShiftResult struct {
	Days    int           `json:"days"`
	Changes []ShiftChange `json:"changes"`
}

// Shift moves the selected deliveries by the given number of days inside one
// transaction, and records a single audit entry whose inverse replays the
// exact affected id set with the delta negated. Reversal therefore never
// re-derives the filter, so it is exact and order-independent.
func Shift(gdb *gorm.DB, in ShiftInput) (*ShiftResult, error) {
	if in.Days == 0 {
		return nil, apperr.New(apperr.CodeInvalid, "days must not be zero")
	}
	if in.Days < -maxShiftDays || in.Days > maxShiftDays {
		return nil, apperr.Newf(apperr.CodeInvalid, "days must be between -%d and %d", maxShiftDays, maxShiftDays)
	}

	var result *ShiftResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		q := db.LockForUpdate(tx).Order("id ASC")
		if len(in.IDs) > 0 {
			q = q.Where("id IN ?", in.IDs)
		} else {
			if in.Status != "" {
				q = q.Where("status = ?", in.Status)
			}
			if in.From != "" {
				q = q.Where("date >= ?", in.From)
			}
			if in.To != "" {
				q = q.Where("date <= ?", in.To)
			}
		}
		var deliveries []models.Delivery
		if err := q.Find(&deliveries).Error; err != nil {
			return fmt.Errorf("delivery: select for shift: %w", err)
		}
		if len(deliveries) == 0 {
			return apperr.New(apperr.CodeNotFound, "no deliveries matched")
		}

		changes := make([]ShiftChange, len(deliveries))
		ids := make([]uint, len(deliveries))
		for i := range deliveries {
			newDate, err := shiftDate(deliveries[i].Date, in.Days)
			if err != nil {
				return apperr.Newf(apperr.CodeInvalid, "delivery %d has malformed date %q", deliveries[i].ID, deliveries[i].Date)
			}
			changes[i] = ShiftChange{ID: deliveries[i].ID, OldDate: deliveries[i].Date, NewDate: newDate}
			ids[i] = deliveries[i].ID
		}

		// Update latest dates first when shifting forward (earliest first
		// when shifting back) so a moved row never lands on the date of a
		// not-yet-moved sibling under the (project, date, title) unique
		// index.
		order := make([]int, len(deliveries))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			da, db := deliveries[order[a]].Date, deliveries[order[b]].Date
			if in.Days > 0 {
				return da > db
			}
			return da < db
		})
		for _, i := range order {
			err := tx.Model(&models.Delivery{}).Where("id = ?", changes[i].ID).
				Update("date", changes[i].NewDate).Error
			if err != nil {
				return fmt.Errorf("delivery: shift delivery %d: %w", changes[i].ID, err)
			}
		}

		summary := fmt.Sprintf("shifted %d delivery(ies) by %+d day(s)", len(changes), in.Days)
		if in.Reason != "" {
			summary += " (" + in.Reason + ")"
		}
		err := audit.Append(tx, audit.Entry{
			Action:     audit.ActionDeliveriesShifted,
			TargetType: audit.TargetDelivery,
			Summary:    summary,
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    "/deliveries/bulk-shift",
				Payload: map[string]any{"days": -in.Days, "ids": ids},
			},
		})
		if err != nil {
			return err
		}

		result = &ShiftResult{Days: in.Days, Changes: changes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func shiftDate(date string, days int) (string, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, days).Format(models.DateLayout), nil
}
