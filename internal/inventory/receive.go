package inventory

import (
	"fmt"

	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/audit"
	"gorm.io/gorm"
)

// ReceiveResult reports the stock level after an inbound correction.
type ReceiveResult struct {
	MaterialID uint    `json:"materialId"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	CurrentQty float64 `json:"currentQty"`
}

// Receive adds an inbound quantity to a material under a row lock. The
// recorded inverse is another receive with the amount negated, at the same
// endpoint.
func Receive(gdb *gorm.DB, materialID uint, quantity float64, note string) (*ReceiveResult, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.CodeInvalid, "quantity must be positive")
	}

	var result *ReceiveResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		m, err := ResolveForUpdate(tx, &materialID, "")
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.Newf(apperr.CodeNotFound, "material %d not found", materialID)
		}

		if err := ApplyDelta(tx, m, quantity); err != nil {
			return err
		}

		summary := fmt.Sprintf("received %s %s of %q", FormatQty(quantity), m.Unit, m.Name)
		if note != "" {
			summary += " (" + note + ")"
		}
		err = audit.Append(tx, audit.Entry{
			Action:     audit.ActionMaterialReceived,
			TargetType: audit.TargetMaterial,
			TargetID:   m.ID,
			Summary:    summary,
			Inverse: &audit.Inverse{
				Method:  "POST",
				Path:    fmt.Sprintf("/materials/%d/receive", m.ID),
				Payload: map[string]any{"quantity": -quantity},
			},
		})
		if err != nil {
			return err
		}

		result = &ReceiveResult{
			MaterialID: m.ID,
			Name:       m.Name,
			Quantity:   quantity,
			CurrentQty: m.CurrentQty,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
