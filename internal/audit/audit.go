// Package audit maintains the append-only log of executed mutations. Every
// entry carries a machine-executable inverse operation; undo is performed by
// replaying that inverse through the normal mutation path, never by a
// separate code path.
package audit

import (
	"encoding/json"
	"fmt"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// Audit actions.
const (
	ActionMaterialReceived  = "material_received"
	ActionTaskCompleted     = "task_completed"
	ActionTaskReverted      = "task_completion_reverted"
	ActionProjectCompleted  = "project_completed"
	ActionProjectReverted   = "project_completion_reverted"
	ActionDeliveriesShifted = "deliveries_shifted"
)

// Target types.
const (
	TargetMaterial = "material"
	TargetTask     = "task"
	TargetProject  = "project"
	TargetDelivery = "delivery"
)

// Inverse is the recorded operation that undoes an audit entry when replayed.
type Inverse struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Payload any    `json:"payload"`
}

// Entry describes a mutation to record. ProjectID is optional and enables
// per-project history filtering.
type Entry struct {
	Action     string
	TargetType string
	TargetID   uint
	ProjectID  *uint
	Summary    string
	Inverse    *Inverse
}

// Append writes an audit entry. It must be called inside the same
// transaction as the state change it describes, so either both commit or
// neither does.
func Append(tx *gorm.DB, e Entry) error {
	row := models.AuditEntry{
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		ProjectID:  e.ProjectID,
		Summary:    e.Summary,
	}
	if e.Inverse != nil {
		payload, err := json.Marshal(e.Inverse.Payload)
		if err != nil {
			return fmt.Errorf("audit: marshal inverse payload: %w", err)
		}
		row.InverseMethod = e.Inverse.Method
		row.InversePath = e.Inverse.Path
		row.InversePayload = string(payload)
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("audit: append %s: %w", e.Action, err)
	}
	return nil
}
