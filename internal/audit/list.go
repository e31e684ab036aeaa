package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// EntryView is an audit entry as returned by the history endpoint, with the
// inverse decoded and undo eligibility computed against current state.
type EntryView struct {
	ID         uint            `json:"id"`
	Action     string          `json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   uint            `json:"targetId"`
	ProjectID  *uint           `json:"projectId,omitempty"`
	Summary    string          `json:"summary"`
	CreatedAt  time.Time       `json:"createdAt"`
	CanUndo    bool            `json:"canUndo"`
	Inverse    *InversePayload `json:"inverse,omitempty"`
}

// InversePayload mirrors Inverse with the payload kept as raw JSON.
type InversePayload struct {
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Payload json.RawMessage `json:"payload"`
}

// List returns the most recent entries, newest first, optionally restricted
// to one project.
func List(gdb *gorm.DB, limit int, projectID *uint) ([]EntryView, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := gdb.Model(&models.AuditEntry{}).Order("id DESC").Limit(limit)
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var rows []models.AuditEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}

	views := make([]EntryView, len(rows))
	for i := range rows {
		undoable, err := CanUndo(gdb, &rows[i])
		if err != nil {
			return nil, err
		}
		views[i] = EntryView{
			ID:         rows[i].ID,
			Action:     rows[i].Action,
			TargetType: rows[i].TargetType,
			TargetID:   rows[i].TargetID,
			ProjectID:  rows[i].ProjectID,
			Summary:    rows[i].Summary,
			CreatedAt:  rows[i].CreatedAt,
			CanUndo:    undoable,
		}
		if rows[i].InversePath != "" {
			views[i].Inverse = &InversePayload{
				Method:  rows[i].InverseMethod,
				Path:    rows[i].InversePath,
				Payload: json.RawMessage(rows[i].InversePayload),
			}
		}
	}
	return views, nil
}
