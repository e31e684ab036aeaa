package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ostrander/workbench/internal/apperr"
	"github.com/ostrander/workbench/internal/audit"
	"github.com/ostrander/workbench/internal/delivery"
	"github.com/ostrander/workbench/internal/inventory"
	"github.com/ostrander/workbench/internal/notify"
	"github.com/ostrander/workbench/internal/project"
	"github.com/ostrander/workbench/internal/task"
	"gorm.io/gorm"
)

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.Newf(apperr.CodeInvalid, "malformed id %q", c.Param("id"))
	}
	return uint(id), nil
}

func handleReceive(gdb *gorm.DB) gin.HandlerFunc {
	type request struct {
		Quantity float64 `json:"quantity"`
		Note     string  `json:"note"`
	}
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.New(apperr.CodeInvalid, "malformed request body"))
			return
		}
		result, err := inventory.Receive(gdb, id, req.Quantity, req.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleTaskComplete(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		result, err := task.Complete(gdb, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleTaskRevert(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		result, err := task.Revert(gdb, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleProjectComplete(gdb *gorm.DB, notifier notify.Notifier) gin.HandlerFunc {
	type request struct {
		CompletedAt string `json:"completedAt"`
	}
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req request
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, apperr.New(apperr.CodeInvalid, "malformed request body"))
				return
			}
		}
		var completedAt *time.Time
		if req.CompletedAt != "" {
			at, err := time.Parse(time.RFC3339, req.CompletedAt)
			if err != nil {
				respondError(c, apperr.New(apperr.CodeInvalid, "completedAt must be RFC 3339"))
				return
			}
			completedAt = &at
		}

		result, err := project.Complete(gdb, id, completedAt)
		if err != nil {
			respondError(c, err)
			return
		}

		if notifier != nil && len(result.LowStock) > 0 {
			names := make([]string, len(result.LowStock))
			for i, l := range result.LowStock {
				names[i] = l.Name
			}
			// Best-effort; Multi logs failures itself.
			notifier.Send(notify.LowStockAlert(result.Title, names))
		}
		respondOK(c, result)
	}
}

func handleProjectRevert(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		result, err := project.Revert(gdb, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleBulkShift(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in delivery.ShiftInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, apperr.New(apperr.CodeInvalid, "malformed request body"))
			return
		}
		result, err := delivery.Shift(gdb, in)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleAvailability(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := inventory.AvailabilityReport(gdb)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, report)
	}
}

func handleHistory(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, apperr.New(apperr.CodeInvalid, "limit must be a non-negative integer"))
				return
			}
			limit = n
		}
		var projectID *uint
		if raw := c.Query("project_id"); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				respondError(c, apperr.New(apperr.CodeInvalid, "project_id must be an integer"))
				return
			}
			id := uint(n)
			projectID = &id
		}
		entries, err := audit.List(gdb, limit, projectID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, entries)
	}
}

func handleStockPreview(gdb *gorm.DB) gin.HandlerFunc {
	type request struct {
		EstimateID uint                    `json:"estimateId"`
		Lines      []inventory.PreviewLine `json:"lines"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.New(apperr.CodeInvalid, "malformed request body"))
			return
		}
		lines := req.Lines
		if req.EstimateID != 0 {
			loaded, err := inventory.EstimateLines(gdb, req.EstimateID)
			if err != nil {
				respondError(c, err)
				return
			}
			lines = loaded
		}
		result, err := inventory.StockPreview(gdb, lines)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, result)
	}
}

func handleMaterialsCheck(gdb *gorm.DB) gin.HandlerFunc {
	type request struct {
		IDs []uint `json:"ids"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.New(apperr.CodeInvalid, "malformed request body"))
			return
		}
		checks, err := inventory.CheckTaskMaterials(gdb, req.IDs)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, checks)
	}
}
