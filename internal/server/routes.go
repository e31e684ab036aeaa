package server

import (
	"github.com/gin-gonic/gin"
	"github.com/ostrander/workbench/internal/notify"
	"gorm.io/gorm"
)

// registerRoutes sets up all routes on the Gin router. Mutating routes sit
// behind the idempotency wrapper; advisory and history reads do not.
func registerRoutes(router *gin.Engine, gdb *gorm.DB, notifier notify.Notifier) {
	// Read-only surface.
	router.GET("/materials/availability", handleAvailability(gdb))
	router.GET("/history", handleHistory(gdb))
	router.POST("/estimates/stock-preview", handleStockPreview(gdb))
	router.POST("/tasks/materials-check", handleMaterialsCheck(gdb))

	// Mutating surface.
	mut := router.Group("/", idempotencyMiddleware(gdb))
	mut.POST("/materials/:id/receive", handleReceive(gdb))
	mut.POST("/tasks/:id/complete", handleTaskComplete(gdb))
	mut.POST("/tasks/:id/revert-complete", handleTaskRevert(gdb))
	mut.POST("/projects/:id/complete", handleProjectComplete(gdb, notifier))
	mut.POST("/projects/:id/revert-complete", handleProjectRevert(gdb))
	mut.POST("/deliveries/bulk-shift", handleBulkShift(gdb))
}
