package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ostrander/workbench/internal/inventory"
	"github.com/ostrander/workbench/internal/models"
	"gorm.io/gorm"
)

// BuildDigest summarizes pending deliveries due within the window and
// materials that are low or short. Returns "" when there is nothing to say.
func BuildDigest(gdb *gorm.DB, now time.Time, windowDays int) (string, error) {
	var b strings.Builder

	from := now.Format(models.DateLayout)
	to := now.AddDate(0, 0, windowDays).Format(models.DateLayout)
	var deliveries []models.Delivery
	err := gdb.Where("status = ? AND date >= ? AND date <= ?", models.DeliveryStatusPending, from, to).
		Order("date ASC, id ASC").Find(&deliveries).Error
	if err != nil {
		return "", fmt.Errorf("notify: load upcoming deliveries: %w", err)
	}
	if len(deliveries) > 0 {
		fmt.Fprintf(&b, "Deliveries due by %s:\n", to)
		for i := range deliveries {
			fmt.Fprintf(&b, "  %s  %s (project %d)\n", deliveries[i].Date, deliveries[i].Title, deliveries[i].ProjectID)
		}
	}

	report, err := inventory.AvailabilityReport(gdb)
	if err != nil {
		return "", err
	}
	var stockLines []string
	for _, row := range report.Rows {
		if row.Status == models.StockStatusOK {
			continue
		}
		stockLines = append(stockLines, fmt.Sprintf("  %s: %s available %s (threshold %s)",
			row.Name, row.Status, inventory.FormatQty(row.Available), inventory.FormatQty(row.ThresholdQty)))
	}
	if len(stockLines) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Stock warnings:\n")
		b.WriteString(strings.Join(stockLines, "\n"))
		b.WriteString("\n")
	}

	return b.String(), nil
}

// LowStockAlert formats the low-stock lines a project completion reported.
func LowStockAlert(projectTitle string, lines []string) string {
	return fmt.Sprintf("Project %q completed; materials under threshold: %s",
		projectTitle, strings.Join(lines, ", "))
}
