package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ostrander/workbench/internal/config"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/inventory"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newStockCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Print the materials availability report",
		Long:  "Shows per-material current, committed and available quantities with shortage/low/ok classification.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStock(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workbench.yaml", "path to Workbench config file")
	return cmd
}

func runStock(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}

	report, err := inventory.AvailabilityReport(gdb)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		// Plain TSV when not attached to a terminal.
		for _, row := range report.Rows {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
				row.Name, inventory.FormatQty(row.CurrentQty), inventory.FormatQty(row.Committed),
				inventory.FormatQty(row.Available), row.Status)
		}
		if len(report.Unregistered) > 0 {
			fmt.Fprintf(out, "unregistered\t%s\n", strings.Join(report.Unregistered, ","))
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Material", "Unit", "Current", "Committed", "Available", "Threshold", "Status"})
	for _, row := range report.Rows {
		t.AppendRow(table.Row{
			row.Name, row.Unit,
			inventory.FormatQty(row.CurrentQty), inventory.FormatQty(row.Committed),
			inventory.FormatQty(row.Available), inventory.FormatQty(row.ThresholdQty),
			row.Status,
		})
	}
	t.Render()

	if len(report.Unregistered) > 0 {
		fmt.Fprintf(out, "Unregistered materials on open tasks: %s\n", strings.Join(report.Unregistered, ", "))
	}
	return nil
}
