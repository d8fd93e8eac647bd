package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stratengine",
	Short: "A per-symbol strategy execution engine",
	Long: `Stratengine runs order-book snapshots through a signal rule, a risk gate
and a position ledger, and reports what it would have traded.

It provides tools for:
  - Replaying recorded order books through mean-reversion, momentum or RSI rules
  - Gating every signal against position, loss and kill-switch limits
  - Journaling closed trades and equity marks to CSV or SQLite
  - Exporting results as tables, workbooks and Org-mode notes
  - Exposing Prometheus metrics while a run is in progress`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
