package main

import (
	"fmt"
	"time"

	"libraryapi/internal/identity"

	"github.com/spf13/cobra"
)

func newSweepCmd(svc func() *services) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark borrowed loans past their due date as overdue",
		Long: `Run the overdue sweep once. Safe to repeat: loans already marked
overdue or returned are left untouched.

Examples:
  libctl sweep
  libctl sweep --as-of 2026-01-31T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var at time.Time
			if asOf != "" {
				var err error
				if at, err = time.Parse(time.RFC3339, asOf); err != nil {
					return fmt.Errorf("--as-of must be RFC3339: %w", err)
				}
			}
			marked, err := svc().loans.SweepOverdue(cmd.Context(), identity.System, at)
			if err != nil {
				return err
			}
			ok(cmd.OutOrStdout(), "%d loan(s) marked overdue", marked)
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Sweep as of this RFC3339 time (default now)")
	return cmd
}
