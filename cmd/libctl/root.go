package main

import (
	"context"
	"fmt"
	"io"

	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/loan"
	"libraryapi/internal/platform/postgres"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// services are the domain entry points the commands drive.
type services struct {
	loans *loan.Service
	books *book.Service
	close func()
}

type connector func(ctx context.Context) (*services, error)

func connectPostgres(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	pool, err := postgres.Open(ctx, cfg.DBDSN, cfg.DBTimeout)
	if err != nil {
		return nil, err
	}
	return &services{
		loans: loan.NewService(loan.NewPostgresRepo(pool, cfg.DBTimeout), loan.WithLoanPeriod(cfg.LoanPeriod)),
		books: book.NewService(book.NewPostgresRepo(pool, cfg.DBTimeout)),
		close: pool.Close,
	}, nil
}

func newRootCmd(connect connector) *cobra.Command {
	var (
		svc     *services
		noColor bool
	)

	root := &cobra.Command{
		Use:   "libctl",
		Short: "Operate the library loan ledger",
		Long: `libctl runs maintenance jobs and inspects the catalog and loans
directly against the database configured by DB_DSN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			var err error
			svc, err = connect(cmd.Context())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if svc != nil && svc.close != nil {
				svc.close()
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	current := func() *services { return svc }
	root.AddCommand(
		newSweepCmd(current),
		newLoansCmd(current),
		newBooksCmd(current),
	)
	return root
}

// ok prints a green success line.
func ok(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func header(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.CyanString(fmt.Sprintf(format, a...)))
}
