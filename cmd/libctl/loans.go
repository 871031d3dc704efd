package main

import (
	"fmt"

	"libraryapi/internal/identity"
	"libraryapi/internal/loan"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func statusString(s loan.Status) string {
	switch s {
	case loan.StatusOverdue:
		return color.RedString(string(s))
	case loan.StatusBorrowed:
		return color.YellowString(string(s))
	default:
		return color.GreenString(string(s))
	}
}

func newLoansCmd(svc func() *services) *cobra.Command {
	var (
		userID string
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans, newest first",
		Example: `  libctl loans --status overdue
  libctl loans --user 3f0c... --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := loan.Query{Status: loan.Status(status), Limit: limit}
			var (
				loans []loan.Loan
				err   error
			)
			if userID != "" {
				loans, err = svc().loans.ListLoansForUser(cmd.Context(), identity.System, userID, q)
			} else {
				loans, err = svc().loans.ListLoans(cmd.Context(), identity.System, q)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header(out, "── loans  (%d)", len(loans))
			for _, l := range loans {
				title := l.BookID
				if l.Book != nil {
					title = l.Book.Title
				}
				fmt.Fprintf(out, "  %-36s  %-30s  %-36s  due %s  %s\n",
					l.ID, title, l.UserID, l.DueDate.Format("2006-01-02"), statusString(l.Status))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Only loans of this borrower")
	cmd.Flags().StringVar(&status, "status", "", "borrowed, overdue or returned")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of loans")
	return cmd
}
