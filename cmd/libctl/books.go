package main

import (
	"fmt"

	"libraryapi/internal/book"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newBooksCmd(svc func() *services) *cobra.Command {
	var (
		search   string
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog with current availability",
		Example: `  libctl books
  libctl books --search "clean code"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, total, err := svc().books.List(cmd.Context(), book.Query{Search: search, Category: category, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			header(out, "── books  (%d of %d)", len(books), total)
			for _, b := range books {
				avail := fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies)
				if b.AvailableCopies == 0 {
					avail = color.RedString(avail)
				} else {
					avail = color.GreenString(avail)
				}
				fmt.Fprintf(out, "  %-36s  %-30s  %-24s  %s\n", b.ID, b.Title, b.Author, avail)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Match title, author, ISBN or category")
	cmd.Flags().StringVar(&category, "category", "", "Exact category")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of books")
	return cmd
}
