package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kerbaras/mangas/pkg/data"
)

var searchPages int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for stories",
	Long:  "Search the catalogue by keyword and display results in a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("empty search query")
		}

		state, err := collect(cmd.Context(), "search", data.SearchFilter(query), searchPages)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(state.Items) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		var (
			purple = lipgloss.Color("99")

			headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
			cellStyle   = lipgloss.NewStyle().Padding(0, 1)
		)

		t := table.New().
			Border(lipgloss.HiddenBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(purple)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				default:
					return cellStyle
				}
			}).
			Headers("#", "Name", "Slug", "Status")

		for i, s := range state.Items {
			t.Row(fmt.Sprintf("%d", i+1), truncateString(s.Name, 58), s.Slug, s.Status)
		}

		fmt.Println(t)
		fmt.Printf("%d of %d results\n", len(state.Items), state.Pagination.TotalItems)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchPages, "pages", "n", 1, "number of result pages to fetch")
	rootCmd.AddCommand(searchCmd)
}
