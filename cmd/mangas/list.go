package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
)

var listFlags struct {
	category string
	status   string
	sortBy   string
	order    string
	popular  bool
	pages    int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories by category, popularity or latest update",
	Long:  "Fetch one or more pages of a story listing and display them in a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := data.LatestFilter()
		switch {
		case listFlags.category != "":
			filter = data.CategoryFilter(listFlags.category)
		case listFlags.popular:
			filter = data.PopularFilter()
		}
		filter.Status = listFlags.status
		if listFlags.sortBy != "" {
			filter.SortBy = listFlags.sortBy
			filter.SortOrder = listFlags.order
		}

		state, err := collect(cmd.Context(), "list", filter, listFlags.pages)
		if err != nil {
			return err
		}
		if len(state.Items) == 0 {
			fmt.Println("No stories found.")
			return nil
		}

		fmt.Printf("\nStories (page %d of %d, %d total)\n\n",
			state.Pagination.CurrentPage, state.Pagination.TotalPages, state.Pagination.TotalItems)
		fmt.Println(storyTable(state.Items).View())
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listFlags.category, "category", "c", "", "category slug")
	listCmd.Flags().StringVarP(&listFlags.status, "status", "s", "", "ongoing or completed")
	listCmd.Flags().StringVar(&listFlags.sortBy, "sort", "", "viewCount, updatedAt, rating or name")
	listCmd.Flags().StringVar(&listFlags.order, "order", data.SortDesc, "asc or desc")
	listCmd.Flags().BoolVarP(&listFlags.popular, "popular", "p", false, "most viewed first")
	listCmd.Flags().IntVarP(&listFlags.pages, "pages", "n", 1, "number of pages to fetch")
	rootCmd.AddCommand(listCmd)
}

// collect loads up to pages pages of filter through a list controller.
func collect(ctx context.Context, name string, filter data.Filter, pages int) (services.ListState, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	list := services.NewListController(name, newSource(), logger)
	if _, err := list.Load(ctx, filter.Query(cfg.List.PageSize), services.Reset); err != nil {
		return services.ListState{}, err
	}
	for i := 1; i < pages; i++ {
		state := list.State()
		outcome, err := list.Load(ctx, state.Query.WithPage(state.Pagination.CurrentPage+1), services.Append)
		if err != nil {
			return list.State(), err
		}
		if outcome == services.OutcomeNothingToLoad {
			break
		}
	}
	return list.State(), nil
}

func storyTable(items []data.StorySummary) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 40},
		{Title: "Slug", Width: 30},
		{Title: "Status", Width: 12},
		{Title: "Views", Width: 10},
		{Title: "Rating", Width: 8},
	}

	rows := make([]table.Row, 0, len(items))
	for _, s := range items {
		status := s.Status
		if status == "" {
			status = "unknown"
		}
		views := "-"
		if s.ViewCount != nil {
			views = fmt.Sprintf("%d", *s.ViewCount)
		}
		rows = append(rows, table.Row{
			truncateString(s.Name, 38),
			truncateString(s.Slug, 28),
			status,
			views,
			fmt.Sprintf("%.1f", s.Rating),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}
