package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List story categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := newSource().ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			fmt.Println("No categories.")
			return nil
		}

		headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
		cellStyle := lipgloss.NewStyle().Padding(0, 1)

		t := table.New().
			Border(lipgloss.HiddenBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("Slug", "Name", "Stories")

		for _, c := range categories {
			count := "-"
			if c.StoryCount != nil {
				count = fmt.Sprintf("%d", *c.StoryCount)
			}
			t.Row(c.Slug, c.Name, count)
		}

		fmt.Println(t)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
