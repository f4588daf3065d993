package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	limit  int
	forget string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show where you stopped reading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openHistory()
		if err != nil {
			return err
		}
		if repo == nil {
			fmt.Println("Reading history is disabled.")
			return nil
		}
		defer repo.Close()

		if historyFlags.forget != "" {
			if err := repo.DeleteProgress(cmd.Context(), historyFlags.forget); err != nil {
				return err
			}
			fmt.Printf("Forgot %s\n", historyFlags.forget)
			return nil
		}

		entries, err := repo.ListHistory(cmd.Context(), historyFlags.limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Nothing read yet.")
			return nil
		}

		rows := make([]table.Row, 0, len(entries))
		for _, p := range entries {
			rows = append(rows, table.Row{
				truncateString(p.StoryName, 38),
				p.StorySlug,
				p.Chapter,
				fmt.Sprintf("%d", p.Page+1),
				p.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}

		t := table.New(
			table.WithColumns([]table.Column{
				{Title: "Story", Width: 40},
				{Title: "Slug", Width: 30},
				{Title: "Chapter", Width: 8},
				{Title: "Page", Width: 6},
				{Title: "Read at", Width: 18},
			}),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)
		fmt.Println(t.View())
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().StringVar(&historyFlags.forget, "forget", "", "delete the entry of this story slug")
	rootCmd.AddCommand(historyCmd)
}
