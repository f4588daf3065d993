package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/services"
	"github.com/kerbaras/mangas/pkg/sources"
)

var readFlags struct {
	resume bool
	all    bool
}

var readCmd = &cobra.Command{
	Use:   "read <story-slug> [chapter]",
	Short: "Load a chapter and check its page images",
	Long: `Load a chapter, fetch its first pages (or all of them with --all) the
way the reader does, falling back to the mirror host when a page fails,
and record the position in the reading history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target := services.ChapterTarget{StorySlug: args[0], Chapter: "1"}
		page := 0

		history, err := openHistory()
		if err != nil {
			logger.Warn("reading history disabled", "error", err)
		}
		if history != nil {
			defer history.Close()
		}

		switch {
		case len(args) == 2:
			target.Chapter = args[1]
		case readFlags.resume && history != nil:
			p, err := history.GetProgress(ctx, target.StorySlug)
			if err != nil {
				return err
			}
			if p != nil {
				target.Chapter = p.Chapter
				page = p.Page
				fmt.Printf("Resuming chapter %s at page %d\n", p.Chapter, p.Page+1)
			}
		}

		session := services.NewReadingSession(newSource(), services.SessionOptions{
			Fallback: sources.FallbackHost(cfg.Images.FallbackBaseURL),
		}, logger)
		defer session.Close()

		if err := session.Load(ctx, session.Open(target)); err != nil {
			return err
		}
		snap := session.Snapshot()
		printChapter(snap.Content)

		probeImages(ctx, session)
		printImages(session)

		if history != nil {
			err := history.SaveProgress(ctx, data.ReadingProgress{
				StorySlug: target.StorySlug,
				StoryName: snap.Content.Story.Name,
				Chapter:   target.Chapter,
				Page:      min(page, max(snap.Content.PageCount()-1, 0)),
			})
			if err != nil {
				logger.Warn("saving progress failed", "error", err)
			}
		}
		return nil
	},
}

func init() {
	readCmd.Flags().BoolVarP(&readFlags.resume, "resume", "r", false, "continue from the saved position")
	readCmd.Flags().BoolVarP(&readFlags.all, "all", "a", false, "load every page, not only the first ones")
	rootCmd.AddCommand(readCmd)
}

// probeImages loads the eager pages (or all of them) and follows fallbacks
// until every attempt has settled.
func probeImages(ctx context.Context, session *services.ReadingSession) {
	loader := services.NewImageLoader(services.LoaderOptions{
		RatePerSecond: cfg.Images.RatePerSecond,
		Concurrency:   cfg.Images.Concurrency,
	}, logger)

	attempts := session.EagerAttempts()
	if readFlags.all {
		for _, id := range session.Images().IDs() {
			if a, ok := session.ImageAttempt(id); ok && !session.Images().IsEager(id) {
				attempts = append(attempts, a)
			}
		}
	}

	for len(attempts) > 0 {
		results := loader.LoadAll(ctx, attempts)
		attempts = nil
		for _, res := range results {
			if next, ok := session.ReportImage(res); ok && next != nil {
				attempts = append(attempts, *next)
			}
		}
	}
}

func printChapter(c *data.ChapterContent) {
	title := fmt.Sprintf("Chapter %s", c.Chapter.Name)
	if c.Chapter.Title != "" {
		title += ": " + c.Chapter.Title
	}
	fmt.Printf("\n%s\n%s • %d pages\n", c.Story.Name, title, c.PageCount())
	if c.Navigation.Prev != nil {
		fmt.Printf("  prev: %s\n", c.Navigation.Prev.Name)
	}
	if c.Navigation.Next != nil {
		fmt.Printf("  next: %s\n", c.Navigation.Next.Name)
	}
	fmt.Println()
}

func printImages(session *services.ReadingSession) {
	images := session.Images()
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("Page", "Status", "Source")

	for i, id := range images.IDs() {
		state, _ := images.State(id)
		status := state.Status.String()
		if state.UsingFallback {
			status += " (fallback)"
		}
		t.Row(fmt.Sprintf("%d", i+1), status, images.Source(id))
	}
	fmt.Println(t)

	counts := images.Counts()
	fmt.Printf("%d loaded, %d failed, %d not loaded\n", counts.Loaded, counts.Failed, counts.Pending)
}
