package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kerbaras/mangas/pkg/app"
	"github.com/kerbaras/mangas/pkg/app/screens"
	"github.com/kerbaras/mangas/pkg/config"
	"github.com/kerbaras/mangas/pkg/data"
	"github.com/kerbaras/mangas/pkg/sources"
	"github.com/kerbaras/mangas/pkg/utils"
)

// categoryCacheTTL bounds how long the category catalogue is reused.
const categoryCacheTTL = 10 * time.Minute

var (
	cfgFile string
	logFile string
	verbose bool
	noSave  bool
	cfg     *config.Config
	logger  *slog.Logger
	logOut  io.WriteCloser
)

var rootCmd = &cobra.Command{
	Use:   "mangas",
	Short: "Browse and read manga from the terminal",
	Long: `mangas browses the reading site's catalogue and reads chapters page by
page, with a TUI by default and scriptable subcommands.

Example usage:
  mangas                          # Start the TUI
  mangas list --category action   # First page of a category
  mangas search one piece         # Search by keyword
  mangas read one-piece --resume  # Continue where you stopped`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			logOut.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if logFile == "" {
			// the TUI owns the terminal
			logger = utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format, io.Discard)
		}

		history, err := openHistory()
		if err != nil {
			logger.Warn("reading history disabled", "error", err)
		}
		deps := screens.Deps{Source: newSource(), Config: cfg, Logger: logger}
		if history != nil {
			defer history.Close()
			deps.History = history
		}

		return app.NewApp(deps).Run()
	},
}

// Execute runs the root command and prints the error, if any.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", sources.Message(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mangas.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noSave, "no-history", false, "do not read or write reading history")
}

// initConfig loads the configuration and sets up logging.
func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logOut = f
		w = f
	}
	logger = utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format, w)

	logger.Debug("configuration loaded",
		"base_url", cfg.API.BaseURL,
		"page_size", cfg.List.PageSize,
		"history", cfg.History.DBPath,
	)
	return nil
}

func newSource() *sources.CachedSource {
	site := sources.NewSite(cfg.API.BaseURL, nil, cfg.API.Timeout)
	return sources.NewCachedSource(site, categoryCacheTTL)
}

// openHistory returns nil without error when history is turned off.
func openHistory() (*data.Repository, error) {
	if noSave || cfg.History.DBPath == "" {
		return nil, nil
	}
	return data.NewDuckDBRepository(cfg.History.DBPath)
}

func truncateString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
