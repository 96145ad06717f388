// Package cmd holds the journalctl cobra commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/di"
	"github.com/aristath/journal/pkg/logger"
)

// App carries global flags and the lazily wired container
type App struct {
	out      io.Writer
	dataDir  string
	logLevel string
	asJSON   bool

	cfg       *config.Config
	container *di.Container
	jobs      *di.JobInstances
	log       zerolog.Logger
}

// NewRootCmd builds the command tree writing results to out
func NewRootCmd(out io.Writer) *cobra.Command {
	app := &App{out: out}

	root := &cobra.Command{
		Use:   "journalctl",
		Short: "Trading journal ledger and analytics",
		Long: `journalctl works directly on the journal database used by the server.

Examples:
  journalctl record --symbol AAPL --market US --side BUY --date 2024-03-01 --price 180 --qty 10
  journalctl positions
  journalctl replay --from 2024-01-01 --persist
  journalctl stats --from 2024-01-01
  journalctl risk --json`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&app.dataDir, "data-dir", "", "directory holding journal.db (default $JOURNAL_DATA_DIR or ./data)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&app.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newRecordCmd(app),
		newTradesCmd(app),
		newPositionsCmd(app),
		newReplayCmd(app),
		newStatsCmd(app),
		newRiskCmd(app),
		newBackupCmd(app),
	)

	return root
}

// open loads configuration and wires the container on first use
func (a *App) open() (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	a.log = logger.New(logger.Config{Level: a.logLevel, Pretty: true, Output: os.Stderr})

	if a.dataDir != "" {
		abs, err := filepath.Abs(a.dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data directory: %w", err)
		}
		// config.Load creates the directory it is given
		os.Setenv("JOURNAL_DATA_DIR", abs)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container, jobs, err := di.Wire(cfg, a.log)
	if err != nil {
		return nil, err
	}

	a.cfg = cfg
	a.container = container
	a.jobs = jobs
	return container, nil
}

func (a *App) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

// printJSON writes v indented
func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes aligned columns; the first row is the header
func (a *App) table(rows [][]string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func optMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	return money(*v)
}
