package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/journal/internal/modules/analytics"
	"github.com/aristath/journal/internal/modules/snapshots"
)

func newReplayCmd(app *App) *cobra.Command {
	var opts snapshots.RebuildOptions

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild daily account snapshots from the trade log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.open()
			if err != nil {
				return err
			}
			result, err := container.SnapshotService.Rebuild(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(result)
			}
			rows := [][]string{{"DATE", "CASH", "MARKET VALUE", "TOTAL", "DAILY PNL", "CUMULATIVE", "UNPRICED"}}
			for _, s := range result.Snapshots {
				rows = append(rows, []string{
					s.Date, money(s.Cash), money(s.MarketValue), money(s.TotalAssets),
					money(s.DailyPnL), pct(s.CumulativeReturn), strings.Join(s.Unpriced, ","),
				})
			}
			if err := app.table(rows); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "\n%d snapshots from %s to %s, persisted: %t\n", result.Count, result.From, result.To, result.Persisted)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "first day (default first trade date)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day (default today)")
	cmd.Flags().BoolVar(&opts.Persist, "persist", false, "store the replayed series")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	var r analytics.Range

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize realized performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.open()
			if err != nil {
				return err
			}
			overview, err := container.AnalyticsService.Overview(r)
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(overview)
			}
			t := overview.Trades
			return app.table([][]string{
				{"METRIC", "VALUE"},
				{"closed trades", fmt.Sprintf("%d", t.TotalTrades)},
				{"wins / losses", fmt.Sprintf("%d / %d", t.Wins, t.Losses)},
				{"win rate", pct(t.WinRate)},
				{"avg win", money(t.AvgWin)},
				{"avg loss", money(t.AvgLoss)},
				{"profit/loss ratio", fmt.Sprintf("%.2f", t.ProfitLossRatio)},
				{"expectancy", money(t.Expectancy)},
				{"total pnl", money(t.TotalPnL)},
				{"avg holding days", fmt.Sprintf("%.1f", t.AvgHoldingDays)},
				{"plan executed/partial/missed", fmt.Sprintf("%d / %d / %d", t.PlanExecuted, t.PlanPartial, t.PlanMissed)},
				{"max win streak", fmt.Sprintf("%d", overview.Streaks.MaxWinStreak)},
				{"max loss streak", fmt.Sprintf("%d", overview.Streaks.MaxLossStreak)},
				{"max drawdown", pct(overview.MaxDrawdown)},
				{"sharpe", fmt.Sprintf("%.2f", overview.Performance.SharpeRatio)},
			})
		},
	}

	cmd.Flags().StringVar(&r.From, "from", "", "first trade date YYYY-MM-DD")
	cmd.Flags().StringVar(&r.To, "to", "", "last trade date YYYY-MM-DD")
	return cmd
}

func newRiskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "risk",
		Short: "Assess open-position risk in the reporting currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.open()
			if err != nil {
				return err
			}
			report, err := container.RiskService.Assess(cmd.Context())
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(report)
			}
			rows := [][]string{{"SYMBOL", "MARKET", "QTY", "PRICE", "VALUE", "WEIGHT", "STALE"}}
			for _, p := range report.TopPositions {
				rows = append(rows, []string{
					p.Symbol, string(p.Market), fmt.Sprintf("%g", p.Quantity),
					money(p.Price), money(p.Value), pct(p.Weight), fmt.Sprintf("%t", p.PriceStale),
				})
			}
			if err := app.table(rows); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "\nlevel %s  exposure %s of %s %s  cash %s (%s)\n",
				strings.ToUpper(string(report.Level)), pct(report.ExposureRatio),
				money(report.TotalAssets), report.Currency, money(report.Cash), report.CashSource)
			fmt.Fprintf(app.out, "potential loss %s  potential gain %s  coverable %t\n",
				money(report.PotentialLoss), money(report.PotentialGain), report.Coverable)
			for _, reason := range report.Reasons {
				fmt.Fprintf(app.out, "  - %s\n", reason)
			}
			return nil
		},
	}
}

func newBackupCmd(app *App) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a backup of journal.db to the configured bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.open()
			if err != nil {
				return err
			}
			if container.BackupService == nil {
				return fmt.Errorf("backups are not configured; set BACKUP_ENABLED, BACKUP_BUCKET and credentials")
			}

			ctx := cmd.Context()
			if list {
				backups, err := container.BackupService.ListBackups(ctx)
				if err != nil {
					return err
				}
				if app.asJSON {
					return app.printJSON(backups)
				}
				rows := [][]string{{"KEY", "CREATED", "SIZE"}}
				for _, b := range backups {
					rows = append(rows, []string{b.Key, b.Timestamp.Format("2006-01-02 15:04:05"), fmt.Sprintf("%d", b.SizeBytes)})
				}
				return app.table(rows)
			}

			result, err := container.BackupService.Backup(ctx)
			if err != nil {
				return err
			}
			return app.printJSON(result)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead of creating one")
	return cmd
}
