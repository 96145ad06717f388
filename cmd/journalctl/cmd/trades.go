package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aristath/journal/internal/domain"
)

func newRecordCmd(app *App) *cobra.Command {
	var (
		entry                domain.TradeEntry
		market, side         string
		stopLoss, takeProfit float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a trade and print the derived fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry.Market = domain.Market(market)
			entry.Side = domain.Side(side)
			if cmd.Flags().Changed("stop-loss") {
				entry.StopLoss = &stopLoss
			}
			if cmd.Flags().Changed("take-profit") {
				entry.TakeProfit = &takeProfit
			}

			container, err := app.open()
			if err != nil {
				return err
			}
			saved, err := container.LedgerService.RecordTrade(entry)
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(saved)
			}
			plan := "-"
			if saved.PlanExecuted != nil {
				plan = string(*saved.PlanExecuted)
			}
			holding := "-"
			if saved.HoldingDays != nil {
				holding = strconv.Itoa(*saved.HoldingDays)
			}
			return app.table([][]string{
				{"ID", "SYMBOL", "SIDE", "QTY", "PRICE", "POSITION", "REALIZED", "RATIO", "DAYS", "PLAN"},
				{
					saved.ID, saved.Symbol, string(saved.Side),
					fmt.Sprintf("%g", saved.Quantity), money(saved.Price),
					fmt.Sprintf("%g -> %g", saved.PositionBefore, saved.PositionAfter),
					optMoney(saved.RealizedPnL), optRatio(saved.PnLRatio), holding, plan,
				},
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&entry.Symbol, "symbol", "", "instrument symbol (required)")
	f.StringVar(&entry.Name, "name", "", "instrument display name")
	f.StringVar(&market, "market", string(domain.MarketCN), "market: CN, HK or US")
	f.StringVar(&side, "side", "", "BUY or SELL (required)")
	f.StringVar(&entry.TradeDate, "date", domain.Today(), "trade date YYYY-MM-DD")
	f.StringVar(&entry.TradeTime, "time", "", "trade time HH:MM")
	f.Float64Var(&entry.Price, "price", 0, "execution price (required)")
	f.Float64Var(&entry.Quantity, "qty", 0, "quantity (required)")
	f.Float64Var(&entry.Amount, "amount", 0, "gross amount (default price*qty)")
	f.Float64Var(&entry.Commission, "commission", 0, "commission paid")
	f.Float64Var(&entry.Tax, "tax", 0, "tax paid")
	f.Float64Var(&stopLoss, "stop-loss", 0, "planned stop-loss price")
	f.Float64Var(&takeProfit, "take-profit", 0, "planned take-profit price")
	f.StringVar(&entry.Strategy, "strategy", "", "strategy tag")
	f.StringVar(&entry.Emotion, "emotion", "", "emotion tag")
	f.StringVar(&entry.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("side")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("qty")

	return cmd
}

func newTradesCmd(app *App) *cobra.Command {
	var (
		filter       domain.TradeFilter
		market, side string
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recorded trades, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Market = domain.Market(market)
			filter.Side = domain.Side(side)
			filter.Newest = true

			container, err := app.open()
			if err != nil {
				return err
			}
			trades, err := container.LedgerService.ListTrades(filter)
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(trades)
			}
			rows := [][]string{{"DATE", "SYMBOL", "MARKET", "SIDE", "QTY", "PRICE", "REALIZED", "STRATEGY", "ID"}}
			for _, t := range trades {
				rows = append(rows, []string{
					t.TradeDate, t.Symbol, string(t.Market), string(t.Side),
					fmt.Sprintf("%g", t.Quantity), money(t.Price), optMoney(t.RealizedPnL),
					t.Strategy, t.ID,
				})
			}
			return app.table(rows)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filter.Symbol, "symbol", "", "only this symbol")
	f.StringVar(&market, "market", "", "only this market")
	f.StringVar(&side, "side", "", "only BUY or SELL")
	f.StringVar(&filter.From, "from", "", "first trade date YYYY-MM-DD")
	f.StringVar(&filter.To, "to", "", "last trade date YYYY-MM-DD")
	f.IntVar(&filter.Limit, "limit", 50, "maximum rows, 0 for all")

	return cmd
}

func newPositionsCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Show positions derived from the trade log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := app.open()
			if err != nil {
				return err
			}
			positions, err := container.LedgerService.ListPositions(!all)
			if err != nil {
				return err
			}

			if app.asJSON {
				return app.printJSON(positions)
			}
			rows := [][]string{{"SYMBOL", "MARKET", "QTY", "AVG COST", "COST BASIS", "REALIZED", "STOP", "TARGET", "SINCE"}}
			for _, p := range positions {
				rows = append(rows, []string{
					p.Symbol, string(p.Market), fmt.Sprintf("%g", p.Quantity),
					money(p.AvgCost), money(p.CostBasis), money(p.RealizedPnL),
					optMoney(p.StopLoss), optMoney(p.TakeProfit), p.FirstBuyDate,
				})
			}
			return app.table(rows)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed positions")
	return cmd
}

func optRatio(v *float64) string {
	if v == nil {
		return "-"
	}
	return pct(*v)
}
