package trading

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, database.NameJournal))
	t.Cleanup(func() { db.Close() })
	return db
}

func newRepo(t *testing.T) (*TradeRepository, *sql.DB) {
	db := setupTestDB(t)
	return NewTradeRepository(db, zerolog.New(nil).Level(zerolog.Disabled)), db
}

func f(v float64) *float64 { return &v }

func trade(symbol string, side domain.Side, date string, price, qty float64) *domain.TradeEntry {
	return &domain.TradeEntry{
		Symbol:    symbol,
		Market:    domain.MarketUS,
		Side:      side,
		TradeDate: date,
		Price:     price,
		Quantity:  qty,
		Amount:    price * qty,
	}
}

func TestInsertTrade_RoundTripsAllFields(t *testing.T) {
	repo, _ := newRepo(t)

	days := 12
	plan := domain.PlanPartial
	related := "buy-1"
	entry := &domain.TradeEntry{
		Symbol:         "AAPL",
		Name:           "Apple",
		Market:         domain.MarketUS,
		Side:           domain.SideSell,
		TradeDate:      "2024-03-12",
		TradeTime:      "14:30",
		Price:          180,
		Quantity:       10,
		Amount:         1800,
		Commission:     1,
		Tax:            0.5,
		StopLoss:       f(150),
		TakeProfit:     f(200),
		Strategy:       "breakout",
		Emotion:        "calm",
		Notes:          "took profit early",
		RealizedPnL:    f(298.5),
		PnLRatio:       f(0.2),
		HoldingDays:    &days,
		PlanExecuted:   &plan,
		PositionBefore: 10,
		PositionAfter:  0,
		RelatedTradeID: &related,
	}

	require.NoError(t, repo.InsertTrade(entry))
	require.NotEmpty(t, entry.ID, "id assigned")
	require.False(t, entry.CreatedAt.IsZero())

	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Apple", got.Name)
	assert.Equal(t, domain.SideSell, got.Side)
	assert.Equal(t, "14:30", got.TradeTime)
	assert.Equal(t, 150.0, *got.StopLoss)
	assert.Equal(t, 200.0, *got.TakeProfit)
	assert.Equal(t, 298.5, *got.RealizedPnL)
	assert.Equal(t, 0.2, *got.PnLRatio)
	assert.Equal(t, 12, *got.HoldingDays)
	assert.Equal(t, domain.PlanPartial, *got.PlanExecuted)
	assert.Equal(t, "buy-1", *got.RelatedTradeID)
	assert.Equal(t, 10.0, got.PositionBefore)
	assert.Equal(t, "breakout", got.Strategy)
	assert.Equal(t, entry.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestInsertTrade_NullableFieldsStayNil(t *testing.T) {
	repo, _ := newRepo(t)

	entry := trade("MSFT", domain.SideBuy, "2024-01-02", 300, 5)
	require.NoError(t, repo.InsertTrade(entry))

	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RealizedPnL)
	assert.Nil(t, got.PnLRatio)
	assert.Nil(t, got.HoldingDays)
	assert.Nil(t, got.PlanExecuted)
	assert.Nil(t, got.StopLoss)
	assert.Nil(t, got.RelatedTradeID)
}

func TestInsertTrade_ValidatesBeforeInsert(t *testing.T) {
	repo, _ := newRepo(t)

	testCases := []struct {
		name  string
		price float64
		qty   float64
	}{
		{"zero price", 0, 10},
		{"negative price", -1, 10},
		{"zero quantity", 10, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.InsertTrade(trade("AAPL", domain.SideBuy, "2024-01-02", tc.price, tc.qty))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTrade))
		})
	}

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _ := newRepo(t)

	got, err := repo.GetByID("missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListTrades_FiltersAndOrder(t *testing.T) {
	repo, _ := newRepo(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []*domain.TradeEntry{
		trade("AAPL", domain.SideBuy, "2024-01-05", 100, 10),
		trade("AAPL", domain.SideSell, "2024-01-10", 110, 5),
		trade("MSFT", domain.SideBuy, "2024-01-03", 300, 2),
		trade("AAPL", domain.SideBuy, "2024-01-05", 101, 1),
	}
	rows[1].RealizedPnL = f(50)
	rows[0].TradeTime = "10:00"
	rows[3].TradeTime = "09:30"
	for i, row := range rows {
		row.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.InsertTrade(row))
	}

	all, err := repo.ListTrades(domain.TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "MSFT", all[0].Symbol)
	assert.Equal(t, 101.0, all[1].Price, "earlier time of day first")
	assert.Equal(t, 100.0, all[2].Price)
	assert.Equal(t, domain.SideSell, all[3].Side)

	aapl, err := repo.ListInstrumentHistory("aapl", domain.MarketUS)
	require.NoError(t, err)
	assert.Len(t, aapl, 3)

	realized, err := repo.ListTrades(domain.TradeFilter{Realized: true})
	require.NoError(t, err)
	require.Len(t, realized, 1)
	assert.Equal(t, 50.0, *realized[0].RealizedPnL)

	ranged, err := repo.ListTrades(domain.TradeFilter{From: "2024-01-04", To: "2024-01-06"})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	newest, err := repo.ListTrades(domain.TradeFilter{Newest: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "2024-01-10", newest[0].TradeDate)

	buys, err := repo.ListTrades(domain.TradeFilter{Side: domain.SideBuy, Market: domain.MarketUS})
	require.NoError(t, err)
	assert.Len(t, buys, 3)

	first, err := repo.FirstTradeDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", first)
}

func TestUpdateAnnotations(t *testing.T) {
	repo, _ := newRepo(t)

	entry := trade("AAPL", domain.SideBuy, "2024-01-05", 100, 10)
	require.NoError(t, repo.InsertTrade(entry))

	require.NoError(t, repo.UpdateAnnotations(entry.ID, " swing ", "fomo", "chased"))
	got, err := repo.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "swing", got.Strategy)
	assert.Equal(t, "fomo", got.Emotion)
	assert.Equal(t, "chased", got.Notes)

	err = repo.UpdateAnnotations("missing", "", "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, _ := newRepo(t)

	entry := trade("AAPL", domain.SideBuy, "2024-01-05", 100, 10)
	require.NoError(t, repo.InsertTrade(entry))

	require.NoError(t, repo.Delete(entry.ID))
	assert.ErrorIs(t, repo.Delete(entry.ID), domain.ErrNotFound)

	first, err := repo.FirstTradeDate()
	require.NoError(t, err)
	assert.Equal(t, "", first)
}

func TestWithTx_RollbackDiscardsInsert(t *testing.T) {
	repo, db := newRepo(t)

	err := database.WithTransaction(db, func(tx *sql.Tx) error {
		if err := repo.WithTx(tx).InsertTrade(trade("AAPL", domain.SideBuy, "2024-01-05", 100, 10)); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
