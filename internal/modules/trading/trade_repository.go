// Package trading provides the sqlite-backed trade journal.
package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// TradeRepository handles trade database operations on journal.db
type TradeRepository struct {
	q   Querier
	log zerolog.Logger
}

// tradesColumns is the column list for the trades table.
// Order must match scanTrade.
const tradesColumns = `id, symbol, name, market, side, trade_date, trade_time,
	price, quantity, amount, commission, tax, stop_loss, take_profit,
	strategy, emotion, notes, realized_pnl, pnl_ratio, holding_days, plan_executed,
	position_before, position_after, related_trade_id, created_at`

// chronological is the stable replay order; rowid breaks ties in insertion order
const chronological = `trade_date ASC, COALESCE(trade_time, '') ASC, created_at ASC, rowid ASC`
const newestFirst = `trade_date DESC, COALESCE(trade_time, '') DESC, created_at DESC, rowid DESC`

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db Querier, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		q:   db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// WithTx returns a repository bound to tx so reads and the insert share one transaction
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{q: tx, log: r.log}
}

// InsertTrade stores a fully derived trade entry.
// An ID and created_at are assigned when missing.
func (r *TradeRepository) InsertTrade(entry *domain.TradeEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var planExecuted sql.NullString
	if entry.PlanExecuted != nil {
		planExecuted = sql.NullString{String: string(*entry.PlanExecuted), Valid: true}
	}

	_, err := r.q.Exec(`
		INSERT INTO trades (`+tradesColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Symbol,
		nullString(entry.Name),
		string(entry.Market),
		string(entry.Side),
		entry.TradeDate,
		nullString(entry.TradeTime),
		entry.Price,
		entry.Quantity,
		entry.Amount,
		entry.Commission,
		entry.Tax,
		nullFloat64Ptr(entry.StopLoss),
		nullFloat64Ptr(entry.TakeProfit),
		nullString(entry.Strategy),
		nullString(entry.Emotion),
		nullString(entry.Notes),
		nullFloat64Ptr(entry.RealizedPnL),
		nullFloat64Ptr(entry.PnLRatio),
		nullIntPtr(entry.HoldingDays),
		planExecuted,
		entry.PositionBefore,
		entry.PositionAfter,
		nullStringPtr(entry.RelatedTradeID),
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	r.log.Debug().
		Str("id", entry.ID).
		Str("symbol", entry.Symbol).
		Str("side", string(entry.Side)).
		Float64("quantity", entry.Quantity).
		Msg("Trade inserted")

	return nil
}

// GetByID retrieves a trade by id; returns nil, nil when absent
func (r *TradeRepository) GetByID(id string) (*domain.TradeEntry, error) {
	row := r.q.QueryRow("SELECT "+tradesColumns+" FROM trades WHERE id = ?", id)
	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %s: %w", id, err)
	}
	return &trade, nil
}

// ListTrades returns trades matching filter, chronological unless filter.Newest is set
func (r *TradeRepository) ListTrades(filter domain.TradeFilter) ([]domain.TradeEntry, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Symbol)))
	}
	if filter.Market != "" {
		where = append(where, "market = ?")
		args = append(args, string(filter.Market))
	}
	if filter.Side != "" {
		where = append(where, "side = ?")
		args = append(args, string(filter.Side))
	}
	if filter.From != "" {
		where = append(where, "trade_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "trade_date <= ?")
		args = append(args, filter.To)
	}
	if filter.Realized {
		where = append(where, "side = 'SELL' AND realized_pnl IS NOT NULL")
	}

	query := "SELECT " + tradesColumns + " FROM trades"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.Newest {
		query += " ORDER BY " + newestFirst
	} else {
		query += " ORDER BY " + chronological
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.TradeEntry, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// ListInstrumentHistory returns every trade of one instrument in chronological order
func (r *TradeRepository) ListInstrumentHistory(symbol string, market domain.Market) ([]domain.TradeEntry, error) {
	return r.ListTrades(domain.TradeFilter{Symbol: symbol, Market: market})
}

// UpdateAnnotations edits the free-text fields of a trade.
// Derived accounting fields are never rewritten.
func (r *TradeRepository) UpdateAnnotations(id, strategy, emotion, notes string) error {
	result, err := r.q.Exec(`
		UPDATE trades SET strategy = ?, emotion = ?, notes = ? WHERE id = ?
	`, nullString(strings.TrimSpace(strategy)), nullString(strings.TrimSpace(emotion)), nullString(notes), id)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a trade. Sales recorded after it keep their stored PnL.
func (r *TradeRepository) Delete(id string) error {
	result, err := r.q.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}

	r.log.Info().Str("id", id).Msg("Trade deleted")
	return nil
}

// Count returns the number of stored trades
func (r *TradeRepository) Count() (int, error) {
	var count int
	if err := r.q.QueryRow("SELECT COUNT(*) FROM trades").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// FirstTradeDate returns the earliest trade date, or "" when the journal is empty
func (r *TradeRepository) FirstTradeDate() (string, error) {
	var date sql.NullString
	if err := r.q.QueryRow("SELECT MIN(trade_date) FROM trades").Scan(&date); err != nil {
		return "", fmt.Errorf("failed to get first trade date: %w", err)
	}
	return date.String, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (domain.TradeEntry, error) {
	var (
		trade          domain.TradeEntry
		market, side   string
		name           sql.NullString
		tradeTime      sql.NullString
		stopLoss       sql.NullFloat64
		takeProfit     sql.NullFloat64
		strategy       sql.NullString
		emotion        sql.NullString
		notes          sql.NullString
		realizedPnL    sql.NullFloat64
		pnlRatio       sql.NullFloat64
		holdingDays    sql.NullInt64
		planExecuted   sql.NullString
		relatedTradeID sql.NullString
		createdAt      int64
	)

	err := row.Scan(
		&trade.ID,
		&trade.Symbol,
		&name,
		&market,
		&side,
		&trade.TradeDate,
		&tradeTime,
		&trade.Price,
		&trade.Quantity,
		&trade.Amount,
		&trade.Commission,
		&trade.Tax,
		&stopLoss,
		&takeProfit,
		&strategy,
		&emotion,
		&notes,
		&realizedPnL,
		&pnlRatio,
		&holdingDays,
		&planExecuted,
		&trade.PositionBefore,
		&trade.PositionAfter,
		&relatedTradeID,
		&createdAt,
	)
	if err != nil {
		return trade, err
	}

	trade.Market = domain.Market(market)
	trade.Side = domain.Side(side)
	trade.Name = name.String
	trade.TradeTime = tradeTime.String
	trade.Strategy = strategy.String
	trade.Emotion = emotion.String
	trade.Notes = notes.String
	trade.StopLoss = float64Ptr(stopLoss)
	trade.TakeProfit = float64Ptr(takeProfit)
	trade.RealizedPnL = float64Ptr(realizedPnL)
	trade.PnLRatio = float64Ptr(pnlRatio)
	if holdingDays.Valid {
		days := int(holdingDays.Int64)
		trade.HoldingDays = &days
	}
	if planExecuted.Valid {
		plan := domain.PlanExecution(planExecuted.String)
		trade.PlanExecuted = &plan
	}
	if relatedTradeID.Valid {
		id := relatedTradeID.String
		trade.RelatedTradeID = &id
	}
	trade.CreatedAt = time.UnixMilli(createdAt)

	return trade, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullIntPtr(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func float64Ptr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
