package snapshots

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
)

const snapshotColumns = `snapshot_date, cash, market_value, total_assets, daily_pnl,
	daily_return, cumulative_return, unpriced, source, notes`

// Repository stores account snapshots keyed by date in journal.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func upsert(q execer, s domain.AccountSnapshot) error {
	var unpriced sql.NullString
	if len(s.Unpriced) > 0 {
		encoded, err := json.Marshal(s.Unpriced)
		if err != nil {
			return fmt.Errorf("failed to encode unpriced list: %w", err)
		}
		unpriced = sql.NullString{String: string(encoded), Valid: true}
	}
	source := s.Source
	if source == "" {
		source = domain.SnapshotManual
	}
	var notes sql.NullString
	if s.Notes != "" {
		notes = sql.NullString{String: s.Notes, Valid: true}
	}

	_, err := q.Exec(`
		INSERT INTO account_snapshots (`+snapshotColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_date) DO UPDATE SET
			cash = excluded.cash,
			market_value = excluded.market_value,
			total_assets = excluded.total_assets,
			daily_pnl = excluded.daily_pnl,
			daily_return = excluded.daily_return,
			cumulative_return = excluded.cumulative_return,
			unpriced = excluded.unpriced,
			source = excluded.source,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, s.Date, s.Cash, s.MarketValue, s.TotalAssets, s.DailyPnL,
		s.DailyReturn, s.CumulativeReturn, unpriced, string(source), notes, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", s.Date, err)
	}
	return nil
}

// UpsertSnapshot inserts or replaces the snapshot for its date
func (r *Repository) UpsertSnapshot(s domain.AccountSnapshot) error {
	return upsert(r.db, s)
}

// UpsertAll writes a whole series in one transaction
func (r *Repository) UpsertAll(series []domain.AccountSnapshot) error {
	if len(series) == 0 {
		return nil
	}
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, s := range series {
			if err := upsert(tx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store %d snapshots: %w", len(series), err)
	}

	r.log.Debug().Int("count", len(series)).Msg("Snapshots upserted")
	return nil
}

// ReplaceReplayed deletes replay-produced snapshots outside the new series'
// range and upserts the series, all in one transaction. Manual snapshots
// outside the range are kept.
func (r *Repository) ReplaceReplayed(series []domain.AccountSnapshot) error {
	if len(series) == 0 {
		return nil
	}
	first, last := series[0].Date, series[len(series)-1].Date

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM account_snapshots
			WHERE source = 'replay' AND (snapshot_date < ? OR snapshot_date > ?)
		`, first, last); err != nil {
			return fmt.Errorf("failed to prune replayed snapshots: %w", err)
		}
		for _, s := range series {
			if err := upsert(tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSnapshots returns snapshots in date order; empty bounds are open
func (r *Repository) ListSnapshots(from, to string) ([]domain.AccountSnapshot, error) {
	query := "SELECT " + snapshotColumns + " FROM account_snapshots WHERE 1=1"
	var args []interface{}
	if from != "" {
		query += " AND snapshot_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND snapshot_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY snapshot_date ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	series := make([]domain.AccountSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return series, nil
}

// Latest returns the most recent snapshot, or nil when none exist
func (r *Repository) Latest() (*domain.AccountSnapshot, error) {
	return r.latestWhere("", nil)
}

// LatestBefore returns the most recent snapshot strictly before date
func (r *Repository) LatestBefore(date string) (*domain.AccountSnapshot, error) {
	return r.latestWhere("WHERE snapshot_date < ?", []interface{}{date})
}

func (r *Repository) latestWhere(where string, args []interface{}) (*domain.AccountSnapshot, error) {
	row := r.db.QueryRow("SELECT "+snapshotColumns+" FROM account_snapshots "+where+" ORDER BY snapshot_date DESC LIMIT 1", args...)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return &s, nil
}

// Delete removes the snapshot for date
func (r *Repository) Delete(date string) error {
	result, err := r.db.Exec("DELETE FROM account_snapshots WHERE snapshot_date = ?", date)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", date, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %s: %w", date, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (domain.AccountSnapshot, error) {
	var (
		s        domain.AccountSnapshot
		unpriced sql.NullString
		source   string
		notes    sql.NullString
	)
	err := row.Scan(&s.Date, &s.Cash, &s.MarketValue, &s.TotalAssets, &s.DailyPnL,
		&s.DailyReturn, &s.CumulativeReturn, &unpriced, &source, &notes)
	if err != nil {
		return s, err
	}

	s.Source = domain.SnapshotSource(source)
	s.Notes = notes.String
	if unpriced.Valid && unpriced.String != "" {
		if err := json.Unmarshal([]byte(unpriced.String), &s.Unpriced); err != nil {
			return s, fmt.Errorf("failed to decode unpriced list: %w", err)
		}
	}
	return s, nil
}
