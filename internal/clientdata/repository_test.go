package clientdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/journal/internal/database"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, database.NameCache))
	t.Cleanup(func() { db.Close() })
	return db
}

type cachedRates struct {
	Base  string             `msgpack:"base"`
	Rates map[string]float64 `msgpack:"rates"`
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	in := cachedRates{Base: "USD", Rates: map[string]float64{"CNY": 7.2, "HKD": 7.8}}
	require.NoError(t, repo.Store(TableExchangeRate, "USD", in, time.Hour))

	var out cachedRates
	found, err := repo.GetIfFresh(TableExchangeRate, "USD", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetIfFresh_MissingKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	var out cachedRates
	found, err := repo.GetIfFresh(TableExchangeRate, "EUR", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiredEntryOnlyServedByGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	require.NoError(t, repo.Store(TableCurrentPrices, "US:AAPL", 187.5, -time.Minute))

	var price float64
	found, err := repo.GetIfFresh(TableCurrentPrices, "US:AAPL", &price)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get(TableCurrentPrices, "US:AAPL", &price)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 187.5, price)
}

func TestStore_Replaces(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	require.NoError(t, repo.Store(TableHistoricalCloses, "US:AAPL", []float64{1, 2}, time.Hour))
	require.NoError(t, repo.Store(TableHistoricalCloses, "US:AAPL", []float64{3}, time.Hour))

	var closes []float64
	found, err := repo.Get(TableHistoricalCloses, "US:AAPL", &closes)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []float64{3}, closes)
}

func TestInvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	assert.Error(t, repo.Store("users; DROP TABLE x", "k", 1, time.Hour))
	_, err := repo.Get("nope", "k", new(int))
	assert.Error(t, err)
	_, err = repo.DeleteExpired("nope", 0)
	assert.Error(t, err)
	assert.Error(t, repo.Delete("nope", "k"))
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	require.NoError(t, repo.Store(TableExchangeRate, "USD", 1.0, time.Hour))
	require.NoError(t, repo.Delete(TableExchangeRate, "USD"))

	found, err := repo.Get(TableExchangeRate, "USD", new(float64))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	for _, table := range AllTables {
		require.NoError(t, repo.Store(table, "old", 1, -time.Hour))
		require.NoError(t, repo.Store(table, "new", 2, time.Hour))
	}

	results, err := repo.DeleteAllExpired(0)
	require.NoError(t, err)
	for _, table := range AllTables {
		assert.Equal(t, int64(1), results[table], table)

		found, err := repo.Get(table, "new", new(int))
		require.NoError(t, err)
		assert.True(t, found, table)
	}
}

func TestDeleteExpired_KeepsRecentlyExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	require.NoError(t, repo.Store(TableExchangeRate, "stale", 1.0, -time.Hour))
	require.NoError(t, repo.Store(TableExchangeRate, "ancient", 1.0, -48*time.Hour))

	deleted, err := repo.DeleteExpired(TableExchangeRate, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	found, err := repo.Get(TableExchangeRate, "stale", new(float64))
	require.NoError(t, err)
	assert.True(t, found, "still available as a stale fallback")
}
