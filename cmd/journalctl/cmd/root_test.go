package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/domain"
)

func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DATA_DIR", dir)
	t.Setenv("FX_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("QUOTES_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("BACKUP_ENABLED", "false")
	return dir
}

func TestRecordAndPositions(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "record", "--symbol", "600519", "--market", "CN", "--side", "BUY",
		"--date", "2024-01-02", "--price", "10", "--qty", "100", "--stop-loss", "9")
	require.NoError(t, err)

	out, err := run(t, dir, "--json", "record", "--symbol", "600519", "--market", "CN", "--side", "SELL",
		"--date", "2024-01-12", "--price", "15", "--qty", "100")
	require.NoError(t, err)

	var sale domain.TradeEntry
	require.NoError(t, json.Unmarshal([]byte(out), &sale))
	require.NotNil(t, sale.RealizedPnL)
	assert.InDelta(t, 500.0, *sale.RealizedPnL, 1e-9)
	assert.Equal(t, 0.0, sale.PositionAfter)

	out, err = run(t, dir, "--json", "positions", "--all")
	require.NoError(t, err)
	var positions []domain.Position
	require.NoError(t, json.Unmarshal([]byte(out), &positions))
	require.Len(t, positions, 1)
	assert.False(t, positions[0].IsOpen())

	out, err = run(t, dir, "trades")
	require.NoError(t, err)
	assert.Contains(t, out, "600519")
	assert.Contains(t, out, "SELL")
}

func TestRecordRejectsInvalidTrade(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "record", "--symbol", "AAPL", "--market", "US", "--side", "BUY", "--price", "0", "--qty", "1")
	assert.Error(t, err)

	_, err = run(t, dir, "record", "--symbol", "AAPL")
	assert.Error(t, err, "missing required flags")
}

func TestStatsAndReplay(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "record", "--symbol", "AAPL", "--market", "US", "--side", "BUY",
		"--date", "2024-01-02", "--price", "100", "--qty", "10")
	require.NoError(t, err)
	_, err = run(t, dir, "record", "--symbol", "AAPL", "--market", "US", "--side", "SELL",
		"--date", "2024-01-05", "--price", "90", "--qty", "10")
	require.NoError(t, err)

	out, err := run(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "win rate")

	out, err = run(t, dir, "--json", "replay", "--to", "2024-01-06")
	require.NoError(t, err)
	var result struct {
		Count     int  `json:"count"`
		Persisted bool `json:"persisted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 5, result.Count)
	assert.False(t, result.Persisted)
}

func TestRiskAndBackupWithoutConfig(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "risk")
	require.NoError(t, err)
	assert.Contains(t, out, "level LOW")

	_, err = run(t, dir, "backup")
	assert.Error(t, err)
}
