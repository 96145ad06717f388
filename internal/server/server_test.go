package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/di"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/risk"
)

func newTestServer(t *testing.T) (*httptest.Server, *di.Container) {
	t.Helper()

	cfg := &config.Config{
		DataDir:                 t.TempDir(),
		Port:                    8001,
		DevMode:                 true,
		ReportingCurrency:       domain.CurrencyCNY,
		AccountCurrency:         domain.CurrencyCNY,
		FxBaseURL:               "http://127.0.0.1:1",
		QuotesBaseURL:           "http://127.0.0.1:1",
		RiskPolicy:              risk.DefaultPolicy(),
		SnapshotRebuildSchedule: "0 30 18 * * *",
		CacheCleanupSchedule:    "0 0 * * * *",
		Backup:                  config.BackupConfig{RetentionDays: 30, Schedule: "@daily"},
	}

	log := zerolog.New(nil).Level(zerolog.Disabled)
	container, jobs, err := di.Wire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	srv := New(Config{Log: log, Config: cfg, Container: container, Scheduler: jobs.Scheduler})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, container
}

func postTrade(t *testing.T, baseURL string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"symbol":     "AAPL",
		"market":     "US",
		"side":       "BUY",
		"trade_date": "2024-03-01",
		"price":      100,
		"quantity":   10,
		"amount":     1000,
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/trades", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/system/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "ok", body.Databases["journal"])
	assert.Equal(t, "ok", body.Databases["cache"])
}

func TestSystemStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/system/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status SystemStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Len(t, status.Databases, 2)
	assert.False(t, status.BackupsEnabled)
	for _, db := range status.Databases {
		assert.True(t, db.Healthy, db.Name)
		require.NotNil(t, db.Stats)
		assert.Greater(t, db.Stats.PageSize, int64(0))
	}
}

func TestJobs(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/system/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Jobs []struct {
			Name string `json:"name"`
		} `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Jobs, 3)

	resp, err = http.Post(ts.URL+"/api/system/jobs/unknown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/system/jobs/client_data_cleanup", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/system/backups")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestModuleRoutesMounted(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postTrade(t, ts.URL)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, path := range []string{
		"/api/trades",
		"/api/positions",
		"/api/snapshots",
		"/api/analytics/overview",
		"/api/settings",
		"/api/currency/available-currencies",
		"/api/risk/policy",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestEventsWebsocket(t *testing.T) {
	ts, container := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=trade_recorded"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello streamMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello.Type)
	require.Eventually(t, func() bool { return container.EventBus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	// Filtered out
	container.EventBus.Emit("SETTINGS_CHANGED", "settings", nil)

	resp := postTrade(t, ts.URL)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "TRADE_RECORDED", msg.Type)
	assert.Equal(t, "AAPL", msg.Data["symbol"])
}
