package events

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBus_SubscribeEmitUnsubscribe(t *testing.T) {
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	bus.Emit(TradeRecorded, "ledger", map[string]interface{}{"symbol": "AAPL"})
	e := receive(t, ch)
	assert.Equal(t, TradeRecorded, e.Type)
	assert.Equal(t, "ledger", e.Module)
	assert.Equal(t, "AAPL", e.Data["symbol"])

	cancel()
	cancel()
	assert.Equal(t, 0, bus.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)
}

func TestBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Emit(SnapshotsRebuilt, "snapshots", nil)
	bus.Emit(SnapshotsRebuilt, "snapshots", nil)

	receive(t, ch)
	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(4)
	m := NewManager(bus, zerolog.Nop())
	ch, cancel := m.Bus().Subscribe()
	defer cancel()

	pnl := 500.0
	m.EmitTyped("ledger", &TradeRecordedData{ID: "t1", Symbol: "AAPL", Side: "SELL", RealizedPnL: &pnl})
	e := receive(t, ch)
	assert.Equal(t, TradeRecorded, e.Type)
	assert.Equal(t, "t1", e.Data["id"])
	assert.Equal(t, 500.0, e.Data["realized_pnl"])

	m.EmitError("backup", errors.New("bucket missing"), map[string]interface{}{"bucket": "journal"})
	e = receive(t, ch)
	assert.Equal(t, ErrorOccurred, e.Type)
	require.NotNil(t, e.Data)
	assert.Equal(t, "bucket missing", e.Data["error"])
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.EmitTyped("ledger", &TradeDeletedData{ID: "x"})
	})
}
