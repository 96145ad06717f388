// Package events provides the in-process event bus used to notify UI clients.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	TradeRecorded    EventType = "TRADE_RECORDED"
	TradeDeleted     EventType = "TRADE_DELETED"
	SnapshotsRebuilt EventType = "SNAPSHOTS_REBUILT"
	SnapshotSaved    EventType = "SNAPSHOT_SAVED"
	SettingsChanged  EventType = "SETTINGS_CHANGED"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// Event is what subscribers receive
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Module    string                 `json:"module"`
}

// EventData is implemented by every typed payload
type EventData interface {
	EventType() EventType
}

// TradeRecordedData is emitted after a trade is stored
type TradeRecordedData struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Market       string   `json:"market"`
	Side         string   `json:"side"`
	Quantity     float64  `json:"quantity"`
	Price        float64  `json:"price"`
	RealizedPnL  *float64 `json:"realized_pnl,omitempty"`
	PlanExecuted string   `json:"plan_executed,omitempty"`
}

func (d *TradeRecordedData) EventType() EventType { return TradeRecorded }

// TradeDeletedData is emitted after a trade is removed
type TradeDeletedData struct {
	ID string `json:"id"`
}

func (d *TradeDeletedData) EventType() EventType { return TradeDeleted }

// SnapshotsRebuiltData is emitted after a replay is persisted
type SnapshotsRebuiltData struct {
	Count    int      `json:"count"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Unpriced []string `json:"unpriced,omitempty"`
}

func (d *SnapshotsRebuiltData) EventType() EventType { return SnapshotsRebuilt }

// SnapshotSavedData is emitted after a manual snapshot is stored
type SnapshotSavedData struct {
	Date        string  `json:"date"`
	TotalAssets float64 `json:"total_assets"`
}

func (d *SnapshotSavedData) EventType() EventType { return SnapshotSaved }

// SettingsChangedData is emitted when a setting is written
type SettingsChangedData struct {
	Key string `json:"key"`
}

func (d *SettingsChangedData) EventType() EventType { return SettingsChanged }

// BackupCompletedData is emitted after a backup upload
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Pruned    int    `json:"pruned"`
}

func (d *BackupCompletedData) EventType() EventType { return BackupCompleted }

// ErrorEventData carries a failure description
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }
