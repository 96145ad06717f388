package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/scheduler"
)

// SystemHandlers serves process, database and job status
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	scheduler *scheduler.Scheduler
	backup    *reliability.BackupService
	bus       *events.Bus
	startedAt time.Time

	// sampleCPU is replaceable in tests; the default blocks for 100ms
	sampleCPU func() (float64, float64)
}

// NewSystemHandlers creates system handlers. scheduler, backup and bus may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases []*database.DB,
	sched *scheduler.Scheduler,
	backup *reliability.BackupService,
	bus *events.Bus,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		scheduler: sched,
		backup:    backup,
		bus:       bus,
		startedAt: time.Now(),
	}
	h.sampleCPU = h.getSystemStats
	return h
}

// DatabaseStatus describes one database file
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status           string           `json:"status"`
	UptimeSeconds    int64            `json:"uptime_seconds"`
	CPUPercent       float64          `json:"cpu_percent"`
	MemoryPercent    float64          `json:"memory_percent"`
	Goroutines       int              `json:"goroutines"`
	DataDir          string           `json:"data_dir"`
	Databases        []DatabaseStatus `json:"databases"`
	EventSubscribers int              `json:"event_subscribers"`
	BackupsEnabled   bool             `json:"backups_enabled"`
	LastChecked      string           `json:"last_checked"`
}

// HandleHealth pings every database
// GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.databases))
	for _, db := range h.databases {
		if err := db.Conn().PingContext(r.Context()); err != nil {
			checks[db.Name()] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[db.Name()] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	h.writeJSON(w, status, map[string]interface{}{
		"status":    overall,
		"databases": checks,
	})
}

// HandleSystemStatus returns CPU, memory and database statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.sampleCPU()

	response := SystemStatusResponse{
		Status:         "healthy",
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		Goroutines:     runtime.NumGoroutine(),
		DataDir:        h.dataDir,
		Databases:      make([]DatabaseStatus, 0, len(h.databases)),
		BackupsEnabled: h.backup != nil,
		LastChecked:    time.Now().Format(time.RFC3339),
	}
	if h.bus != nil {
		response.EventSubscribers = h.bus.SubscriberCount()
	}

	for _, db := range h.databases {
		entry := DatabaseStatus{Name: db.Name(), Path: db.Path(), Healthy: true}
		stats, err := db.GetStats()
		if err != nil {
			entry.Healthy = false
			entry.Error = err.Error()
			response.Status = "degraded"
		} else {
			entry.Stats = stats
		}
		response.Databases = append(response.Databases, entry)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus lists scheduled jobs with their next run
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": []scheduler.JobStatus{}})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": h.scheduler.Jobs()})
}

// HandleRunJob runs a registered job immediately and waits for it
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	known := false
	for _, job := range h.scheduler.Jobs() {
		if job.Name == name {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "Unknown job: "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	start := time.Now()
	if err := h.scheduler.RunByName(name); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"job":     name,
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// HandleListBackups lists archives in the backup bucket
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	backups, err := h.backup.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms so the call stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
