package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/vcaudit/internal/database"
	"github.com/aristath/vcaudit/internal/scheduler"
)

// SystemHandlers handles system monitoring and job trigger endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   []*database.DB
	jobs        map[string]scheduler.Job
	resultStore string
	archive     bool
}

// SystemConfig describes what the status endpoint reports on
type SystemConfig struct {
	DataDir        string
	Databases      []*database.DB
	ResultStore    string // "sqlite" or "postgres"
	ArchiveEnabled bool
	Jobs           []scheduler.Job // nil entries are skipped
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, cfg SystemConfig) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     cfg.DataDir,
		startupTime: time.Now(),
		databases:   cfg.Databases,
		jobs:        make(map[string]scheduler.Job),
		resultStore: cfg.ResultStore,
		archive:     cfg.ArchiveEnabled,
	}
	for _, job := range cfg.Jobs {
		if job != nil {
			h.jobs[job.Name()] = job
		}
	}
	return h
}

// HostStats is a point-in-time reading of the machine the service runs on
type HostStats struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	MemoryUsedMB    uint64  `json:"memory_used_mb"`
	DiskPercent     float64 `json:"disk_percent"`
	DiskFreeMB      uint64  `json:"disk_free_mb"`
	Goroutines      int     `json:"goroutines"`
	HeapAllocatedMB uint64  `json:"heap_allocated_mb"`
}

// DatabaseStatus reports the size and health of one sqlite database
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Profile string          `json:"profile"`
	Stats   *database.Stats `json:"stats,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string           `json:"status"` // "healthy" or "degraded"
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	ResultStore   string           `json:"result_store"`
	Archive       bool             `json:"archive_enabled"`
	Jobs          []string         `json:"jobs"`
	Host          HostStats        `json:"host"`
	Databases     []DatabaseStatus `json:"databases"`
}

// HandleSystemStatus returns host, database and job status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startupTime.UTC(),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		ResultStore:   h.resultStore,
		Archive:       h.archive,
		Jobs:          h.jobNames(),
		Host:          h.hostStats(),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
	}

	for _, db := range h.databases {
		status := DatabaseStatus{Name: db.Name(), Profile: string(db.Profile())}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			status.Error = err.Error()
			response.Status = "degraded"
		} else {
			status.Stats = stats
		}
		response.Databases = append(response.Databases, status)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob runs a registered job in the background
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request, name string) {
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "Unknown job: " + name,
		})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	go func() {
		start := time.Now()
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
			return
		}
		h.log.Info().Str("job", name).Dur("duration_ms", time.Since(start)).Msg("Manual job run completed")
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": name + " triggered",
	})
}

func (h *SystemHandlers) jobNames() []string {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hostStats reads CPU, memory and disk usage. CPU is sampled over 100ms so
// the endpoint stays responsive; failed readings are logged and left at zero.
func (h *SystemHandlers) hostStats() HostStats {
	var stats HostStats

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
		stats.MemoryUsedMB = memStat.Used / 1024 / 1024
	}

	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Str("path", h.dataDir).Msg("Failed to get disk usage")
		} else {
			stats.DiskPercent = usage.UsedPercent
			stats.DiskFreeMB = usage.Free / 1024 / 1024
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.Goroutines = runtime.NumGoroutine()
	stats.HeapAllocatedMB = ms.HeapAlloc / 1024 / 1024

	return stats
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
