package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/modules/analytics"
	"github.com/aristath/networth/internal/scheduler"
)

// CacheStatsProvider reports the analytics cache counters
type CacheStatsProvider interface {
	CacheStats() analytics.CacheStats
}

// ClientDataStatsProvider reports the upstream response cache contents
type ClientDataStatsProvider interface {
	Stats() (map[string]clientdata.TableStats, error)
}

// SystemHandlers serves status and maintenance endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	dataDir      string
	databases    map[string]*database.DB
	cache        CacheStatsProvider
	clientData   ClientDataStatsProvider
	scheduler    *scheduler.Scheduler
	baseCurrency string
	startedAt    time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	cache CacheStatsProvider,
	clientData ClientDataStatsProvider,
	sched *scheduler.Scheduler,
	baseCurrency string,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		dataDir:      dataDir,
		databases:    databases,
		cache:        cache,
		clientData:   clientData,
		scheduler:    sched,
		baseCurrency: baseCurrency,
		startedAt:    time.Now(),
	}
}

// DatabaseStatus is the health of one database
type DatabaseStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string                    `json:"status"`
	BaseCurrency  string                    `json:"base_currency"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	CPUPercent    float64                   `json:"cpu_percent"`
	MemoryPercent float64                   `json:"memory_percent"`
	Databases     map[string]DatabaseStatus `json:"databases"`
	Cache         *analytics.CacheStats     `json:"analytics_cache,omitempty"`
	LastChecked   string                    `json:"last_checked"`
}

// DBInfo describes one database file
type DBInfo struct {
	Name  string          `json:"name"`
	Path  string          `json:"path"`
	Stats *database.Stats `json:"stats,omitempty"`
	Error string          `json:"error,omitempty"`
}

// DatabaseStatsResponse is returned by GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Databases   []DBInfo                         `json:"databases"`
	ClientData  map[string]clientdata.TableStats `json:"client_data,omitempty"`
	TotalSizeMB float64                          `json:"total_size_mb"`
	LastChecked string                           `json:"last_checked"`
}

// DiskUsageResponse is returned by GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB             float64 `json:"data_dir_mb"`
	FilesystemFreeMB      float64 `json:"filesystem_free_mb"`
	FilesystemUsedPercent float64 `json:"filesystem_used_percent"`
}

// JobsStatusResponse is returned by GET /api/system/jobs
type JobsStatusResponse struct {
	Jobs []string `json:"jobs"`
}

// HandleSystemStatus returns process and database health
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		BaseCurrency:  h.baseCurrency,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Databases:     make(map[string]DatabaseStatus, len(h.databases)),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	for name, db := range h.databases {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err := db.HealthCheck(ctx)
		cancel()

		status := DatabaseStatus{Healthy: err == nil}
		if err != nil {
			status.Error = err.Error()
			response.Status = "degraded"
		}
		response.Databases[name] = status
	}

	if h.cache != nil {
		stats := h.cache.CacheStats()
		response.Cache = &stats
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	response := DatabaseStatsResponse{
		Databases:   []DBInfo{},
		LastChecked: time.Now().Format(time.RFC3339),
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := h.databases[name]
		info := DBInfo{Name: name, Path: db.Path()}

		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.Stats = stats
			response.TotalSizeMB += float64(stats.SizeBytes+stats.WALSizeBytes) / 1024 / 1024
		}
		response.Databases = append(response.Databases, info)
	}

	if h.clientData != nil {
		stats, err := h.clientData.Stats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get client data stats")
		} else {
			response.ClientData = stats
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	response := DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get filesystem usage")
	} else {
		response.FilesystemFreeMB = float64(usage.Free) / 1024 / 1024
		response.FilesystemUsedPercent = usage.UsedPercent
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus lists the registered jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	response := JobsStatusResponse{Jobs: []string{}}
	if h.scheduler != nil {
		response.Jobs = h.scheduler.Names()
		sort.Strings(response.Jobs)
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob runs a registered job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var job scheduler.Job
	found := false
	if h.scheduler != nil {
		job, found = h.scheduler.Job(name)
	}
	if !found {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "job not registered: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": name + " completed"})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats samples CPU over 100ms and reads memory usage
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
