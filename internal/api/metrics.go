package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/lanlight/internal/router"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Registry      RegistryMetrics  `json:"registry"`
	Router        *router.Stats    `json:"router,omitempty"`
	Journal       *JournalMetrics  `json:"journal,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// RegistryMetrics contains light and group registry statistics.
type RegistryMetrics struct {
	Lights       int  `json:"lights"`
	LightsOn     int  `json:"lights_on"`
	Groups       int  `json:"groups"`
	LightsLoaded bool `json:"lights_loaded"`
}

// JournalMetrics contains sightings journal statistics.
type JournalMetrics struct {
	Entries int    `json:"entries"`
	Dropped uint64 `json:"dropped_events"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime and registry statistics.
//
// GET /api/v1/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	lights := s.coordinator.Lights()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Registry: RegistryMetrics{
			Groups:       s.coordinator.Groups().Len(),
			LightsLoaded: lights.InitLoaded(),
		},
	}

	for _, l := range lights.List() {
		metrics.Registry.Lights++
		if l.IsOn() {
			metrics.Registry.LightsOn++
		}
	}

	if s.router != nil {
		stats := s.router.Stats()
		metrics.Router = &stats
	}

	if s.journal != nil {
		count, err := s.journal.Count(r.Context())
		if err != nil {
			s.logger.Warn("counting sightings for metrics", "error", err)
		}
		metrics.Journal = &JournalMetrics{Entries: count, Dropped: s.journal.Dropped()}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
