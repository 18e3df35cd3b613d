package relay

import (
	"net/http"
	"runtime"
	"time"
)

// Metrics is the /api/v1/metrics response.
type Metrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Ingest        IngestMetrics  `json:"ingest"`
	Push          PushMetrics    `json:"push"`
	MQTT          MQTTMetrics    `json:"mqtt"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// IngestMetrics counts reports.
type IngestMetrics struct {
	Accepted    uint64 `json:"accepted"`
	Rejected    uint64 `json:"rejected"`
	FloorAlerts uint64 `json:"floor_alerts"`
	Subjects    int    `json:"subjects"`
}

// PushMetrics contains viewer hub statistics.
type PushMetrics struct {
	Viewers int    `json:"viewers"`
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

const bytesPerMB = 1024 * 1024

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := s.clock.Now()
	m := Metrics{
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
		Ingest: IngestMetrics{
			Accepted:    s.accepted.Load(),
			Rejected:    s.rejected.Load(),
			FloorAlerts: s.alerts.Load(),
			Subjects:    s.state.Len(),
		},
		Push: PushMetrics{
			Viewers: s.hub.ClientCount(),
			Sent:    s.hub.sent.Load(),
			Skipped: s.hub.skipped.Load(),
		},
		MQTT: MQTTMetrics{
			Enabled:   s.mqtt != nil,
			Connected: s.mqtt != nil && s.mqtt.IsConnected(),
		},
	}
	writeJSON(w, http.StatusOK, m)
}
