package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/ringclient-core/internal/daemon"
	"github.com/nerrad567/ringclient-core/internal/model"
)

// SystemMetrics is the GET /metrics document.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Contacts      ContactMetrics   `json:"contacts"`
	Video         VideoMetrics     `json:"video"`
	Daemon        *DaemonMetrics   `json:"daemon,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

type MQTTMetrics struct {
	Enabled       bool     `json:"enabled"`
	Connected     bool     `json:"connected"`
	Subscriptions []string `json:"subscriptions,omitempty"`
}

type ContactMetrics struct {
	People      model.Stats `json:"people"`
	Collections int         `json:"collections"`
}

type VideoMetrics struct {
	Renderers  int  `json:"renderers"`
	Previewing bool `json:"previewing"`
	Devices    int  `json:"devices"`
}

// DaemonMetrics describes the bus bridge and, when the client launches the
// daemon itself, the supervised process.
type DaemonMetrics struct {
	TopicPrefix string               `json:"topic_prefix"`
	Process     *daemon.ProcessStats `json:"process,omitempty"`
}

type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

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
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Contacts: ContactMetrics{
			People:      s.app.People.Stats(),
			Collections: s.app.Contacts.Len(),
		},
		Video: VideoMetrics{
			Renderers:  len(s.app.Video.Renderers()),
			Previewing: s.app.Video.IsPreviewing(),
			Devices:    len(s.app.Devices.Devices()),
		},
	}

	if s.app.MQTT != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:       true,
			Connected:     s.app.MQTT.IsConnected(),
			Subscriptions: s.app.MQTT.Subscriptions(),
		}
	}
	if s.app.Daemon != nil {
		metrics.Daemon = &DaemonMetrics{TopicPrefix: s.app.Config().Daemon.TopicPrefix}
		if s.app.Supervisor != nil {
			st := s.app.Supervisor.Stats()
			metrics.Daemon.Process = &st
		}
	}
	if s.app.DB != nil {
		dbStats := s.app.DB.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
