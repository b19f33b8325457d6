package server

import (
	"time"

	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/usage"
)

// Status is the response to the status command.
type Status struct {
	TotalSensors       int              `json:"totalSensors"`
	ActiveConnections  int              `json:"activeConnections"`
	Locations          []string         `json:"locations"`
	RecentWarnings     int              `json:"recentWarnings"`
	PerformanceMetrics metrics.Snapshot `json:"performanceMetrics"`
	Uptime             float64          `json:"uptime"`
	MemoryUsage        usage.Memory     `json:"memoryUsage"`
}

// statusLocked builds the status snapshot. Callers hold s.mu.
func (s *Server) statusLocked(now time.Time, pre prefetched) Status {
	return Status{
		TotalSensors:       s.sensors.SeriesCount(),
		ActiveConnections:  s.conns.count(),
		Locations:          s.sensors.Locations(),
		RecentWarnings:     len(s.warnings.WithinLast(s.cfg.RecentWarningWindow, now)),
		PerformanceMetrics: pre.perf,
		Uptime:             pre.usage.Uptime,
		MemoryUsage:        pre.usage.Memory,
	}
}

func (s *Server) performance() metrics.Snapshot {
	if s.sampler == nil {
		return metrics.Snapshot{}
	}
	return s.sampler.Snapshot()
}

// Counts reports the figures read by the metrics sampler. It takes the
// state lock for reading only.
func (s *Server) Counts() metrics.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return metrics.Counts{
		ActiveConnections: s.conns.count(),
		DataPoints:        s.sensors.DataPoints(),
		Series:            s.sensors.SeriesCount(),
		Warnings:          s.warnings.Len(),
	}
}

// Connections returns the metadata of every registered connection.
func (s *Server) Connections() []ConnectionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns.records()
}
