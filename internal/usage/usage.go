// Package usage reports process resource usage (uptime and memory) for the
// status query and the metrics sampler.
package usage

import (
	"runtime"
	"time"

	"github.com/i474232898/weather-warning-service/internal/clock"
)

// Memory mirrors the Go runtime memory figures surfaced to clients.
type Memory struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

// Report is an opaque resource usage record supplied by the runtime.
type Report struct {
	Uptime float64 `json:"uptime"` // seconds
	Memory Memory  `json:"memoryUsage"`
}

// Provider supplies resource usage of the hosting process.
type Provider interface {
	Usage() Report
}

// RuntimeProvider reads usage from the Go runtime.
type RuntimeProvider struct {
	clock   clock.Clock
	started time.Time
}

// NewRuntimeProvider measures uptime from the moment it is created.
func NewRuntimeProvider(c clock.Clock) *RuntimeProvider {
	if c == nil {
		c = clock.Real()
	}
	return &RuntimeProvider{clock: c, started: c.Now()}
}

// Usage returns current uptime and memory statistics.
func (p *RuntimeProvider) Usage() Report {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Report{
		Uptime: p.clock.Now().Sub(p.started).Seconds(),
		Memory: Memory{
			Alloc:      ms.Alloc,
			TotalAlloc: ms.TotalAlloc,
			Sys:        ms.Sys,
			HeapAlloc:  ms.HeapAlloc,
			HeapInuse:  ms.HeapInuse,
			NumGC:      ms.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
	}
}

// Static is a Provider returning a fixed report, for tests and embedding.
type Static Report

func (s Static) Usage() Report { return Report(s) }
