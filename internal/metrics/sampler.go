// Package metrics periodically samples service counters for the status
// query and exports them to Prometheus.
package metrics

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/weather-warning-service/internal/clock"
	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/usage"
)

// DefaultInterval is the sampling period.
const DefaultInterval = 5 * time.Second

// Counts is what the sampler reads from the service on every tick.
type Counts struct {
	ActiveConnections int
	DataPoints        int
	Series            int
	Warnings          int
}

// Source supplies counts. Implementations take a read lock only.
type Source interface {
	Counts() Counts
}

// Snapshot is the sampled performance structure reported by status.
type Snapshot struct {
	RequestsPerSecond   float64      `json:"requestsPerSecond"`
	AverageResponseTime float64      `json:"averageResponseTime"` // milliseconds
	MemoryUsage         usage.Memory `json:"memoryUsage"`
	ActiveConnections   int          `json:"activeConnections"`
	DataPointsStored    int          `json:"dataPointsStored"`
	SampledAt           time.Time    `json:"sampledAt"`
}

// Sampler recomputes the performance snapshot on a fixed period.
type Sampler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	clock     clock.Clock
	usage     usage.Provider
	bus       *events.Bus
	logger    *slog.Logger
	prom      *promMetrics

	source Source

	// request accounting since the previous sample
	requests atomic.Int64
	elapsed  atomic.Int64 // nanoseconds

	mu       sync.RWMutex
	snapshot Snapshot
	last     time.Time
}

// SamplerDeps holds the sampler's collaborators. Registry, Bus and Logger
// are optional.
type SamplerDeps struct {
	Interval time.Duration
	Clock    clock.Clock
	Usage    usage.Provider
	Registry prometheus.Registerer
	Bus      *events.Bus
	Logger   *slog.Logger
}

// NewSampler creates a sampler. It does not run until Start.
func NewSampler(deps SamplerDeps) *Sampler {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Usage == nil {
		deps.Usage = usage.NewRuntimeProvider(deps.Clock)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sampler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  deps.Interval,
		clock:     deps.Clock,
		usage:     deps.Usage,
		bus:       deps.Bus,
		logger:    logger.With("component", "sampler"),
		prom:      newPromMetrics(deps.Registry),
		last:      deps.Clock.Now(),
	}
}

// Start schedules periodic sampling of src and starts the scheduler.
func (s *Sampler) Start(src Source) error {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.Sample)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("sampler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future samples.
func (s *Sampler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Attach sets the source without scheduling, for manual sampling.
func (s *Sampler) Attach(src Source) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
}

// Sample recomputes the snapshot now.
func (s *Sampler) Sample() {
	s.mu.RLock()
	src := s.source
	s.mu.RUnlock()

	var counts Counts
	if src != nil {
		counts = src.Counts()
	}

	now := s.clock.Now()
	requests := s.requests.Swap(0)
	elapsed := time.Duration(s.elapsed.Swap(0))

	s.mu.Lock()
	window := now.Sub(s.last)
	s.last = now

	snap := Snapshot{
		MemoryUsage:       s.usage.Usage().Memory,
		ActiveConnections: counts.ActiveConnections,
		DataPointsStored:  counts.DataPoints,
		SampledAt:         now.UTC(),
	}
	if window > 0 {
		snap.RequestsPerSecond = float64(requests) / window.Seconds()
	}
	if requests > 0 {
		snap.AverageResponseTime = float64(elapsed) / float64(requests) / float64(time.Millisecond)
	}
	s.snapshot = snap
	s.mu.Unlock()

	s.prom.activeConnections.Set(float64(counts.ActiveConnections))
	s.prom.dataPoints.Set(float64(counts.DataPoints))
	s.prom.series.Set(float64(counts.Series))
	s.prom.warnings.Set(float64(counts.Warnings))

	s.bus.Publish(events.PerformanceUpdate, events.PerformancePayload{
		ActiveConnections:   snap.ActiveConnections,
		DataPointsStored:    snap.DataPointsStored,
		RequestsPerSecond:   snap.RequestsPerSecond,
		AverageResponseTime: snap.AverageResponseTime,
	})
}

// Snapshot returns the most recent sample.
func (s *Sampler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// RecordRequest accounts one processed command. Safe for concurrent use.
func (s *Sampler) RecordRequest(command string, d time.Duration) {
	s.requests.Add(1)
	s.elapsed.Add(int64(d))
	s.prom.requests.WithLabelValues(command).Inc()
	s.prom.responseTime.Observe(d.Seconds())
}

// RecordRejection accounts one connection refused at the ceiling.
func (s *Sampler) RecordRejection() {
	s.prom.rejected.Inc()
}
