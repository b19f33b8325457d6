package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warning-service/internal/clock"
	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/usage"
)

type fixedSource struct {
	mu     sync.Mutex
	counts Counts
}

func (f *fixedSource) Counts() Counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts
}

func newTestSampler(t *testing.T, fake *clock.Fake, bus *events.Bus) *Sampler {
	t.Helper()
	return NewSampler(SamplerDeps{
		Interval: time.Second,
		Clock:    fake,
		Usage:    usage.Static{Memory: usage.Memory{Alloc: 1024}},
		Registry: NewRegistry(),
		Bus:      bus,
	})
}

func TestSamplerSnapshot(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestSampler(t, fake, nil)
	s.Attach(&fixedSource{counts: Counts{ActiveConnections: 3, DataPoints: 120, Series: 4, Warnings: 2}})

	for i := 0; i < 10; i++ {
		s.RecordRequest("temp", 2*time.Millisecond)
	}
	fake.Advance(5 * time.Second)
	s.Sample()

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.ActiveConnections)
	assert.Equal(t, 120, snap.DataPointsStored)
	assert.InDelta(t, 2.0, snap.RequestsPerSecond, 1e-9)
	assert.InDelta(t, 2.0, snap.AverageResponseTime, 1e-9)
	assert.Equal(t, uint64(1024), snap.MemoryUsage.Alloc)

	assert.Equal(t, 3.0, testutil.ToFloat64(s.prom.activeConnections))
	assert.Equal(t, 120.0, testutil.ToFloat64(s.prom.dataPoints))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.prom.series))
	assert.Equal(t, 10.0, testutil.ToFloat64(s.prom.requests.WithLabelValues("temp")))

	// Counters reset between samples.
	fake.Advance(5 * time.Second)
	s.Sample()
	assert.Zero(t, s.Snapshot().RequestsPerSecond)
	assert.Zero(t, s.Snapshot().AverageResponseTime)
}

func TestSamplerWithoutSource(t *testing.T) {
	fake := clock.NewFake(time.Now())
	s := newTestSampler(t, fake, nil)

	assert.NotPanics(t, s.Sample)
	assert.Zero(t, s.Snapshot().ActiveConnections)
}

func TestSamplerPublishesPerformanceUpdate(t *testing.T) {
	fake := clock.NewFake(time.Now())
	bus := events.NewBus(8, nil)
	got := make(chan events.Event, 1)
	bus.Subscribe(events.ObserverFunc(func(e events.Event) { got <- e }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	s := newTestSampler(t, fake, bus)
	s.Attach(&fixedSource{counts: Counts{ActiveConnections: 1, DataPoints: 7}})
	s.Sample()

	select {
	case e := <-got:
		require.Equal(t, events.PerformanceUpdate, e.Type)
		p, ok := e.Payload.(events.PerformancePayload)
		require.True(t, ok)
		assert.Equal(t, 7, p.DataPointsStored)
	case <-time.After(time.Second):
		t.Fatal("no performance update published")
	}
}

func TestSamplerStartStop(t *testing.T) {
	s := NewSampler(SamplerDeps{Interval: time.Second})
	src := &fixedSource{counts: Counts{ActiveConnections: 2}}

	require.NoError(t, s.Start(src))
	defer s.Stop()

	// gocron runs the job immediately on start.
	require.Eventually(t, func() bool {
		return s.Snapshot().ActiveConnections == 2
	}, 2*time.Second, 10*time.Millisecond)
}
