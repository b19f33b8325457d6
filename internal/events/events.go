// Package events carries monitoring notifications out of the service core.
// The core publishes to a Bus; observers subscribe to it. The core works the
// same with zero observers attached.
package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// Type names an event.
type Type string

const (
	DataStored         Type = "dataStored"
	WarningGenerated   Type = "warningGenerated"
	ClientConnected    Type = "clientConnected"
	ClientDisconnected Type = "clientDisconnected"
	ClientError        Type = "clientError"
	RequestProcessed   Type = "requestProcessed"
	PerformanceUpdate  Type = "performanceUpdate"
)

// Event is one notification. Payload holds one of the payload types below.
type Event struct {
	Type    Type      `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// DataStoredPayload accompanies DataStored.
type DataStoredPayload struct {
	Key     string          `json:"key"`
	Reading weather.Reading `json:"reading"`
}

// ClientPayload accompanies ClientConnected, ClientDisconnected and ClientError.
type ClientPayload struct {
	ClientID    uint64 `json:"clientId"`
	RemoteAddr  string `json:"remoteAddr,omitempty"`
	Connections int    `json:"connections"`
	Error       string `json:"error,omitempty"`
}

// RequestPayload accompanies RequestProcessed.
type RequestPayload struct {
	ClientID     uint64        `json:"clientId"`
	Command      string        `json:"command"`
	ResponseTime time.Duration `json:"responseTime"`
}

// PerformancePayload accompanies PerformanceUpdate.
type PerformancePayload struct {
	ActiveConnections   int     `json:"activeConnections"`
	DataPointsStored    int     `json:"dataPointsStored"`
	RequestsPerSecond   float64 `json:"requestsPerSecond"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// Observer receives events. Notify is called from the bus goroutine, one
// event at a time, and must not block for long.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Bus fans events out to observers asynchronously. Publish never blocks:
// when the queue is full the event is dropped and counted.
//
// A nil *Bus is valid and discards everything.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer

	queue   chan Event
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewBus creates a bus with a queue of the given size.
func NewBus(size int, logger *slog.Logger) *Bus {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		queue:  make(chan Event, size),
		logger: logger.With("component", "event-bus"),
	}
}

// Subscribe attaches an observer.
func (b *Bus) Subscribe(o Observer) {
	b.mu.Lock()
	b.observers = append(b.observers, o)
	b.mu.Unlock()
}

// Publish queues an event for delivery.
func (b *Bus) Publish(t Type, payload any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	none := len(b.observers) == 0
	b.mu.RUnlock()
	if none {
		return
	}

	select {
	case b.queue <- Event{Type: t, Time: time.Now().UTC(), Payload: payload}:
	default:
		if b.dropped.Add(1)%1000 == 1 {
			b.logger.Warn("event queue full, dropping events", "type", t, "dropped", b.dropped.Load())
		}
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (b *Bus) Dropped() int64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

// Run delivers queued events until ctx is cancelled, then drains what is
// already queued.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case e := <-b.queue:
			b.deliver(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-b.queue:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()

	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("observer panicked", "type", e.Type, "panic", r)
				}
			}()
			o.Notify(e)
		}()
	}
}
