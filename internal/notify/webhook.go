// Package notify forwards generated warnings to an external HTTP endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/weather"
)

// Header names set on every delivery.
const (
	HeaderEvent          = "X-Weather-Event"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderDeliveryID     = "X-Delivery-Id"
)

// WebhookConfig configures a WebhookObserver.
type WebhookConfig struct {
	URL       string
	Timeout   time.Duration
	QueueSize int
	Backoff   BackoffConfig

	// BreakerFailures consecutive failures open the breaker for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func (c *WebhookConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Backoff.InitialInterval <= 0 {
		c.Backoff.InitialInterval = 200 * time.Millisecond
	}
	if c.Backoff.MaxInterval <= 0 {
		c.Backoff.MaxInterval = 5 * time.Second
	}
	if c.Backoff.MaxRetries == 0 {
		c.Backoff.MaxRetries = 3
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Payload is the JSON body posted for each warning.
type Payload struct {
	Event   events.Type           `json:"event"`
	SentAt  time.Time             `json:"sentAt"`
	Warning weather.WarningRecord `json:"warning"`
}

// WebhookObserver posts warningGenerated events to a URL. Notify only queues;
// delivery happens in Run so a slow endpoint never holds up the event bus.
type WebhookObserver struct {
	cfg     WebhookConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	queue   chan weather.WarningRecord
	logger  *slog.Logger

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewWebhookObserver validates cfg and returns an observer. A nil client
// gets one with cfg.Timeout.
func NewWebhookObserver(cfg WebhookConfig, client *http.Client, logger *slog.Logger) (*WebhookObserver, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	cfg.setDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookObserver{
		cfg:     cfg,
		client:  client,
		breaker: newBreaker("webhook", cfg.BreakerFailures, cfg.BreakerCooldown),
		queue:   make(chan weather.WarningRecord, cfg.QueueSize),
		logger:  logger.With("component", "webhook"),
	}, nil
}

// Notify queues warning events and ignores everything else.
func (w *WebhookObserver) Notify(e events.Event) {
	if e.Type != events.WarningGenerated {
		return
	}
	record, ok := e.Payload.(weather.WarningRecord)
	if !ok {
		return
	}
	select {
	case w.queue <- record:
	default:
		w.dropped.Add(1)
		w.logger.Warn("webhook queue full, dropping warning", "id", record.ID, "location", record.Location)
	}
}

// Run delivers queued warnings until ctx is cancelled.
func (w *WebhookObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case record := <-w.queue:
			w.send(ctx, record)
		}
	}
}

func (w *WebhookObserver) send(ctx context.Context, record weather.WarningRecord) {
	body, err := json.Marshal(Payload{
		Event:   events.WarningGenerated,
		SentAt:  time.Now().UTC(),
		Warning: record,
	})
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("encode warning", "id", record.ID, "error", err)
		return
	}

	attempts, err := deliver(ctx, w.client, w.cfg.Backoff, w.breaker, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderEvent, string(events.WarningGenerated))
		req.Header.Set(HeaderIdempotencyKey, record.ID)
		req.Header.Set(HeaderDeliveryID, uuid.NewString())
		return req, nil
	})
	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("webhook delivery failed", "id", record.ID, "attempts", attempts, "error", err)
		return
	}

	w.delivered.Add(1)
	w.logger.Debug("webhook delivered", "id", record.ID, "attempts", attempts)
}

// Stats reports delivery counters.
func (w *WebhookObserver) Stats() (delivered, failed, dropped int64) {
	return w.delivered.Load(), w.failed.Load(), w.dropped.Load()
}
