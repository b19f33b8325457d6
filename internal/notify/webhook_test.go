package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/weather"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord(id string) weather.WarningRecord {
	return weather.WarningRecord{
		ID:        id,
		Location:  "Melbourne",
		Labels:    []string{"WIND WARNING", "FIRE DANGER WARNING"},
		FireRisk:  weather.RiskCatastrophic,
		Snapshot:  weather.WarningSnapshot{Temp: 28.4, Rain: 3, Wind: 45},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func fastBackoff(retries int) BackoffConfig {
	return BackoffConfig{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestWebhookDeliversWarnings(t *testing.T) {
	var mu sync.Mutex
	var got []Payload
	var headers []http.Header

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First attempt fails to exercise the retry path.
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, p)
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	obs, err := NewWebhookObserver(WebhookConfig{URL: srv.URL, Backoff: fastBackoff(3)}, srv.Client(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	obs.Notify(events.Event{Type: events.DataStored, Payload: events.DataStoredPayload{Key: "temp:X"}})
	obs.Notify(events.Event{Type: events.WarningGenerated, Payload: testRecord("w-1")})

	require.Eventually(t, func() bool {
		delivered, _, _ := obs.Stats()
		return delivered == 1
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, events.WarningGenerated, got[0].Event)
	assert.Equal(t, "Melbourne", got[0].Warning.Location)
	assert.Equal(t, weather.RiskCatastrophic, got[0].Warning.FireRisk)
	assert.Equal(t, "w-1", headers[0].Get(HeaderIdempotencyKey))
	assert.Equal(t, "warningGenerated", headers[0].Get(HeaderEvent))
	assert.NotEmpty(t, headers[0].Get(HeaderDeliveryID))
	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestWebhookRequiresURL(t *testing.T) {
	_, err := NewWebhookObserver(WebhookConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestWebhookDropsWhenQueueFull(t *testing.T) {
	obs, err := NewWebhookObserver(WebhookConfig{URL: "http://127.0.0.1:0", QueueSize: 1}, nil, quietLogger())
	require.NoError(t, err)

	obs.Notify(events.Event{Type: events.WarningGenerated, Payload: testRecord("a")})
	obs.Notify(events.Event{Type: events.WarningGenerated, Payload: testRecord("b")})

	_, _, dropped := obs.Stats()
	assert.EqualValues(t, 1, dropped)
}

func TestDeliverDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	attempts, err := deliver(context.Background(), srv.Client(), fastBackoff(3), newBreaker("t", 10, time.Minute), postTo(srv.URL))
	assert.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, 1, attempts)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDeliverRetriesThenGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	attempts, err := deliver(context.Background(), srv.Client(), fastBackoff(2), newBreaker("t", 10, time.Minute), postTo(srv.URL))
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, 3, attempts)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDeliverCircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := newBreaker("t", 2, time.Minute)

	_, err := deliver(context.Background(), srv.Client(), fastBackoff(1), cb, postTo(srv.URL))
	assert.ErrorIs(t, err, errServerError)

	_, err = deliver(context.Background(), srv.Client(), fastBackoff(1), cb, postTo(srv.URL))
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.EqualValues(t, 2, calls.Load(), "open breaker short-circuits the request")
}

func TestDeliverValidatesConfig(t *testing.T) {
	cb := newBreaker("t", 1, time.Minute)

	_, err := deliver(context.Background(), nil, fastBackoff(1), cb, postTo("http://x"))
	assert.ErrorIs(t, err, errNoHTTPClient)

	_, err = deliver(context.Background(), http.DefaultClient, BackoffConfig{}, cb, postTo("http://x"))
	assert.ErrorIs(t, err, errInvalidConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = deliver(ctx, http.DefaultClient, fastBackoff(1), cb, postTo("http://x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func postTo(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	}
}
