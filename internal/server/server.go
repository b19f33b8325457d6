// Package server accepts sensor and client connections over TCP, enforces
// the admission ceiling and dispatches commands against the shared state.
//
// All shared state (sensor store, warning history and connection registry)
// sits behind one lock. Each command is decoded, applied and turned into a
// response while holding it; the response is written after it is released.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/weather-warning-service/internal/clock"
	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/store"
	"github.com/i474232898/weather-warning-service/internal/usage"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

// Config holds the tunables of the connection manager.
type Config struct {
	Addr                string
	MaxConnections      int
	SeriesCapacity      int
	WarningCapacity     int
	HistoryLimit        int
	RecentWarningWindow time.Duration
	MaxLineBytes        int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                ":6000",
		MaxConnections:      DefaultMaxConnections,
		SeriesCapacity:      store.DefaultSeriesCapacity,
		WarningCapacity:     store.DefaultWarningCapacity,
		HistoryLimit:        10,
		RecentWarningWindow: 5 * time.Minute,
		MaxLineBytes:        64 * 1024,
	}
}

// Deps holds runtime dependencies. Everything except Config is optional.
type Deps struct {
	Config  Config
	Clock   clock.Clock
	Usage   usage.Provider
	Sampler *metrics.Sampler
	Bus     *events.Bus
	Logger  *slog.Logger
}

// Server is the connection manager.
type Server struct {
	cfg     Config
	clock   clock.Clock
	usage   usage.Provider
	sampler *metrics.Sampler
	bus     *events.Bus
	logger  *slog.Logger

	// mu guards sensors, warnings and conns.
	mu       sync.RWMutex
	sensors  *store.SensorStore
	warnings *store.WarningHistory
	conns    *registry

	lnMu     sync.Mutex
	listener net.Listener
	closing  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a server. It does not listen until Serve or ListenAndServe.
func New(deps Deps) *Server {
	cfg := deps.Config
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.SeriesCapacity <= 0 {
		cfg.SeriesCapacity = def.SeriesCapacity
	}
	if cfg.WarningCapacity <= 0 {
		cfg.WarningCapacity = def.WarningCapacity
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.RecentWarningWindow <= 0 {
		cfg.RecentWarningWindow = def.RecentWarningWindow
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = def.MaxLineBytes
	}

	c := deps.Clock
	if c == nil {
		c = clock.Real()
	}
	u := deps.Usage
	if u == nil {
		u = usage.NewRuntimeProvider(c)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:      cfg,
		clock:    c,
		usage:    u,
		sampler:  deps.Sampler,
		bus:      deps.Bus,
		logger:   logger.With("component", "server"),
		sensors:  store.NewSensorStore(cfg.SeriesCapacity),
		warnings: store.NewWarningHistory(cfg.WarningCapacity),
		conns:    newRegistry(cfg.MaxConnections),
	}
}

// ListenAndServe listens on the configured TCP address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It always returns a
// non-nil error; after Shutdown the error is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.lnMu.Lock()
	if s.closing.Load() {
		s.lnMu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.lnMu.Unlock()

	s.logger.Info("listening",
		"addr", ln.Addr().String(),
		"max_connections", s.conns.ceiling,
		"series_capacity", s.sensors.Capacity(),
		"warning_capacity", s.cfg.WarningCapacity)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			// Other accept errors (EMFILE, ENFILE, ECONNABORTED) are retried.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > time.Second {
				delay = time.Second
			}
			s.logger.Warn("accept error, retrying", "error", err, "delay", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		s.accept(conn)
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// accept runs the admission check and starts the connection handler.
func (s *Server) accept(conn net.Conn) {
	now := s.clock.Now()

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	rec, err := s.conns.admit(conn, now)
	total := s.conns.count()
	if err == nil {
		// Counted before unlocking so Shutdown's Wait covers this handler.
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("connection rejected", "remote", conn.RemoteAddr().String(), "active", total)
		if s.sampler != nil {
			s.sampler.RecordRejection()
		}
		go func() {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			_, _ = io.WriteString(conn, CapacityMessage)
			conn.Close()
		}()
		return
	}

	s.logger.Debug("client connected", "client", rec.ID, "remote", rec.RemoteAddr, "total", total)
	s.bus.Publish(events.ClientConnected, events.ClientPayload{
		ClientID:    rec.ID,
		RemoteAddr:  rec.RemoteAddr,
		Connections: total,
	})

	go s.serveConn(rec.ID, conn)
}

// serveConn reads newline-delimited commands until the peer disconnects.
func (s *Server) serveConn(id uint64, conn net.Conn) {
	defer s.wg.Done()
	defer s.disconnect(id, conn)

	scanner := bufio.NewScanner(conn)
	// The effective limit is the larger of max and cap(buf).
	scanner.Buffer(make([]byte, 0, min(4096, s.cfg.MaxLineBytes)), s.cfg.MaxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp := s.Execute(id, line)
		if _, err := io.WriteString(conn, resp+"\n"); err != nil {
			s.connError(id, err)
			return
		}
	}

	if err := scanner.Err(); err != nil && !s.closing.Load() {
		s.connError(id, err)
	}
}

func (s *Server) connError(id uint64, err error) {
	if errors.Is(err, net.ErrClosed) {
		return
	}
	s.logger.Warn("socket error", "client", id, "error", err)
	s.bus.Publish(events.ClientError, events.ClientPayload{ClientID: id, Error: err.Error()})
}

// disconnect deregisters id and closes its socket.
func (s *Server) disconnect(id uint64, conn net.Conn) {
	s.mu.Lock()
	removed := s.conns.remove(id)
	remaining := s.conns.count()
	s.mu.Unlock()

	conn.Close()
	if !removed {
		return
	}

	s.logger.Debug("client disconnected", "client", id, "remaining", remaining)
	s.bus.Publish(events.ClientDisconnected, events.ClientPayload{ClientID: id, Connections: remaining})
}

// Shutdown stops accepting, closes every live connection and waits for the
// handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	s.lnMu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.lnMu.Unlock()

	// Taken after closing is set: accept either registered its connection
	// before this point or will see closing and drop it.
	s.mu.RLock()
	conns := s.conns.netConns()
	s.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
