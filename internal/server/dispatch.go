package server

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/i474232898/weather-warning-service/internal/events"
	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/protocol"
	"github.com/i474232898/weather-warning-service/internal/usage"
	"github.com/i474232898/weather-warning-service/internal/weather"
)

type pendingEvent struct {
	typ     events.Type
	payload any
}

// prefetched holds inputs gathered before taking the state lock.
type prefetched struct {
	perf  metrics.Snapshot
	usage usage.Report
}

// Execute handles one command line from connection id and returns the
// response. Failures become error responses; nothing here closes the
// connection.
func (s *Server) Execute(id uint64, line []byte) string {
	start := time.Now()
	now := s.clock.Now()

	cmd, decodeErr := protocol.Decode(line, now)
	s.logger.Debug("received", "client", id, "line", string(line))

	var pre prefetched
	if decodeErr == nil && cmd.Kind == protocol.KindStatus {
		pre.perf = s.performance()
		pre.usage = s.usage.Usage()
	}

	resp, pending := s.apply(id, cmd, decodeErr, now, pre)

	for _, e := range pending {
		s.bus.Publish(e.typ, e.payload)
	}

	elapsed := time.Since(start)
	command := string(cmd.Kind)
	if decodeErr != nil {
		command = "invalid"
	}
	if s.sampler != nil {
		s.sampler.RecordRequest(command, elapsed)
	}
	s.bus.Publish(events.RequestProcessed, events.RequestPayload{
		ClientID:     id,
		Command:      command,
		ResponseTime: elapsed,
	})

	s.logger.Debug("sent", "client", id, "response", truncate(resp, 100))
	return resp
}

// apply runs one command inside the state lock. A panic is contained to the
// command that caused it.
func (s *Server) apply(id uint64, cmd protocol.Command, decodeErr error, now time.Time, pre prefetched) (resp string, pending []pendingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked", "client", id, "command", cmd.Token, "panic", r)
			resp = protocol.EncodeError(fmt.Errorf("internal error processing %s", cmd.Token))
			pending = nil
		}
	}()

	s.conns.touch(id, now)

	if decodeErr != nil {
		return protocol.EncodeError(decodeErr), nil
	}

	resp, pending, err := s.dispatch(cmd, now, pre)
	if err != nil {
		s.logger.Warn("command failed", "client", id, "command", cmd.Token, "error", err)
		return protocol.EncodeError(err), pending
	}
	return resp, pending
}

// dispatch routes a decoded command. Callers hold s.mu.
func (s *Server) dispatch(cmd protocol.Command, now time.Time, pre prefetched) (string, []pendingEvent, error) {
	switch cmd.Kind {
	case protocol.KindTemp, protocol.KindRain, protocol.KindWind, protocol.KindFire:
		key := s.sensors.Append(cmd.SensorKind(), cmd.Location, cmd.Reading)
		return protocol.OK, []pendingEvent{{
			typ:     events.DataStored,
			payload: events.DataStoredPayload{Key: key.String(), Reading: cmd.Reading},
		}}, nil

	case protocol.KindRequest:
		record, ok, err := weather.EvaluateWarning(s.sensors, cmd.Location, now)
		if !ok {
			return weather.InsufficientData(cmd.Location), nil, nil
		}
		// Recorded even when a non-numeric input prevents the text response.
		s.warnings.Append(record)
		pending := []pendingEvent{{typ: events.WarningGenerated, payload: record}}
		if err != nil {
			return "", pending, err
		}
		return record.Format(), pending, nil

	case protocol.KindStatus:
		out, err := protocol.EncodeJSON(s.statusLocked(now, pre))
		return out, nil, err

	case protocol.KindHistory:
		out, err := protocol.EncodeJSON(s.warnings.Recent(s.cfg.HistoryLimit))
		return out, nil, err

	case protocol.KindLocations:
		out, err := protocol.EncodeJSON(s.summariesLocked())
		return out, nil, err

	case protocol.KindLocation:
		out, err := protocol.EncodeJSON(weather.Summarize(s.sensors, cmd.Location))
		return out, nil, err

	default:
		return protocol.UnknownCommand, nil, nil
	}
}

func (s *Server) summariesLocked() []weather.LocationSummary {
	locations := s.sensors.Locations()
	out := make([]weather.LocationSummary, 0, len(locations))
	for _, loc := range locations {
		out = append(out, weather.Summarize(s.sensors, loc))
	}
	return out
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
