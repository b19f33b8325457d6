package events

import (
	"log/slog"
	"strings"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// LogObserver writes events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an observer logging through logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "monitor")}
}

func (o *LogObserver) Notify(e Event) {
	switch p := e.Payload.(type) {
	case PerformancePayload:
		o.logger.Info("performance",
			"connections", p.ActiveConnections,
			"data_points", p.DataPointsStored,
			"rps", p.RequestsPerSecond,
			"avg_response_ms", p.AverageResponseTime)
	case ClientPayload:
		switch e.Type {
		case ClientConnected:
			o.logger.Info("client connected", "client", p.ClientID, "remote", p.RemoteAddr, "total", p.Connections)
		case ClientDisconnected:
			o.logger.Info("client disconnected", "client", p.ClientID, "remaining", p.Connections)
		case ClientError:
			o.logger.Warn("client error", "client", p.ClientID, "error", p.Error)
		}
	case DataStoredPayload:
		o.logger.Debug("data stored", "key", p.Key, "value", p.Reading.Value.String())
	case RequestPayload:
		o.logger.Debug("request processed", "client", p.ClientID, "command", p.Command, "duration", p.ResponseTime)
	case weather.WarningRecord:
		o.logger.Info("warning generated",
			"location", p.Location,
			"warnings", strings.Join(p.Labels, ", "),
			"fire_risk", p.FireRisk)
	default:
		o.logger.Debug("event", "type", e.Type)
	}
}
