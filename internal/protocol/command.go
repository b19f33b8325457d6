// Package protocol implements the comma-delimited text commands exchanged
// with sensors and clients over TCP.
//
// Each line is one command. Fields are separated by commas with no escaping:
//
//	temp,<float>,<location>,<iso-timestamp>
//	rain,<float>,<location>,<iso-timestamp>
//	wind,<float>,<direction>,<location>,<iso-timestamp>
//	fire,<level>,<location>
//	request,<location>
//	status[,<ignored>]
//	history
//	locations
//	location,<location>
//
// Missing optional fields default to location "Central" and the current time.
package protocol

import (
	"fmt"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// Kind is the leading token of a command.
type Kind string

const (
	KindTemp      Kind = "temp"
	KindRain      Kind = "rain"
	KindWind      Kind = "wind"
	KindFire      Kind = "fire"
	KindRequest   Kind = "request"
	KindStatus    Kind = "status"
	KindHistory   Kind = "history"
	KindLocations Kind = "locations"
	KindLocation  Kind = "location"
	KindUnknown   Kind = "unknown"
)

// Ingest reports whether the command stores a sensor reading.
func (k Kind) Ingest() bool {
	switch k {
	case KindTemp, KindRain, KindWind, KindFire:
		return true
	}
	return false
}

// Command is a decoded inbound line.
type Command struct {
	Kind Kind

	// Token is the leading field as received, kept for unknown commands.
	Token string

	// Location is set for ingest commands, request and location.
	Location string

	// Reading is set for ingest commands.
	Reading weather.Reading
}

// SensorKind returns the store series kind of an ingest command.
func (c Command) SensorKind() weather.SensorKind {
	return weather.SensorKind(c.Kind)
}

// ParseError reports a line that could not be decoded into a command.
type ParseError struct {
	Command string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Command == "" {
		return "parse error: " + e.Reason
	}
	return fmt.Sprintf("parse error in %s command: %s", e.Command, e.Reason)
}
