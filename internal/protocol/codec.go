package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// UnknownCommand is the response to an unrecognized leading token.
const UnknownCommand = "Unknown command"

// OK acknowledges a stored reading.
const OK = "ok"

// Decode parses one command line. now supplies the timestamp for readings
// that omit one. Decode has no side effects.
//
// An unrecognized leading token is not an error: it decodes to KindUnknown.
// Non-numeric values are carried as opaque text.
func Decode(line []byte, now time.Time) (Command, error) {
	line = bytes.TrimSpace(line)
	if !utf8.Valid(line) {
		return Command{}, &ParseError{Reason: "line is not valid UTF-8"}
	}

	parts := strings.Split(string(line), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	token := parts[0]
	cmd := Command{Kind: Kind(token), Token: token}

	switch cmd.Kind {
	case KindTemp, KindRain:
		// temp,<value>,<location>,<timestamp>
		if err := decodeReading(&cmd, parts, 2, 3, now); err != nil {
			return Command{}, err
		}

	case KindWind:
		// wind,<value>,<direction>,<location>,<timestamp>
		if err := decodeReading(&cmd, parts, 3, 4, now); err != nil {
			return Command{}, err
		}
		if dir := field(parts, 2); dir != "" {
			cmd.Reading.Extra["direction"] = dir
		}

	case KindFire:
		// fire,<level>,<location>
		if err := decodeReading(&cmd, parts, 2, -1, now); err != nil {
			return Command{}, err
		}

	case KindRequest, KindLocation:
		cmd.Location = orDefault(field(parts, 1), weather.DefaultLocation)

	case KindStatus, KindHistory, KindLocations:
		// Trailing arguments are ignored.

	default:
		cmd.Kind = KindUnknown
	}

	return cmd, nil
}

func decodeReading(cmd *Command, parts []string, locIdx, tsIdx int, now time.Time) error {
	raw := field(parts, 1)
	if raw == "" {
		return &ParseError{Command: cmd.Token, Reason: "missing value"}
	}

	cmd.Location = orDefault(field(parts, locIdx), weather.DefaultLocation)

	ts := weather.FormatTimestamp(now)
	if tsIdx >= 0 {
		ts = orDefault(field(parts, tsIdx), ts)
	}

	cmd.Reading = weather.Reading{
		Value:     weather.ParseValue(raw),
		Location:  cmd.Location,
		Timestamp: ts,
		Extra:     map[string]string{},
	}
	return nil
}

func field(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// EncodeJSON serializes a structured response.
func EncodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeError renders an error response. The connection stays open.
func EncodeError(err error) string {
	return "Error: " + err.Error()
}
