package weather

import (
	"time"
)

// SensorKind identifies the family of a sensor reading.
type SensorKind string

const (
	KindTemp SensorKind = "temp"
	KindRain SensorKind = "rain"
	KindWind SensorKind = "wind"
	KindFire SensorKind = "fire"
)

// SensorKinds lists every kind in the order summaries report them.
var SensorKinds = []SensorKind{KindTemp, KindRain, KindWind, KindFire}

// Valid reports whether k is one of the known sensor kinds.
func (k SensorKind) Valid() bool {
	switch k {
	case KindTemp, KindRain, KindWind, KindFire:
		return true
	}
	return false
}

// DefaultLocation is used when a command does not name a location.
const DefaultLocation = "Central"

// TimestampLayout is the ISO-8601 layout used for generated timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SeriesKey identifies one rolling series of readings.
// Locations are matched exactly; callers normalize them before building a key.
type SeriesKey struct {
	Kind     SensorKind
	Location string
}

// String returns a canonical string key, used in events and logs.
func (k SeriesKey) String() string {
	return string(k.Kind) + ":" + k.Location
}

// Reading is a single sensor observation. Readings are never mutated after
// creation; Extra must not be modified once the reading is stored.
type Reading struct {
	Value     Value             `json:"value"`
	Location  string            `json:"location"`
	Timestamp string            `json:"timestamp"` // ISO-8601, as reported by the sensor
	Extra     map[string]string `json:"additionalData"`
}

// WarningSnapshot holds the raw inputs a warning was computed from.
type WarningSnapshot struct {
	Temp float64 `json:"temp"`
	Rain float64 `json:"rain"`
	Wind float64 `json:"wind"`
}

// WarningRecord is one generated warning. Created on every request query and
// appended to the warning history.
type WarningRecord struct {
	ID        string          `json:"id"`
	Location  string          `json:"location"`
	Labels    []string        `json:"warnings"`
	FireRisk  FireRisk        `json:"fireRisk"`
	Snapshot  WarningSnapshot `json:"sensorData"`
	Timestamp time.Time       `json:"timestamp"` // always UTC
}

// LocationSummary is the latest state of every sensor at one location.
// Sensors without data are omitted.
type LocationSummary struct {
	Location string   `json:"location"`
	Temp     *Reading `json:"temp,omitempty"`
	Rain     *Reading `json:"rain,omitempty"`
	Wind     *Reading `json:"wind,omitempty"`
	Fire     *Reading `json:"fire,omitempty"`
	FireRisk FireRisk `json:"fireRisk"`
}
