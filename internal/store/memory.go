package store

import (
	"sort"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// DefaultSeriesCapacity is the number of readings kept per series.
const DefaultSeriesCapacity = 100

// SensorStore keeps a bounded rolling history of readings per
// (sensor kind, location) pair.
//
// SensorStore is not safe for concurrent use. Its owner serializes every
// call, so an append and the evictions it causes are never observed halfway.
type SensorStore struct {
	// key: sensor kind + location, value: rolling series
	series   map[weather.SeriesKey]*ring[weather.Reading]
	capacity int

	points int // sum of all series lengths
}

// NewSensorStore creates a store keeping at most capacity readings per series.
// A capacity <= 0 selects DefaultSeriesCapacity.
func NewSensorStore(capacity int) *SensorStore {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &SensorStore{
		series:   make(map[weather.SeriesKey]*ring[weather.Reading]),
		capacity: capacity,
	}
}

// Append pushes reading onto the series for (kind, location), creating the
// series on first use and evicting its oldest reading when full.
func (s *SensorStore) Append(kind weather.SensorKind, location string, reading weather.Reading) weather.SeriesKey {
	key := weather.SeriesKey{Kind: kind, Location: location}

	series, ok := s.series[key]
	if !ok {
		series = newRing[weather.Reading](s.capacity)
		s.series[key] = series
	}

	if !series.push(reading) {
		s.points++
	}
	return key
}

// Latest returns the most recent reading for (kind, location).
func (s *SensorStore) Latest(kind weather.SensorKind, location string) (weather.Reading, bool) {
	series, ok := s.series[weather.SeriesKey{Kind: kind, Location: location}]
	if !ok {
		return weather.Reading{}, false
	}
	return series.last()
}

// Recent returns up to n of the newest readings for (kind, location), oldest
// first. n <= 0 returns the whole series.
func (s *SensorStore) Recent(kind weather.SensorKind, location string, n int) []weather.Reading {
	series, ok := s.series[weather.SeriesKey{Kind: kind, Location: location}]
	if !ok {
		return nil
	}
	return series.tail(n)
}

// Locations returns every location with at least one series, sorted.
func (s *SensorStore) Locations() []string {
	seen := make(map[string]struct{})
	locations := make([]string, 0)
	for key := range s.series {
		if _, ok := seen[key.Location]; ok {
			continue
		}
		seen[key.Location] = struct{}{}
		locations = append(locations, key.Location)
	}
	sort.Strings(locations)
	return locations
}

// SeriesCount returns the number of distinct series.
func (s *SensorStore) SeriesCount() int {
	return len(s.series)
}

// DataPoints returns the total number of readings held across all series.
func (s *SensorStore) DataPoints() int {
	return s.points
}

// Capacity returns the per-series bound.
func (s *SensorStore) Capacity() int {
	return s.capacity
}
