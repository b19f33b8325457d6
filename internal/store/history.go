package store

import (
	"time"

	"github.com/i474232898/weather-warning-service/internal/weather"
)

// DefaultWarningCapacity is the number of warnings kept in the history.
const DefaultWarningCapacity = 200

// WarningHistory is a bounded log of generated warnings, oldest evicted first.
// Like SensorStore it relies on its owner for synchronization.
type WarningHistory struct {
	records *ring[weather.WarningRecord]
}

// NewWarningHistory creates a history holding at most capacity records.
// A capacity <= 0 selects DefaultWarningCapacity.
func NewWarningHistory(capacity int) *WarningHistory {
	if capacity <= 0 {
		capacity = DefaultWarningCapacity
	}
	return &WarningHistory{records: newRing[weather.WarningRecord](capacity)}
}

// Append records a warning, evicting the oldest one beyond capacity.
func (h *WarningHistory) Append(record weather.WarningRecord) {
	h.records.push(record)
}

// Recent returns the last n records in insertion order.
func (h *WarningHistory) Recent(n int) []weather.WarningRecord {
	if n <= 0 {
		return []weather.WarningRecord{}
	}
	return h.records.tail(n)
}

// WithinLast returns the records whose timestamp is less than d before now.
func (h *WarningHistory) WithinLast(d time.Duration, now time.Time) []weather.WarningRecord {
	cutoff := now.Add(-d)
	out := make([]weather.WarningRecord, 0)
	for i := 0; i < h.records.len(); i++ {
		rec := h.records.at(i)
		if rec.Timestamp.After(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of records held.
func (h *WarningHistory) Len() int {
	return h.records.len()
}
