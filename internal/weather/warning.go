package weather

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNonNumeric is returned when a reading needed for a warning carries a
// value that is not a number.
var ErrNonNumeric = errors.New("non-numeric sensor value")

// AllClear is the warning text when no threshold is crossed.
const AllClear = "All Clear"

// InsufficientData returns the response for a location missing any of the
// temp, rain or wind readings.
func InsufficientData(location string) string {
	return "Insufficient data for " + location
}

// WarningLabels returns the ordered warning labels for the given values.
func WarningLabels(temp, rain, wind float64, risk FireRisk) []string {
	labels := make([]string, 0, 4)

	if temp > 35 {
		labels = append(labels, "EXTREME HEAT WARNING")
	} else if temp > 30 {
		labels = append(labels, "HEAT WARNING")
	}

	if rain > 50 {
		labels = append(labels, "HEAVY RAIN WARNING")
	} else if rain > 25 {
		labels = append(labels, "RAIN WARNING")
	}

	if wind > 50 {
		labels = append(labels, "STRONG WIND WARNING")
	} else if wind > 30 {
		labels = append(labels, "WIND WARNING")
	}

	if risk.Dangerous() {
		labels = append(labels, "FIRE DANGER WARNING")
	}

	return labels
}

// EvaluateWarning computes the warning for a location from its latest
// readings. ok is false when any of temp, rain or wind is missing; in that
// case no record is produced. The caller is responsible for recording the
// returned WarningRecord.
//
// A non-numeric input crosses no threshold and is recorded as 0 in the
// snapshot. The record is still returned, together with an error wrapping
// ErrNonNumeric, because the response text cannot be rendered.
func EvaluateWarning(r LatestReader, location string, now time.Time) (WarningRecord, bool, error) {
	in, ok, err := latestInputs(r, location)
	if !ok {
		return WarningRecord{}, false, nil
	}

	risk := ClassifyFireRisk(in.Temp, in.Rain, in.Wind)
	return WarningRecord{
		ID:        uuid.NewString(),
		Location:  location,
		Labels:    WarningLabels(in.Temp, in.Rain, in.Wind, risk),
		FireRisk:  risk,
		Snapshot:  in.finite(),
		Timestamp: now.UTC(),
	}, true, err
}

// Text joins the labels, or returns AllClear when there are none.
func (w WarningRecord) Text() string {
	if len(w.Labels) == 0 {
		return AllClear
	}
	return strings.Join(w.Labels, " | ")
}

// Format renders the response line sent for a request command.
func (w WarningRecord) Format() string {
	return fmt.Sprintf("%s | Fire Risk: %s | Location: %s | Temp: %.1f°C | Rain: %.1fmm | Wind: %.1fkm/h",
		w.Text(), w.FireRisk, w.Location, w.Snapshot.Temp, w.Snapshot.Rain, w.Snapshot.Wind)
}

// latestInputs fetches the three inputs shared by the risk and warning
// computations. ok is false when any reading is absent. A non-numeric
// reading is returned as NaN, which fails every threshold comparison.
func latestInputs(r LatestReader, location string) (WarningSnapshot, bool, error) {
	var in WarningSnapshot
	targets := []struct {
		kind SensorKind
		dst  *float64
	}{
		{KindTemp, &in.Temp},
		{KindRain, &in.Rain},
		{KindWind, &in.Wind},
	}

	var err error
	for _, t := range targets {
		reading, ok := r.Latest(t.kind, location)
		if !ok {
			return WarningSnapshot{}, false, nil
		}
		f, numeric := reading.Value.Float()
		if !numeric {
			f = math.NaN()
			if err == nil {
				err = fmt.Errorf("%w: %s reading %q for %s", ErrNonNumeric, t.kind, reading.Value.String(), location)
			}
		}
		*t.dst = f
	}
	return in, true, err
}

// finite replaces NaN inputs with 0 so the snapshot stays encodable.
func (w WarningSnapshot) finite() WarningSnapshot {
	for _, v := range []*float64{&w.Temp, &w.Rain, &w.Wind} {
		if math.IsNaN(*v) {
			*v = 0
		}
	}
	return w
}
