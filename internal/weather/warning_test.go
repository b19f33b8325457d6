package weather

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 3, 0, time.UTC)

func TestWarningLabels(t *testing.T) {
	tests := []struct {
		name             string
		temp, rain, wind float64
		risk             FireRisk
		want             []string
	}{
		{"nothing", 20, 10, 10, RiskModerate, []string{}},
		{"heat", 31, 0, 0, RiskHigh, []string{"HEAT WARNING"}},
		{"extreme heat", 36, 0, 0, RiskHigh, []string{"EXTREME HEAT WARNING"}},
		{"rain", 0, 26, 0, RiskNoRating, []string{"RAIN WARNING"}},
		{"heavy rain", 0, 51, 0, RiskNoRating, []string{"HEAVY RAIN WARNING"}},
		{"wind", 0, 40, 31, RiskModerate, []string{"WIND WARNING"}},
		{"strong wind", 0, 40, 51, RiskModerate, []string{"STRONG WIND WARNING"}},
		{
			"everything", 36, 51, 51, RiskExtreme,
			[]string{"EXTREME HEAT WARNING", "HEAVY RAIN WARNING", "STRONG WIND WARNING", "FIRE DANGER WARNING"},
		},
		{"fire only", 26, 3, 45, RiskCatastrophic, []string{"WIND WARNING", "FIRE DANGER WARNING"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WarningLabels(tt.temp, tt.rain, tt.wind, tt.risk))
		})
	}
}

func TestEvaluateWarningInsufficientIffInputMissing(t *testing.T) {
	kinds := []SensorKind{KindTemp, KindRain, KindWind}

	// Every subset of the three inputs; only the full set produces a record.
	for mask := 0; mask < 8; mask++ {
		r := fakeReader{}
		for i, kind := range kinds {
			if mask&(1<<i) != 0 {
				r.set(kind, "Darwin", NumberValue(10))
			}
		}

		_, ok, err := EvaluateWarning(r, "Darwin", testNow)
		require.NoError(t, err)
		assert.Equal(t, mask == 7, ok, "mask %03b", mask)
	}
}

func TestEvaluateWarningMelbourne(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Melbourne", ParseValue("28.4"))
	r.set(KindRain, "Melbourne", ParseValue("3.0"))
	r.set(KindWind, "Melbourne", ParseValue("45.0"))

	rec, ok, err := EvaluateWarning(r, "Melbourne", testNow)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, RiskCatastrophic, rec.FireRisk)
	assert.Equal(t, []string{"WIND WARNING", "FIRE DANGER WARNING"}, rec.Labels)
	assert.Equal(t, testNow, rec.Timestamp)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t,
		"WIND WARNING | FIRE DANGER WARNING | Fire Risk: CATASTROPHIC | Location: Melbourne | Temp: 28.4°C | Rain: 3.0mm | Wind: 45.0km/h",
		rec.Format())
}

func TestEvaluateWarningAllClear(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Ballarat", NumberValue(12))
	r.set(KindRain, "Ballarat", NumberValue(40))
	r.set(KindWind, "Ballarat", NumberValue(3.2))

	rec, ok, err := EvaluateWarning(r, "Ballarat", testNow)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, AllClear, rec.Text())
	assert.Equal(t, "All Clear | Fire Risk: NO_RATING | Location: Ballarat | Temp: 12.0°C | Rain: 40.0mm | Wind: 3.2km/h", rec.Format())
}

func TestEvaluateWarningNonNumeric(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Alice Springs", NumberValue(40))
	r.set(KindRain, "Alice Springs", ParseValue("dry"))
	r.set(KindWind, "Alice Springs", NumberValue(10))

	rec, ok, err := EvaluateWarning(r, "Alice Springs", testNow)
	assert.True(t, ok)
	assert.True(t, errors.Is(err, ErrNonNumeric))

	// The record is still produced; rain crosses no threshold.
	assert.Equal(t, "Alice Springs", rec.Location)
	assert.Equal(t, []string{"EXTREME HEAT WARNING"}, rec.Labels)
	assert.Equal(t, RiskHigh, rec.FireRisk)
	assert.Equal(t, WarningSnapshot{Temp: 40, Rain: 0, Wind: 10}, rec.Snapshot)

	_, err = json.Marshal(rec)
	assert.NoError(t, err)
}

func TestWarningRecordJSON(t *testing.T) {
	rec := WarningRecord{
		ID:        "abc",
		Location:  "Geelong",
		Labels:    []string{},
		FireRisk:  RiskHigh,
		Snapshot:  WarningSnapshot{Temp: 31, Rain: 12, Wind: 5},
		Timestamp: testNow,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "abc",
		"location": "Geelong",
		"warnings": [],
		"fireRisk": "HIGH",
		"sensorData": {"temp": 31, "rain": 12, "wind": 5},
		"timestamp": "2024-01-01T00:00:03Z"
	}`, string(data))
}
