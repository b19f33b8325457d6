package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReader map[SeriesKey]Reading

func (f fakeReader) Latest(kind SensorKind, location string) (Reading, bool) {
	r, ok := f[SeriesKey{Kind: kind, Location: location}]
	return r, ok
}

func (f fakeReader) set(kind SensorKind, location string, v Value) {
	f[SeriesKey{Kind: kind, Location: location}] = Reading{Value: v, Location: location}
}

func TestRiskScoreThresholds(t *testing.T) {
	tests := []struct {
		name             string
		temp, rain, wind float64
		want             int
	}{
		{"all calm", 20, 40, 10, 0},
		{"boundaries are exclusive", 25, 30, 15, 0},
		{"just over low thresholds", 25.1, 29.9, 15.1, 3},
		{"middle band", 31, 10, 30, 6},
		{"top band", 36, 4, 41, 9},
		{"temp 30 stays in low band", 30, 30, 0, 1},
		{"rain 5 is second band", 0, 5, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskScore(tt.temp, tt.rain, tt.wind))
		})
	}
}

func TestRiskForScore(t *testing.T) {
	want := map[int]FireRisk{
		0: RiskNoRating,
		1: RiskModerate,
		2: RiskModerate,
		3: RiskHigh,
		4: RiskHigh,
		5: RiskExtreme,
		6: RiskExtreme,
		7: RiskCatastrophic,
		9: RiskCatastrophic,
	}
	for score, risk := range want {
		assert.Equal(t, risk, RiskForScore(score), "score %d", score)
	}
}

func TestRiskScoreMonotonicInTemperature(t *testing.T) {
	for _, rain := range []float64{0, 4.9, 10, 20, 45} {
		for _, wind := range []float64{0, 16, 26, 41} {
			prev := RiskScore(-10, rain, wind)
			for temp := -10.0; temp <= 50; temp += 0.5 {
				got := RiskScore(temp, rain, wind)
				assert.GreaterOrEqual(t, got, prev, "temp=%v rain=%v wind=%v", temp, rain, wind)
				prev = got
			}
		}
	}
}

func TestAssessFireRiskNeedsAllInputs(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Sydney", NumberValue(40))
	r.set(KindRain, "Sydney", NumberValue(0))
	assert.Equal(t, RiskNoRating, AssessFireRisk(r, "Sydney"))

	r.set(KindWind, "Sydney", NumberValue(50))
	assert.Equal(t, RiskCatastrophic, AssessFireRisk(r, "Sydney"))
}

func TestAssessFireRiskIgnoresFireReadings(t *testing.T) {
	r := fakeReader{}
	r.set(KindFire, "Perth", ParseValue("CATASTROPHIC"))
	r.set(KindTemp, "Perth", NumberValue(10))
	r.set(KindRain, "Perth", NumberValue(80))
	r.set(KindWind, "Perth", NumberValue(5))

	assert.Equal(t, RiskNoRating, AssessFireRisk(r, "Perth"))
}

func TestAssessFireRiskNonNumeric(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Hobart", ParseValue("hot"))
	r.set(KindRain, "Hobart", NumberValue(0))
	r.set(KindWind, "Hobart", NumberValue(50))

	// Temperature adds nothing; dry and windy still score 6.
	assert.Equal(t, RiskExtreme, AssessFireRisk(r, "Hobart"))

	r.set(KindRain, "Hobart", ParseValue("n/a"))
	r.set(KindWind, "Hobart", ParseValue("calm"))
	assert.Equal(t, RiskNoRating, AssessFireRisk(r, "Hobart"))
}

func TestSummarize(t *testing.T) {
	r := fakeReader{}
	r.set(KindTemp, "Sydney", NumberValue(22.5))

	s := Summarize(r, "Sydney")
	assert.Equal(t, "Sydney", s.Location)
	if assert.NotNil(t, s.Temp) {
		v, ok := s.Temp.Value.Float()
		assert.True(t, ok)
		assert.Equal(t, 22.5, v)
	}
	assert.Nil(t, s.Rain)
	assert.Nil(t, s.Wind)
	assert.Nil(t, s.Fire)
	assert.Equal(t, RiskNoRating, s.FireRisk)
}
