package weather

// FireRisk is the categorical fire danger derived from temperature,
// rainfall and wind speed.
type FireRisk string

const (
	RiskNoRating     FireRisk = "NO_RATING"
	RiskModerate     FireRisk = "MODERATE"
	RiskHigh         FireRisk = "HIGH"
	RiskExtreme      FireRisk = "EXTREME"
	RiskCatastrophic FireRisk = "CATASTROPHIC"
)

// Dangerous reports whether the risk level triggers a fire danger warning.
func (r FireRisk) Dangerous() bool {
	return r == RiskExtreme || r == RiskCatastrophic
}

// LatestReader is the read side of the sensor store consulted by the engine.
type LatestReader interface {
	Latest(kind SensorKind, location string) (Reading, bool)
}

// RiskScore sums the three independent threshold contributions (0..9).
func RiskScore(temp, rain, wind float64) int {
	score := 0

	switch {
	case temp > 35:
		score += 3
	case temp > 30:
		score += 2
	case temp > 25:
		score += 1
	}

	switch {
	case rain < 5:
		score += 3
	case rain < 15:
		score += 2
	case rain < 30:
		score += 1
	}

	switch {
	case wind > 40:
		score += 3
	case wind > 25:
		score += 2
	case wind > 15:
		score += 1
	}

	return score
}

// RiskForScore maps a risk score to its category.
func RiskForScore(score int) FireRisk {
	switch {
	case score >= 7:
		return RiskCatastrophic
	case score >= 5:
		return RiskExtreme
	case score >= 3:
		return RiskHigh
	case score >= 1:
		return RiskModerate
	default:
		return RiskNoRating
	}
}

// ClassifyFireRisk computes the fire risk from raw values.
func ClassifyFireRisk(temp, rain, wind float64) FireRisk {
	return RiskForScore(RiskScore(temp, rain, wind))
}

// AssessFireRisk computes the fire risk for a location from the latest temp,
// rain and wind readings. Stored fire readings are not consulted. A missing
// input yields RiskNoRating; a non-numeric one contributes nothing to the score.
func AssessFireRisk(r LatestReader, location string) FireRisk {
	in, ok, _ := latestInputs(r, location)
	if !ok {
		return RiskNoRating
	}
	return ClassifyFireRisk(in.Temp, in.Rain, in.Wind)
}

// Summarize builds the latest-value summary for one location.
func Summarize(r LatestReader, location string) LocationSummary {
	summary := LocationSummary{Location: location}
	for _, kind := range SensorKinds {
		reading, ok := r.Latest(kind, location)
		if !ok {
			continue
		}
		switch kind {
		case KindTemp:
			summary.Temp = &reading
		case KindRain:
			summary.Rain = &reading
		case KindWind:
			summary.Wind = &reading
		case KindFire:
			summary.Fire = &reading
		}
	}
	summary.FireRisk = AssessFireRisk(r, location)
	return summary
}
