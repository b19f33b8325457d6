package weather

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a reading value: a finite number when the sensor sent one,
// otherwise the original text as received.
type Value struct {
	num     float64
	raw     string
	numeric bool
}

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value {
	return Value{num: f, raw: strconv.FormatFloat(f, 'f', -1, 64), numeric: true}
}

// ParseValue interprets s as a number when possible and keeps it as opaque
// text otherwise. It never fails.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{raw: s}
	}
	return Value{num: f, raw: s, numeric: true}
}

// Float returns the numeric value and whether the value is numeric.
func (v Value) Float() (float64, bool) {
	return v.num, v.numeric
}

// IsNumeric reports whether the value parsed as a finite number.
func (v Value) IsNumeric() bool {
	return v.numeric
}

// String returns the value as it was received.
func (v Value) String() string {
	return v.raw
}

// MarshalJSON encodes numeric values as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = NumberValue(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = ParseValue(s)
	return nil
}
