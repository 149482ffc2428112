package airquality

import "math"

// Breakpoints of the simplified PM-based index. The map is a display-only
// approximation, not the official EPA/CPCB breakpoint table: piecewise
// linear and monotonically increasing, with fixed values at the band edges
// (12 -> 25, 35.4 -> 100, 55.4 -> 200).
const (
	breakLow  = 12.0
	breakMid  = 35.4
	breakHigh = 55.4
)

// ComputeIndex derives the simplified AQI from a measurement list.
// PM2.5 is used if present, otherwise PM10; no other pollutant substitutes.
// Returns nil when neither reading exists.
func ComputeIndex(measurements []Measurement) *int {
	v, ok := pmValue(measurements)
	if !ok {
		return nil
	}

	var idx int
	switch {
	case v <= breakLow:
		idx = roundHalfUp(25 * v / breakLow)
	case v <= breakMid:
		idx = roundHalfUp(50 + 50*(v-breakLow)/(breakMid-breakLow))
	case v <= breakHigh:
		idx = roundHalfUp(100 + 100*(v-breakMid)/(breakHigh-breakMid))
	default:
		idx = roundHalfUp(200 + 200*(v-breakHigh)/100)
	}
	return &idx
}

// pmValue returns the first PM2.5 value, falling back to the first PM10
// value. Providers may emit duplicate parameters; the first occurrence wins.
func pmValue(measurements []Measurement) (float64, bool) {
	var pm10 float64
	havePM10 := false

	for _, m := range measurements {
		switch m.Parameter {
		case "pm25":
			return m.Value, true
		case "pm10":
			if !havePM10 {
				pm10 = m.Value
				havePM10 = true
			}
		}
	}
	return pm10, havePM10
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
