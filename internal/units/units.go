// Package units provides shared physical constants and coordinate conversions
// for range and bearing measurements.
package units

import (
	"math"
	"time"
)

// SpeedOfLightKmps is the propagation speed of the ranging signals in km/s.
const SpeedOfLightKmps = 299792.458

// Unit name constants accepted for signal timestamps.
const (
	Seconds      = "s"
	Milliseconds = "ms"
	Microseconds = "us"
	Nanoseconds  = "ns"
)

// ValidTimeUnits contains all valid timestamp unit names
var ValidTimeUnits = []string{Seconds, Milliseconds, Microseconds, Nanoseconds}

// IsValidTimeUnit checks if the given unit is in the list of valid units
func IsValidTimeUnit(unit string) bool {
	for _, u := range ValidTimeUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// TimeUnit returns the duration of one tick of the named unit. Unknown names
// fall back to milliseconds, the unit the satellite feed uses.
func TimeUnit(unit string) time.Duration {
	switch unit {
	case Seconds:
		return time.Second
	case Microseconds:
		return time.Microsecond
	case Nanoseconds:
		return time.Nanosecond
	default:
		return time.Millisecond
	}
}

// RoundTripDistance converts an echo's round-trip time in seconds to the km
// distance of the reflecting target.
func RoundTripDistance(travelSeconds float64) float64 {
	return travelSeconds * SpeedOfLightKmps / 2
}

// BearingToCart converts a range and compass bearing in degrees (clockwise
// from north) to Cartesian coordinates with +Y pointing north.
func BearingToCart(r, bearingDeg float64) (x, y float64) {
	rad := bearingDeg * math.Pi / 180
	return r * math.Sin(rad), r * math.Cos(rad)
}
