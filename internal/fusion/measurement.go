package fusion

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrMalformedMeasurement is returned for measurements that cannot be used:
// a missing source id, non-finite coordinates or timestamps, or a signal that
// arrived before it was sent.
var ErrMalformedMeasurement = errors.New("malformed measurement")

// Measurement is one ranging sample from a satellite as it arrives on the feed.
// Positions are in km; SentAt and ReceivedAt are in the driver's time unit.
type Measurement struct {
	SourceID   string    `json:"id"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	SentAt     float64   `json:"sentAt"`
	ReceivedAt float64   `json:"receivedAt"`
	ObservedAt time.Time `json:"-"` // local ingestion time
}

// Validate reports whether the measurement can be ingested.
func (m Measurement) Validate() error {
	if m.SourceID == "" {
		return fmt.Errorf("%w: source id is required", ErrMalformedMeasurement)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"x", m.X},
		{"y", m.Y},
		{"sentAt", m.SentAt},
		{"receivedAt", m.ReceivedAt},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedMeasurement, f.name)
		}
	}
	if m.ReceivedAt < m.SentAt {
		return fmt.Errorf("%w: receivedAt %v before sentAt %v", ErrMalformedMeasurement, m.ReceivedAt, m.SentAt)
	}
	return nil
}

// Position returns the satellite location at emission time.
func (m Measurement) Position() r2.Vec {
	return r2.Vec{X: m.X, Y: m.Y}
}

// Satellite is a live ranging source held by the driver, with its range
// derived once at ingest.
type Satellite struct {
	SourceID   string    `json:"id"`
	Position   r2.Vec    `json:"position"`
	Range      float64   `json:"range_km"`
	ObservedAt time.Time `json:"observed_at"`
}
