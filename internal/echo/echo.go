// Package echo keeps the recent radar echoes of a rotating scanner.
//
// Every echo of every scan becomes a new entry; echoes carry no identity and
// are never merged. The track is capacity-bounded and drops the oldest echoes
// first.
package echo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/rangefix/internal/units"
	"github.com/banshee-data/rangefix/internal/window"
)

// DefaultCapacity is the number of echoes kept on screen.
const DefaultCapacity = 8

// ErrMalformedEcho is returned for responses with negative or non-finite
// travel time, or a non-finite angle or power.
var ErrMalformedEcho = errors.New("malformed echo")

// Response is one reflection reported for a scan.
type Response struct {
	Time  float64 `json:"time"` // round-trip time, seconds
	Power float64 `json:"power"`
}

// Scan is one radar message: the antenna bearing and the reflections heard
// at that bearing. A message without echoResponses may carry a single
// reflection in the flat Time/Power fields.
type Scan struct {
	ScanAngle float64    `json:"scanAngle"` // degrees
	Responses []Response `json:"echoResponses"`

	Time  *float64 `json:"time,omitempty"`
	Power *float64 `json:"power,omitempty"`
}

// Echo is a located reflection.
type Echo struct {
	Range   float64 `json:"range_km"`
	Bearing float64 `json:"bearing_deg"`
	Power   float64 `json:"power"`
}

// Cartesian returns the echo position in km with +Y north and bearings
// measured clockwise.
func (e Echo) Cartesian() (x, y float64) {
	return units.BearingToCart(e.Range, e.Bearing)
}

// Echoes converts the scan's responses to located echoes.
func (s Scan) Echoes() ([]Echo, error) {
	if !finite(s.ScanAngle) {
		return nil, fmt.Errorf("%w: scan angle is not finite", ErrMalformedEcho)
	}

	responses := s.Responses
	if len(responses) == 0 && s.Time != nil {
		r := Response{Time: *s.Time}
		if s.Power != nil {
			r.Power = *s.Power
		}
		responses = []Response{r}
	}

	out := make([]Echo, 0, len(responses))
	for i, r := range responses {
		if !finite(r.Time) || r.Time < 0 {
			return nil, fmt.Errorf("%w: response %d has time %v", ErrMalformedEcho, i, r.Time)
		}
		if !finite(r.Power) {
			return nil, fmt.Errorf("%w: response %d power is not finite", ErrMalformedEcho, i)
		}
		out = append(out, Echo{
			Range:   units.RoundTripDistance(r.Time),
			Bearing: s.ScanAngle,
			Power:   r.Power,
		})
	}
	return out, nil
}

// Track is the capacity-bounded echo history of one radar client.
type Track struct {
	store *window.Store[Echo]
}

// NewTrack creates an empty track keeping at most capacity echoes.
func NewTrack(capacity int) *Track {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Track{store: window.New[Echo](window.Capacity(capacity))}
}

// Add appends every echo of the scan and returns the live track. A malformed
// scan is rejected whole and leaves the track unchanged.
func (t *Track) Add(scan Scan, now time.Time) ([]Echo, error) {
	echoes, err := scan.Echoes()
	if err != nil {
		return t.Snapshot(), err
	}
	for _, e := range echoes {
		t.store.Append(e, now)
	}
	return t.Snapshot(), nil
}

// Snapshot returns the live echoes, oldest first.
func (t *Track) Snapshot() []Echo {
	entries := t.store.Snapshot()
	out := make([]Echo, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

// Len returns the number of live echoes.
func (t *Track) Len() int {
	return t.store.Len()
}

// Capacity returns the current bound.
func (t *Track) Capacity() int {
	return int(t.store.Policy().(window.Capacity))
}

// SetCapacity changes the bound and trims the oldest echoes immediately.
func (t *Track) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	t.store.SetPolicy(window.Capacity(capacity))
	t.store.Evict(time.Time{})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
