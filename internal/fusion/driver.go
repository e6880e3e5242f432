package fusion

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/rangefix/internal/trilat"
	"github.com/banshee-data/rangefix/internal/units"
	"github.com/banshee-data/rangefix/internal/window"
)

// MinSources is the number of live sources needed for an estimate.
const MinSources = 3

// State is the driver's position in the fusion lifecycle.
type State string

const (
	Idle         State = "idle"         // no live sources
	Accumulating State = "accumulating" // 1-2 live sources
	Fused        State = "fused"        // 3+ live sources; estimate is nil when the triple has no solution
)

// Estimate is a fused object position in km.
type Estimate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Update is the result published after every processed measurement.
type Update struct {
	State    State       `json:"state"`
	Estimate *Estimate   `json:"estimate"` // nil when no estimate is available
	Sources  []Satellite `json:"satellites"`

	// Degenerate is set when three sources were live but their geometry had
	// no unique solution. State stays Fused and Estimate is nil.
	Degenerate bool `json:"degenerate,omitempty"`
	// Err carries a non-finite solver result. It is the only condition
	// surfaced to consumers; the driver keeps running regardless.
	Err error `json:"-"`
}

// Publisher receives every Update the driver produces.
type Publisher interface {
	Publish(Update)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Update)

// Publish calls f(u).
func (f PublisherFunc) Publish(u Update) { f(u) }

// Config holds the driver's tunables.
type Config struct {
	MaxAge   time.Duration // staleness threshold
	TimeUnit time.Duration // tick length of SentAt/ReceivedAt
	Speed    float64       // propagation speed, km/s
}

// DefaultConfig matches the satellite simulator: millisecond timestamps, a
// 3 s staleness window and light-speed propagation.
func DefaultConfig() Config {
	return Config{
		MaxAge:   3 * time.Second,
		TimeUnit: time.Millisecond,
		Speed:    units.SpeedOfLightKmps,
	}
}

// Driver owns the satellite store and the current estimate.
type Driver struct {
	cfg      Config
	store    *window.Store[Satellite]
	state    State
	estimate *Estimate
	pub      Publisher
}

// NewDriver creates an idle driver. pub may be nil.
func NewDriver(cfg Config, pub Publisher) *Driver {
	def := DefaultConfig()
	if cfg.TimeUnit <= 0 {
		cfg.TimeUnit = def.TimeUnit
	}
	if cfg.Speed <= 0 {
		cfg.Speed = def.Speed
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	return &Driver{
		cfg:   cfg,
		store: window.New[Satellite](window.MaxAge(cfg.MaxAge)),
		state: Idle,
		pub:   pub,
	}
}

// Process ingests one measurement observed at now. A malformed measurement is
// rejected with an error wrapping ErrMalformedMeasurement; the store is left
// unchanged and nothing is published.
func (d *Driver) Process(m Measurement, now time.Time) (Update, error) {
	if err := m.Validate(); err != nil {
		return d.current(), err
	}
	if m.ObservedAt.IsZero() {
		m.ObservedAt = now
	}

	sat := Satellite{
		SourceID:   m.SourceID,
		Position:   m.Position(),
		Range:      trilat.TravelRange(m.SentAt, m.ReceivedAt, d.cfg.TimeUnit, d.cfg.Speed),
		ObservedAt: m.ObservedAt,
	}
	d.store.Upsert(m.SourceID, sat, m.ObservedAt)

	return d.refresh(now), nil
}

// Expire runs the eviction and fusion steps without a new measurement, so
// stale sources drop out while the feed is silent.
func (d *Driver) Expire(now time.Time) Update {
	return d.refresh(now)
}

// SetMaxAge changes the staleness threshold. It takes effect on the next
// Process or Expire call.
func (d *Driver) SetMaxAge(maxAge time.Duration) {
	d.cfg.MaxAge = maxAge
	d.store.SetPolicy(window.MaxAge(maxAge))
}

// Config returns the active configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// State returns the lifecycle state after the last update.
func (d *Driver) State() State {
	return d.state
}

// Estimate returns the current estimate, or nil.
func (d *Driver) Estimate() *Estimate {
	if d.estimate == nil {
		return nil
	}
	e := *d.estimate
	return &e
}

// Sources returns the live satellites in insertion order.
func (d *Driver) Sources() []Satellite {
	entries := d.store.Snapshot()
	out := make([]Satellite, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

func (d *Driver) refresh(now time.Time) Update {
	d.store.Evict(now)
	sources := d.Sources()

	u := Update{Sources: sources}
	switch {
	case len(sources) == 0:
		d.state, d.estimate = Idle, nil
	case len(sources) < MinSources:
		d.state, d.estimate = Accumulating, nil
	default:
		p, err := trilat.Solve(source(sources[0]), source(sources[1]), source(sources[2]))
		switch {
		case err == nil:
			d.state, d.estimate = Fused, &Estimate{X: p.X, Y: p.Y}
		case errors.Is(err, trilat.ErrGeometricDegeneracy):
			d.state, d.estimate = Fused, nil
			u.Degenerate = true
		default:
			d.state, d.estimate = Fused, nil
			u.Err = fmt.Errorf("solve %s/%s/%s: %w",
				sources[0].SourceID, sources[1].SourceID, sources[2].SourceID, err)
		}
	}
	u.State = d.state
	u.Estimate = d.Estimate()

	if d.pub != nil {
		d.pub.Publish(u)
	}
	return u
}

func (d *Driver) current() Update {
	return Update{State: d.state, Estimate: d.Estimate(), Sources: d.Sources()}
}

func source(s Satellite) trilat.Source {
	return trilat.Source{Position: s.Position, Range: s.Range}
}
