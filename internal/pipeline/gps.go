package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/rangefix/internal/config"
	"github.com/banshee-data/rangefix/internal/db"
	"github.com/banshee-data/rangefix/internal/feed"
	"github.com/banshee-data/rangefix/internal/fusion"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/timeutil"
)

// GPS is the satellite client: it fuses ranging measurements into an object
// position.
type GPS struct {
	mu        sync.Mutex
	driver    *fusion.Driver
	clock     timeutil.Clock
	recorder  Recorder
	collector *monitoring.Collector
	latest    fusion.Update
	recorded  *db.EstimateRecord

	// measuring is set while a measurement is being processed. Only those
	// cycles count towards the estimate metric.
	measuring bool
}

// NewGPS creates an idle GPS pipeline. recorder and collector may be nil.
func NewGPS(cfg fusion.Config, clock timeutil.Clock, recorder Recorder, collector *monitoring.Collector) *GPS {
	g := &GPS{
		clock:     clockOrReal(clock),
		recorder:  recorder,
		collector: collector,
		latest:    fusion.Update{State: fusion.Idle, Sources: []fusion.Satellite{}},
	}
	g.driver = fusion.NewDriver(cfg, fusion.PublisherFunc(g.publish))
	return g
}

// HandleLine decodes and ingests one feed line.
func (g *GPS) HandleLine(line string) error {
	m, err := feed.DecodeSatellite(line)
	if err != nil {
		g.reject(err)
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.measuring = true
	_, err = g.driver.Process(m, g.clock.Now())
	g.measuring = false
	if err != nil {
		g.reject(err)
		return err
	}
	g.collector.ObserveMeasurement(monitoring.ClientGPS, monitoring.OutcomeAccepted)
	return nil
}

func (g *GPS) reject(err error) {
	g.collector.ObserveMeasurement(monitoring.ClientGPS, monitoring.OutcomeRejected)
	logf("gps: dropped measurement: %v", err)
}

// Expire drops stale satellites and refits without a new measurement.
func (g *GPS) Expire() fusion.Update {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Expire(g.clock.Now())
}

// Latest returns the most recent published update.
func (g *GPS) Latest() fusion.Update {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest
}

// Configure applies the satellite staleness window of cfg and re-evaluates
// the live set against it straight away.
func (g *GPS) Configure(cfg *config.TuningConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.driver.SetMaxAge(cfg.GetSatelliteMaxAge())
	g.driver.Expire(g.clock.Now())
}

// MaxAge returns the staleness window in effect.
func (g *GPS) MaxAge() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.driver.Config().MaxAge
}

// Run consumes f until ctx is done, expiring stale satellites every
// expireEvery while the feed is quiet. A non-positive expireEvery disables
// the tick.
func (g *GPS) Run(ctx context.Context, f feed.Feed, expireEvery time.Duration) error {
	var tick timeutil.Ticker
	if expireEvery > 0 {
		tick = g.clock.NewTicker(expireEvery)
	}
	return run(ctx, f, g.HandleLine, tick, func() { g.Expire() })
}

// publish runs inside driver calls, with g.mu held.
func (g *GPS) publish(u fusion.Update) {
	g.latest = u
	g.collector.SetLiveSources(monitoring.ClientGPS, len(u.Sources))
	if u.Err != nil {
		logf("gps: %v", u.Err)
	}
	if g.measuring {
		g.observe(u)
	}
	g.record(u)
}

func (g *GPS) observe(u fusion.Update) {
	switch {
	case u.Err != nil:
		g.collector.ObserveEstimate(monitoring.EstimateNonFinite)
	case u.Degenerate:
		g.collector.ObserveEstimate(monitoring.EstimateDegenerate)
	case u.Estimate != nil:
		g.collector.ObserveEstimate(monitoring.EstimateFused)
	default:
		g.collector.ObserveEstimate(monitoring.EstimateInsufficient)
	}
}

// record writes u unless it repeats the last recorded result.
func (g *GPS) record(u fusion.Update) {
	if g.recorder == nil {
		return
	}
	rec := db.EstimateRecord{
		State:      string(u.State),
		Sources:    len(u.Sources),
		Degenerate: u.Degenerate,
		ObservedAt: g.clock.Now(),
	}
	if u.Estimate != nil {
		x, y := u.Estimate.X, u.Estimate.Y
		rec.X, rec.Y = &x, &y
	}
	if g.recorded != nil && sameEstimate(*g.recorded, rec) {
		return
	}
	if err := g.recorder.RecordEstimate(rec); err != nil {
		logf("gps: %v", fmt.Errorf("record estimate: %w", err))
		return
	}
	g.recorded = &rec
}

func sameEstimate(a, b db.EstimateRecord) bool {
	return a.State == b.State &&
		a.Sources == b.Sources &&
		a.Degenerate == b.Degenerate &&
		sameFloat(a.X, b.X) &&
		sameFloat(a.Y, b.Y)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
