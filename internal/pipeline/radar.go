package pipeline

import (
	"context"
	"sync"

	"github.com/banshee-data/rangefix/internal/config"
	"github.com/banshee-data/rangefix/internal/db"
	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/feed"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/timeutil"
)

// Radar is the radar client: it keeps the most recent located echoes.
type Radar struct {
	mu        sync.Mutex
	track     *echo.Track
	clock     timeutil.Clock
	recorder  Recorder
	collector *monitoring.Collector
}

// NewRadar creates an empty radar pipeline holding at most capacity echoes.
func NewRadar(capacity int, clock timeutil.Clock, recorder Recorder, collector *monitoring.Collector) *Radar {
	return &Radar{
		track:     echo.NewTrack(capacity),
		clock:     clockOrReal(clock),
		recorder:  recorder,
		collector: collector,
	}
}

// HandleLine decodes one scan and appends its echoes.
func (r *Radar) HandleLine(line string) error {
	scan, err := feed.DecodeScan(line)
	if err != nil {
		r.reject(err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	if _, err := r.track.Add(scan, now); err != nil {
		r.reject(err)
		return err
	}
	r.collector.ObserveMeasurement(monitoring.ClientRadar, monitoring.OutcomeAccepted)
	r.collector.SetLiveSources(monitoring.ClientRadar, r.track.Len())

	if r.recorder == nil {
		return nil
	}
	// Add already validated the scan
	if echoes, _ := scan.Echoes(); len(echoes) > 0 {
		recs := make([]db.EchoRecord, len(echoes))
		for i, e := range echoes {
			recs[i] = db.EchoRecord{Range: e.Range, Bearing: e.Bearing, Power: e.Power, ObservedAt: now}
		}
		if err := r.recorder.RecordEchoes(recs); err != nil {
			logf("radar: record echoes: %v", err)
		}
	}
	return nil
}

func (r *Radar) reject(err error) {
	r.collector.ObserveMeasurement(monitoring.ClientRadar, monitoring.OutcomeRejected)
	logf("radar: dropped scan: %v", err)
}

// Latest returns the live echoes, oldest first.
func (r *Radar) Latest() []echo.Echo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.track.Snapshot()
}

// Capacity returns the echo bound in effect.
func (r *Radar) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.track.Capacity()
}

// Configure applies the echo capacity of cfg, trimming the oldest echoes if
// it shrank.
func (r *Radar) Configure(cfg *config.TuningConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track.SetCapacity(cfg.GetEchoCapacity())
	r.collector.SetLiveSources(monitoring.ClientRadar, r.track.Len())
}

// Run consumes f until ctx is done or the feed closes.
func (r *Radar) Run(ctx context.Context, f feed.Feed) error {
	return run(ctx, f, r.HandleLine, nil, nil)
}
