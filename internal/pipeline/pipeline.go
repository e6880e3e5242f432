// Package pipeline runs the two sensor clients. Each pipeline consumes one
// feed and processes its measurements one at a time to completion; the GPS
// and radar pipelines share no state.
package pipeline

import (
	"context"
	"time"

	"github.com/banshee-data/rangefix/internal/db"
	"github.com/banshee-data/rangefix/internal/feed"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/timeutil"
)

// Recorder persists published results. *db.DB implements it.
type Recorder interface {
	RecordEstimate(db.EstimateRecord) error
	RecordEchoes([]db.EchoRecord) error
}

var _ Recorder = (*db.DB)(nil)

var logf = monitoring.Component("pipeline")

// run subscribes to f and hands every line to handle until ctx is done or the
// feed closes the subscription. When tick is non-nil its ticks call onTick.
func run(ctx context.Context, f feed.Feed, handle func(string) error, tick timeutil.Ticker, onTick func()) error {
	id, lines := f.Subscribe()
	defer f.Unsubscribe(id)

	var ticks <-chan time.Time
	if tick != nil {
		defer tick.Stop()
		ticks = tick.C()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			// malformed input is logged and counted by handle
			_ = handle(line)
		case <-ticks:
			onTick()
		}
	}
}

func clockOrReal(c timeutil.Clock) timeutil.Clock {
	if c == nil {
		return timeutil.RealClock{}
	}
	return c
}
