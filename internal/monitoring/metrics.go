package monitoring

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client labels.
const (
	ClientGPS   = "gps"
	ClientRadar = "radar"
)

// Measurement outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Estimate outcomes.
const (
	EstimateFused        = "fused"
	EstimateDegenerate   = "degenerate"
	EstimateInsufficient = "insufficient"
	EstimateNonFinite    = "nonfinite"
)

// Collector bundles the Prometheus metrics of both clients. A nil *Collector
// is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Measurements   *prometheus.CounterVec
	Estimates      *prometheus.CounterVec
	LiveSources    *prometheus.GaugeVec
	FeedReconnects *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	measurements, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangefix_measurements_total",
		Help: "Inbound measurements, labeled by client and outcome (accepted or rejected).",
	}, []string{"client", "outcome"}), "rangefix_measurements_total")
	if err != nil {
		return nil, err
	}

	estimates, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangefix_estimates_total",
		Help: "Fusion cycles triggered by a satellite measurement, labeled by outcome. Expiry ticks are not counted.",
	}, []string{"outcome"}), "rangefix_estimates_total")
	if err != nil {
		return nil, err
	}

	live, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rangefix_live_sources",
		Help: "Entries currently held in each client's recency window.",
	}, []string{"client"}), "rangefix_live_sources")
	if err != nil {
		return nil, err
	}

	reconnects, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangefix_feed_reconnects_total",
		Help: "Push feed reconnect attempts, labeled by feed.",
	}, []string{"feed"}), "rangefix_feed_reconnects_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Measurements:   measurements,
		Estimates:      estimates,
		LiveSources:    live,
		FeedReconnects: reconnects,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveMeasurement counts one inbound measurement.
func (c *Collector) ObserveMeasurement(client, outcome string) {
	if c == nil {
		return
	}
	c.Measurements.WithLabelValues(client, outcome).Inc()
}

// ObserveEstimate counts one fusion cycle.
func (c *Collector) ObserveEstimate(outcome string) {
	if c == nil {
		return
	}
	c.Estimates.WithLabelValues(outcome).Inc()
}

// SetLiveSources records the window size of a client.
func (c *Collector) SetLiveSources(client string, n int) {
	if c == nil {
		return
	}
	c.LiveSources.WithLabelValues(client).Set(float64(n))
}

// ObserveReconnect counts one reconnect attempt of a feed.
func (c *Collector) ObserveReconnect(feed string) {
	if c == nil {
		return
	}
	c.FeedReconnects.WithLabelValues(feed).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
