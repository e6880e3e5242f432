// Package api serves the live state of both clients over HTTP.
package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/rangefix/internal/config"
	"github.com/banshee-data/rangefix/internal/db"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/pipeline"
	"github.com/banshee-data/rangefix/internal/simctl"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// History reads back recorded results. *db.DB implements it.
type History interface {
	RecentEstimates(limit int) ([]db.EstimateRecord, error)
	RecentEchoes(limit int) ([]db.EchoRecord, error)
}

var _ History = (*db.DB)(nil)

// Options carries the optional collaborators of a Server.
type Options struct {
	History    History
	Simulators *simctl.Client
	Metrics    *monitoring.Collector
}

type Server struct {
	gps     *pipeline.GPS
	radar   *pipeline.Radar
	history History
	sims    *simctl.Client
	metrics *monitoring.Collector

	cfgMu sync.Mutex
	cfg   *config.TuningConfig
}

// NewServer serves gps and radar. cfg is the configuration both pipelines
// were built from; nil means the defaults.
func NewServer(gps *pipeline.GPS, radar *pipeline.Radar, cfg *config.TuningConfig, o Options) *Server {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Server{
		gps:     gps,
		radar:   radar,
		history: o.History,
		sims:    o.Simulators,
		metrics: o.Metrics,
		cfg:     cfg.Clone(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gps", s.showGPS)
	mux.HandleFunc("/api/radar", s.showRadar)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/history/estimates", s.listEstimates)
	mux.HandleFunc("/api/history/echoes", s.listEchoes)
	mux.HandleFunc("/charts/radar", s.radarChart)
	mux.HandleFunc("/charts/gps", s.gpsChart)
	mux.HandleFunc("/charts/gps.png", s.gpsMap)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Config returns a copy of the configuration in effect.
func (s *Server) Config() *config.TuningConfig {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.cfg.Clone()
}
