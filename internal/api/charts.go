package api

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/banshee-data/rangefix/internal/httputil"
	"github.com/banshee-data/rangefix/internal/render"
)

type renderer interface {
	Render(w io.Writer) error
}

func (s *Server) radarChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	maxRange := render.DefaultExtentKm
	if v := r.URL.Query().Get("range"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || math.IsInf(parsed, 0) {
			httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("range must be a positive number of km, got %q", v))
			return
		}
		maxRange = parsed
	}

	writeChart(w, render.RadarChart(s.radar.Latest(), maxRange))
}

func (s *Server) gpsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	u := s.gps.Latest()
	writeChart(w, render.GPSChart(u.Sources, u.Estimate))
}

func (s *Server) gpsMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	u := s.gps.Latest()

	var buf bytes.Buffer
	if err := render.GPSMapPNG(&buf, u.Sources, u.Estimate); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render map: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// writeChart renders into a buffer first so a failure can still be reported
// as JSON.
func writeChart(w http.ResponseWriter, chart renderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
