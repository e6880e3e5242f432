package api

import (
	"fmt"
	"net/http"

	"github.com/banshee-data/rangefix/internal/config"
	"github.com/banshee-data/rangefix/internal/fusion"
	"github.com/banshee-data/rangefix/internal/httputil"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/render"
)

const defaultHistoryLimit = 100

// gpsResponse is the body of GET /api/gps.
type gpsResponse struct {
	State         fusion.State       `json:"state"`
	Estimate      *fusion.Estimate   `json:"estimate"`
	Satellites    []fusion.Satellite `json:"satellites"`
	Degenerate    bool               `json:"degenerate"`
	Error         string             `json:"error,omitempty"`
	PositionText  []string           `json:"position_text"`
	SatelliteText []string           `json:"satellite_text"`
}

type target struct {
	Range   float64 `json:"range_km"`
	Bearing float64 `json:"bearing_deg"`
	Power   float64 `json:"power"`
	X       float64 `json:"x_km"`
	Y       float64 `json:"y_km"`
}

// radarResponse is the body of GET /api/radar.
type radarResponse struct {
	Capacity   int      `json:"capacity"`
	Targets    []target `json:"targets"`
	TargetText []string `json:"target_text"`
}

func (s *Server) showGPS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	u := s.gps.Latest()
	sats := u.Sources
	if sats == nil {
		sats = []fusion.Satellite{}
	}
	resp := gpsResponse{
		State:         u.State,
		Estimate:      u.Estimate,
		Satellites:    sats,
		Degenerate:    u.Degenerate,
		PositionText:  render.PositionLines(u.Estimate),
		SatelliteText: render.SatelliteLines(sats),
	}
	if u.Err != nil {
		resp.Error = u.Err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) showRadar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	echoes := s.radar.Latest()
	targets := make([]target, len(echoes))
	for i, e := range echoes {
		x, y := e.Cartesian()
		targets[i] = target{Range: e.Range, Bearing: e.Bearing, Power: e.Power, X: x, Y: y}
	}
	httputil.WriteJSON(w, http.StatusOK, radarResponse{
		Capacity:   s.radar.Capacity(),
		Targets:    targets,
		TargetText: render.TargetLines(echoes),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSON(w, http.StatusOK, s.Config())
	case http.MethodPut:
		s.updateConfig(w, r)
	default:
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// updateConfig merges a partial configuration, applies it to both pipelines
// and forwards the simulator cadence fields of the update.
func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	update := config.EmptyTuningConfig()
	if err := httputil.DecodeJSON(w, r, update); err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := update.Validate(); err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.cfgMu.Lock()
	merged := s.cfg.Clone()
	merged.Merge(update)
	s.gps.Configure(merged)
	s.radar.Configure(merged)
	s.cfg = merged
	s.cfgMu.Unlock()

	monitoring.Logf("config updated: echo_capacity=%d satellite_max_age=%s",
		merged.GetEchoCapacity(), merged.GetSatelliteMaxAge())

	if err := s.sims.Push(r.Context(), update); err != nil {
		monitoring.Logf("config forward failed: %v", err)
		httputil.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":  fmt.Sprintf("applied locally but forwarding failed: %v", err),
			"config": merged.Clone(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, merged.Clone())
}

func (s *Server) listEstimates(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyLimit(w, r)
	if !ok {
		return
	}
	recs, err := s.history.RecentEstimates(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read estimates: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

func (s *Server) listEchoes(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyLimit(w, r)
	if !ok {
		return
	}
	recs, err := s.history.RecentEchoes(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read echoes: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recs)
}

// historyLimit checks the method and history store and parses ?limit=. The
// store caps the limit at db.MaxHistory. It writes the error response itself
// when it returns false.
func (s *Server) historyLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return 0, false
	}
	if s.history == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "history is not enabled")
		return 0, false
	}
	limit, err := httputil.QueryInt(r, "limit", defaultHistoryLimit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return limit, true
}
