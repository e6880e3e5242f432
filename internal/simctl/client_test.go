package simctl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangefix/internal/config"
)

type captured struct {
	method string
	path   string
	body   map[string]interface{}
}

func recorder(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		json.Unmarshal(data, &body)
		reqs = append(reqs, captured{method: r.Method, path: r.URL.Path, body: body})
		w.WriteHeader(status)
		io.WriteString(w, "nope")
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func intp(v int) *int { return &v }

func TestPushRadarUsesPut(t *testing.T) {
	srv, reqs := recorder(t, http.StatusOK)
	c := NewClient(nil, srv.URL+"/", "")

	err := c.PushRadar(context.Background(), RadarParams{RotationSpeed: intp(30), TargetSpeed: intp(5)})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/config", got.path)
	assert.Equal(t, map[string]interface{}{"rotationSpeed": 30.0, "targetSpeed": 5.0}, got.body)
}

func TestPushGPSUsesPost(t *testing.T) {
	srv, reqs := recorder(t, http.StatusNoContent)
	c := NewClient(nil, "", srv.URL)

	err := c.PushGPS(context.Background(), GPSParams{MessageFrequency: intp(2)})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Equal(t, map[string]interface{}{"messageFrequency": 2.0}, (*reqs)[0].body)
}

func TestPushNonSuccessStatus(t *testing.T) {
	srv, _ := recorder(t, http.StatusBadRequest)
	c := NewClient(nil, srv.URL, srv.URL)

	err := c.PushGPS(context.Background(), GPSParams{ObjectSpeed: intp(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "nope")
}

func TestPushNoOps(t *testing.T) {
	srv, reqs := recorder(t, http.StatusOK)

	tests := []struct {
		name string
		c    *Client
		fn   func(*Client) error
	}{
		{"nil client", nil, func(c *Client) error {
			return c.PushRadar(context.Background(), RadarParams{RotationSpeed: intp(1)})
		}},
		{"radar url unset", NewClient(nil, "", srv.URL), func(c *Client) error {
			return c.PushRadar(context.Background(), RadarParams{RotationSpeed: intp(1)})
		}},
		{"gps url unset", NewClient(nil, srv.URL, ""), func(c *Client) error {
			return c.PushGPS(context.Background(), GPSParams{SatelliteSpeed: intp(1)})
		}},
		{"empty params", NewClient(nil, srv.URL, srv.URL), func(c *Client) error {
			return c.PushGPS(context.Background(), GPSParams{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.fn(tt.c))
		})
	}
	assert.Empty(t, *reqs)
}

func TestPushFromTuning(t *testing.T) {
	radar, radarReqs := recorder(t, http.StatusOK)
	gps, gpsReqs := recorder(t, http.StatusOK)
	c := NewClient(nil, radar.URL, gps.URL)

	cfg := config.EmptyTuningConfig()
	cfg.MeasurementsPerRotation = intp(360)
	cfg.SatelliteSpeed = intp(120)

	require.NoError(t, c.Push(context.Background(), cfg))
	require.Len(t, *radarReqs, 1)
	require.Len(t, *gpsReqs, 1)
	assert.Equal(t, map[string]interface{}{"measurementsPerRotation": 360.0}, (*radarReqs)[0].body)
	assert.Equal(t, map[string]interface{}{"satelliteSpeed": 120.0}, (*gpsReqs)[0].body)
}

func TestPushReachesGPSWhenRadarFails(t *testing.T) {
	radar, radarReqs := recorder(t, http.StatusServiceUnavailable)
	gps, gpsReqs := recorder(t, http.StatusOK)
	c := NewClient(nil, radar.URL, gps.URL)

	cfg := config.EmptyTuningConfig()
	cfg.RotationSpeed = intp(6)
	cfg.ObjectSpeed = intp(40)

	err := c.Push(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radar simulator")
	assert.Contains(t, err.Error(), "503")
	assert.NotContains(t, err.Error(), "gps simulator")
	require.Len(t, *radarReqs, 1)
	require.Len(t, *gpsReqs, 1)
	assert.Equal(t, map[string]interface{}{"objectSpeed": 40.0}, (*gpsReqs)[0].body)
}

func TestPushJoinsBothFailures(t *testing.T) {
	radar, _ := recorder(t, http.StatusBadGateway)
	gps, _ := recorder(t, http.StatusServiceUnavailable)
	c := NewClient(nil, radar.URL, gps.URL)

	cfg := config.EmptyTuningConfig()
	cfg.TargetSpeed = intp(3)
	cfg.MessageFrequency = intp(2)

	err := c.Push(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radar simulator")
	assert.Contains(t, err.Error(), "gps simulator")
}

func TestParamsFromTuning(t *testing.T) {
	radar, gps := ParamsFromTuning(config.DefaultTuningConfig())
	assert.True(t, radar.Empty(), "defaults carry no radar cadence")
	assert.True(t, gps.Empty(), "defaults carry no gps cadence")

	radar, gps = ParamsFromTuning(nil)
	assert.True(t, radar.Empty())
	assert.True(t, gps.Empty())
}
