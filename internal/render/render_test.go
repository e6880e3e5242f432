package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/fusion"
)

var testSats = []fusion.Satellite{
	{SourceID: "sat-a", Position: r2.Vec{X: 0, Y: 0}, Range: 7.07},
	{SourceID: "sat-b", Position: r2.Vec{X: 10.4, Y: -0.6}, Range: 7.07},
	{SourceID: "sat-c", Position: r2.Vec{X: 0, Y: 10}, Range: 7.07},
}

func TestTargetLines(t *testing.T) {
	got := TargetLines([]echo.Echo{
		{Range: 14.99, Bearing: 30, Power: 0.2},
		{Range: 100, Bearing: 359.6, Power: 0.9},
	})
	want := []string{"Target 1: 15.0 km, 30°", "Target 2: 100.0 km, 360°"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TargetLines mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{NoTargets}, TargetLines(nil))
}

func TestSatelliteLines(t *testing.T) {
	want := []string{"Satellite 1: 0, 0", "Satellite 2: 10, -1", "Satellite 3: 0, 10"}
	if diff := cmp.Diff(want, SatelliteLines(testSats)); diff != "" {
		t.Errorf("SatelliteLines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{NoSignal}, SatelliteLines(nil))
}

func TestPositionLines(t *testing.T) {
	assert.Equal(t, []string{"X: 5.0 km", "Y: -2.3 km"}, PositionLines(&fusion.Estimate{X: 5, Y: -2.26}))
	assert.Equal(t, []string{NotEnoughSatellites}, PositionLines(nil))
}

func TestRadarChartRenders(t *testing.T) {
	chart := RadarChart([]echo.Echo{{Range: 50, Bearing: 90, Power: 0.7}}, 0)

	var buf bytes.Buffer
	require.NoError(t, chart.Render(&buf))
	html := buf.String()
	assert.Contains(t, html, "Radar Echoes")
	assert.Contains(t, html, "echoes=1 range=150 km")
	assert.Contains(t, html, "#fde725")
}

func TestRadarChartEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RadarChart(nil, 80).Render(&buf))
	assert.Contains(t, buf.String(), "echoes=0 range=80 km")
}

func TestGPSChartRenders(t *testing.T) {
	tests := []struct {
		name       string
		estimate   *fusion.Estimate
		wantObject bool
	}{
		{"with estimate", &fusion.Estimate{X: 5, Y: 5}, true},
		{"without estimate", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, GPSChart(testSats, tt.estimate).Render(&buf))
			html := buf.String()
			assert.Contains(t, html, "satellites=3")
			assert.Contains(t, html, "sat-b")
			assert.Equal(t, tt.wantObject, strings.Contains(html, "object=(5.0, 5.0)"))
		})
	}
}

func TestGPSMapPNG(t *testing.T) {
	tests := []struct {
		name     string
		sats     []fusion.Satellite
		estimate *fusion.Estimate
	}{
		{"full", testSats, &fusion.Estimate{X: 5, Y: 5}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, GPSMapPNG(&buf, tt.sats, tt.estimate))
			require.Greater(t, buf.Len(), 8)
			assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), buf.Bytes()[:8])
		})
	}
}
