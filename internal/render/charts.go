// Package render draws the live state of both clients: echarts HTML pages,
// a PNG map, and the plain-text target and satellite lists.
package render

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/fusion"
)

// DefaultExtentKm is the half-width of both displays.
const DefaultExtentKm = 150.0

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RadarChart renders echoes as a polar scatter projected to XY, north up and
// bearings clockwise, colored by echo power. maxRange bounds both axes; a
// non-positive value uses DefaultExtentKm.
func RadarChart(echoes []echo.Echo, maxRange float64) *charts.Scatter {
	if maxRange <= 0 {
		maxRange = DefaultExtentKm
	}

	maxPower := 0.0
	data := make([]opts.ScatterData, 0, len(echoes))
	for _, e := range echoes {
		x, y := e.Cartesian()
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("%.1f km, %.0f°", e.Range, e.Bearing),
			Value: []interface{}{x, y, e.Power},
		})
		maxPower = math.Max(maxPower, e.Power)
	}
	if maxPower == 0 {
		maxPower = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Radar", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Radar Echoes", Subtitle: fmt.Sprintf("echoes=%d range=%g km", len(data), maxRange)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -maxRange, Max: maxRange, Name: "East (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -maxRange, Max: maxRange, Name: "North (km)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxPower),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("echoes", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}

// GPSChart renders the live satellites and, when present, the fused object
// position on a fixed DefaultExtentKm grid.
func GPSChart(sats []fusion.Satellite, estimate *fusion.Estimate) *charts.Scatter {
	satData := make([]opts.ScatterData, 0, len(sats))
	for _, s := range sats {
		satData = append(satData, opts.ScatterData{
			Name:   s.SourceID,
			Value:  []interface{}{s.Position.X, s.Position.Y},
			Symbol: "diamond",
		})
	}

	subtitle := fmt.Sprintf("satellites=%d", len(sats))
	if estimate != nil {
		subtitle += fmt.Sprintf(" object=(%.1f, %.1f)", estimate.X, estimate.Y)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "GPS", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Satellite Fix", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -DefaultExtentKm, Max: DefaultExtentKm, Name: "X (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -DefaultExtentKm, Max: DefaultExtentKm, Name: "Y (km)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("satellites", satData,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#00ff00"}))

	if estimate != nil {
		scatter.AddSeries("object", []opts.ScatterData{{Name: "object", Value: []interface{}{estimate.X, estimate.Y}}},
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff0000"}))
	}
	return scatter
}
