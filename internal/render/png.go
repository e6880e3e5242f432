package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/rangefix/internal/fusion"
)

// GPSMapPNG writes a PNG of the satellites and the fused position to w.
func GPSMapPNG(w io.Writer, sats []fusion.Satellite, estimate *fusion.Estimate) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Satellite Fix (%d live)", len(sats))
	p.X.Label.Text = "X (km)"
	p.Y.Label.Text = "Y (km)"
	p.Add(plotter.NewGrid())

	if len(sats) > 0 {
		pts := make(plotter.XYs, len(sats))
		for i, s := range sats {
			pts[i] = plotter.XY{X: s.Position.X, Y: s.Position.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("satellite series: %w", err)
		}
		sc.GlyphStyle.Shape = draw.PyramidGlyph{}
		sc.GlyphStyle.Color = color.RGBA{G: 200, A: 255}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("satellites", sc)
	}

	if estimate != nil {
		sc, err := plotter.NewScatter(plotter.XYs{{X: estimate.X, Y: estimate.Y}})
		if err != nil {
			return fmt.Errorf("object series: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
		sc.GlyphStyle.Radius = vg.Points(6)
		p.Add(sc)
		p.Legend.Add("object", sc)
	}

	// fixed extent; Add widens the axes to the data, so set it afterwards
	p.X.Min, p.X.Max = -DefaultExtentKm, DefaultExtentKm
	p.Y.Min, p.Y.Max = -DefaultExtentKm, DefaultExtentKm
	p.Legend.Top = true

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
