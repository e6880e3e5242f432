package render

import (
	"fmt"

	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/fusion"
)

// Placeholders shown when a list is empty.
const (
	NoTargets           = "No targets"
	NoSignal            = "No signal"
	NotEnoughSatellites = "Not enough satellites"
)

// TargetLines lists echoes as "Target i: r km, θ°", oldest first.
func TargetLines(echoes []echo.Echo) []string {
	if len(echoes) == 0 {
		return []string{NoTargets}
	}
	out := make([]string, len(echoes))
	for i, e := range echoes {
		out[i] = fmt.Sprintf("Target %d: %.1f km, %.0f°", i+1, e.Range, e.Bearing)
	}
	return out
}

// SatelliteLines lists satellite positions as "Satellite i: x, y" in
// insertion order.
func SatelliteLines(sats []fusion.Satellite) []string {
	if len(sats) == 0 {
		return []string{NoSignal}
	}
	out := make([]string, len(sats))
	for i, s := range sats {
		out[i] = fmt.Sprintf("Satellite %d: %.0f, %.0f", i+1, s.Position.X, s.Position.Y)
	}
	return out
}

// PositionLines shows the fused position, or a placeholder without one.
func PositionLines(estimate *fusion.Estimate) []string {
	if estimate == nil {
		return []string{NotEnoughSatellites}
	}
	return []string{
		fmt.Sprintf("X: %.1f km", estimate.X),
		fmt.Sprintf("Y: %.1f km", estimate.Y),
	}
}
