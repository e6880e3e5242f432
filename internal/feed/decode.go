package feed

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/rangefix/internal/echo"
	"github.com/banshee-data/rangefix/internal/fusion"
)

type satelliteWire struct {
	ID         string   `json:"id"`
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	SentAt     *float64 `json:"sentAt"`
	ReceivedAt *float64 `json:"receivedAt"`
}

// DecodeSatellite parses one satellite feed line. Lines that are not JSON or
// miss a coordinate or timestamp return fusion.ErrMalformedMeasurement.
func DecodeSatellite(line string) (fusion.Measurement, error) {
	var w satelliteWire
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return fusion.Measurement{}, fmt.Errorf("%w: %v", fusion.ErrMalformedMeasurement, err)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"x", w.X},
		{"y", w.Y},
		{"sentAt", w.SentAt},
		{"receivedAt", w.ReceivedAt},
	} {
		if f.v == nil {
			return fusion.Measurement{}, fmt.Errorf("%w: missing %s", fusion.ErrMalformedMeasurement, f.name)
		}
	}
	return fusion.Measurement{
		SourceID:   w.ID,
		X:          *w.X,
		Y:          *w.Y,
		SentAt:     *w.SentAt,
		ReceivedAt: *w.ReceivedAt,
	}, nil
}

// DecodeScan parses one radar feed line. Lines that are not JSON or carry
// no scanAngle return echo.ErrMalformedEcho.
func DecodeScan(line string) (echo.Scan, error) {
	var w struct {
		echo.Scan
		ScanAngle *float64 `json:"scanAngle"`
	}
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return echo.Scan{}, fmt.Errorf("%w: %v", echo.ErrMalformedEcho, err)
	}
	if w.ScanAngle == nil {
		return echo.Scan{}, fmt.Errorf("%w: missing scanAngle", echo.ErrMalformedEcho)
	}
	scan := w.Scan
	scan.ScanAngle = *w.ScanAngle
	return scan, nil
}
