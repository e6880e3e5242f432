// Package simctl forwards cadence settings to the radar and satellite
// simulators. The simulators own their cadence; this client only relays it.
package simctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/banshee-data/rangefix/internal/config"
)

// RadarParams is the body of the radar simulator's PUT /config.
type RadarParams struct {
	MeasurementsPerRotation *int `json:"measurementsPerRotation,omitempty"`
	RotationSpeed           *int `json:"rotationSpeed,omitempty"`
	TargetSpeed             *int `json:"targetSpeed,omitempty"`
}

// Empty reports whether no field is set.
func (p RadarParams) Empty() bool {
	return p.MeasurementsPerRotation == nil && p.RotationSpeed == nil && p.TargetSpeed == nil
}

// GPSParams is the body of the satellite simulator's POST /config.
type GPSParams struct {
	MessageFrequency *int `json:"messageFrequency,omitempty"`
	SatelliteSpeed   *int `json:"satelliteSpeed,omitempty"`
	ObjectSpeed      *int `json:"objectSpeed,omitempty"`
}

// Empty reports whether no field is set.
func (p GPSParams) Empty() bool {
	return p.MessageFrequency == nil && p.SatelliteSpeed == nil && p.ObjectSpeed == nil
}

// ParamsFromTuning extracts the simulator cadence fields of cfg. Unset fields
// stay nil and are not sent.
func ParamsFromTuning(cfg *config.TuningConfig) (RadarParams, GPSParams) {
	if cfg == nil {
		return RadarParams{}, GPSParams{}
	}
	return RadarParams{
			MeasurementsPerRotation: cfg.MeasurementsPerRotation,
			RotationSpeed:           cfg.RotationSpeed,
			TargetSpeed:             cfg.TargetSpeed,
		}, GPSParams{
			MessageFrequency: cfg.MessageFrequency,
			SatelliteSpeed:   cfg.SatelliteSpeed,
			ObjectSpeed:      cfg.ObjectSpeed,
		}
}

// Client talks to the two simulators. An empty base URL disables that side.
type Client struct {
	HTTPClient *http.Client
	RadarURL   string
	GPSURL     string
}

// NewClient creates a simulator client.
func NewClient(httpClient *http.Client, radarURL, gpsURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		HTTPClient: httpClient,
		RadarURL:   strings.TrimRight(radarURL, "/"),
		GPSURL:     strings.TrimRight(gpsURL, "/"),
	}
}

// PushRadar sends p to the radar simulator. It is a no-op when the radar URL
// is unset or p is empty.
func (c *Client) PushRadar(ctx context.Context, p RadarParams) error {
	if c == nil || c.RadarURL == "" || p.Empty() {
		return nil
	}
	return c.send(ctx, http.MethodPut, c.RadarURL+"/config", p)
}

// PushGPS sends p to the satellite simulator. It is a no-op when the GPS URL
// is unset or p is empty.
func (c *Client) PushGPS(ctx context.Context, p GPSParams) error {
	if c == nil || c.GPSURL == "" || p.Empty() {
		return nil
	}
	return c.send(ctx, http.MethodPost, c.GPSURL+"/config", p)
}

// Push forwards the cadence fields of cfg to both simulators. Both are
// always attempted; the result joins whichever failed.
func (c *Client) Push(ctx context.Context, cfg *config.TuningConfig) error {
	radar, gps := ParamsFromTuning(cfg)
	var errs []error
	if err := c.PushRadar(ctx, radar); err != nil {
		errs = append(errs, fmt.Errorf("radar simulator: %w", err))
	}
	if err := c.PushGPS(ctx, gps); err != nil {
		errs = append(errs, fmt.Errorf("gps simulator: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Client) send(ctx context.Context, method, url string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
