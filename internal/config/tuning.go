package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/rangefix/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/config endpoint so the same JSON can be used
// for both startup configuration and runtime updates. Every field is
// optional; the Get* methods supply defaults.
type TuningConfig struct {
	// Radar client
	EchoCapacity *int `json:"echo_capacity,omitempty"`

	// GPS client
	SatelliteMaxAge *string `json:"satellite_max_age,omitempty"` // duration string like "3s"
	SignalTimeUnit  *string `json:"signal_time_unit,omitempty"`  // s, ms, us or ns
	ExpireInterval  *string `json:"expire_interval,omitempty"`   // duration string like "500ms"

	// Feed transport
	ReconnectDelay *string `json:"reconnect_delay,omitempty"` // duration string like "2s"

	// Radar simulator cadence, forwarded as-is
	MeasurementsPerRotation *int `json:"measurements_per_rotation,omitempty"`
	RotationSpeed           *int `json:"rotation_speed,omitempty"`
	TargetSpeed             *int `json:"target_speed,omitempty"`

	// GPS simulator cadence, forwarded as-is
	MessageFrequency *int `json:"message_frequency,omitempty"`
	SatelliteSpeed   *int `json:"satellite_speed,omitempty"`
	ObjectSpeed      *int `json:"object_speed,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every local tunable set to
// its default. Simulator cadence fields stay nil so they are never forwarded
// unless configured.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		EchoCapacity:    ptrInt(8),
		SatelliteMaxAge: ptrString("3s"),
		SignalTimeUnit:  ptrString(units.Milliseconds),
		ExpireInterval:  ptrString("500ms"),
		ReconnectDelay:  ptrString("2s"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.EchoCapacity != nil && *c.EchoCapacity < 1 {
		return fmt.Errorf("echo_capacity must be at least 1, got %d", *c.EchoCapacity)
	}

	for _, d := range []struct {
		name string
		v    *string
	}{
		{"satellite_max_age", c.SatelliteMaxAge},
		{"expire_interval", c.ExpireInterval},
		{"reconnect_delay", c.ReconnectDelay},
	} {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.v)
		}
	}

	if c.SignalTimeUnit != nil && !units.IsValidTimeUnit(*c.SignalTimeUnit) {
		return fmt.Errorf("signal_time_unit must be one of %v, got %q", units.ValidTimeUnits, *c.SignalTimeUnit)
	}

	for _, n := range []struct {
		name string
		v    *int
	}{
		{"measurements_per_rotation", c.MeasurementsPerRotation},
		{"rotation_speed", c.RotationSpeed},
		{"target_speed", c.TargetSpeed},
		{"message_frequency", c.MessageFrequency},
		{"satellite_speed", c.SatelliteSpeed},
		{"object_speed", c.ObjectSpeed},
	} {
		if n.v != nil && *n.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", n.name, *n.v)
		}
	}

	return nil
}

// Merge overlays every non-nil field of update onto c.
func (c *TuningConfig) Merge(update *TuningConfig) {
	if update == nil {
		return
	}
	mergeInt(&c.EchoCapacity, update.EchoCapacity)
	mergeString(&c.SatelliteMaxAge, update.SatelliteMaxAge)
	mergeString(&c.SignalTimeUnit, update.SignalTimeUnit)
	mergeString(&c.ExpireInterval, update.ExpireInterval)
	mergeString(&c.ReconnectDelay, update.ReconnectDelay)
	mergeInt(&c.MeasurementsPerRotation, update.MeasurementsPerRotation)
	mergeInt(&c.RotationSpeed, update.RotationSpeed)
	mergeInt(&c.TargetSpeed, update.TargetSpeed)
	mergeInt(&c.MessageFrequency, update.MessageFrequency)
	mergeInt(&c.SatelliteSpeed, update.SatelliteSpeed)
	mergeInt(&c.ObjectSpeed, update.ObjectSpeed)
}

// Clone returns a deep copy of c.
func (c *TuningConfig) Clone() *TuningConfig {
	out := EmptyTuningConfig()
	out.Merge(c)
	return out
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		*dst = ptrInt(*src)
	}
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = ptrString(*src)
	}
}

// GetEchoCapacity returns the echo_capacity value or the default.
func (c *TuningConfig) GetEchoCapacity() int {
	if c.EchoCapacity == nil {
		return 8
	}
	return *c.EchoCapacity
}

// GetSatelliteMaxAge parses and returns the SatelliteMaxAge as a time.Duration.
func (c *TuningConfig) GetSatelliteMaxAge() time.Duration {
	return parseDurationOr(c.SatelliteMaxAge, 3*time.Second)
}

// GetSignalTimeUnit returns the tick length of satellite timestamps.
func (c *TuningConfig) GetSignalTimeUnit() time.Duration {
	if c.SignalTimeUnit == nil {
		return time.Millisecond
	}
	return units.TimeUnit(*c.SignalTimeUnit)
}

// GetExpireInterval parses and returns the ExpireInterval as a time.Duration.
func (c *TuningConfig) GetExpireInterval() time.Duration {
	return parseDurationOr(c.ExpireInterval, 500*time.Millisecond)
}

// GetReconnectDelay parses and returns the ReconnectDelay as a time.Duration.
func (c *TuningConfig) GetReconnectDelay() time.Duration {
	return parseDurationOr(c.ReconnectDelay, 2*time.Second)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}
