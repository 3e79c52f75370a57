// Package config loads, defaults and watches the YAML configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/calibration"
)

// CurrentVersion is the configuration schema version written by this build.
const CurrentVersion = 1

// Config is the whole configuration file.
type Config struct {
	Version     int                          `yaml:"version"`
	Camera      Camera                       `yaml:"camera"`
	Detector    Detector                     `yaml:"detector,omitempty"`
	Smoothing   Smoothing                    `yaml:"smoothing"`
	Calibration map[string]calibration.Entry `yaml:"calibration"`
	Bindings    []Binding                    `yaml:"bindings"`
	Server      Server                       `yaml:"server"`
	Logging     Logging                      `yaml:"logging"`
	Plugins     Plugins                      `yaml:"plugins"`
	Store       Store                        `yaml:"store"`
	// Profile names a stored calibration profile whose entries override
	// Calibration.
	Profile string `yaml:"profile,omitempty"`
}

// Camera selects the capture device and the idle/active pacing.
type Camera struct {
	Index  int `yaml:"index"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
	// IdleFPS is the rate used while no hands are seen.
	IdleFPS     int   `yaml:"idle_fps,omitempty"`
	IdleAfterMs int64 `yaml:"idle_after_ms,omitempty"`
	// MotionThreshold is the percentage of changed pixels that wakes capture.
	MotionThreshold float64 `yaml:"motion_threshold,omitempty"`
}

// Detector configures the hand tracker process.
type Detector struct {
	Script       string  `yaml:"script,omitempty"`
	Python       string  `yaml:"python,omitempty"`
	MaxHands     int     `yaml:"max_hands,omitempty"`
	MinDetection float64 `yaml:"min_detection,omitempty"`
	MinTracking  float64 `yaml:"min_tracking,omitempty"`
}

// Smoothing configures the landmark window.
type Smoothing struct {
	WindowMs int64 `yaml:"window_ms"`
}

// Server configures the debug HTTP surface.
type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Logging configures the logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Plugins configures plugin discovery and execution.
type Plugins struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Settings holds each plugin's config object, keyed by plugin name.
	Settings map[string]map[string]any `yaml:"settings,omitempty"`
}

// SettingsJSON encodes each plugin's settings for the request config field.
func (p Plugins) SettingsJSON() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.Settings))
	for name, s := range p.Settings {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("plugin %s settings: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// Store configures the SQLite database.
type Store struct {
	Path string `yaml:"path"`
}

// Binding is one binding declaration.
type Binding struct {
	ID       string   `yaml:"id,omitempty"`
	Actuator Actuator `yaml:"actuator"`
	Input    string   `yaml:"input,omitempty"`
	// Feature is an alias of Input.
	Feature string `yaml:"feature,omitempty"`
	Type    string `yaml:"type,omitempty"`

	Op           string   `yaml:"op,omitempty"`
	TriggerPct   *float64 `yaml:"trigger_pct,omitempty"`
	ReleasePct   *float64 `yaml:"release_pct,omitempty"`
	RefractoryMs *int64   `yaml:"refractory_ms,omitempty"`

	Scale       *Number  `yaml:"scale,omitempty"`
	Sensitivity *Number  `yaml:"sensitivity,omitempty"`
	Deadzone    *float64 `yaml:"deadzone,omitempty"`
	Min         *Number  `yaml:"min,omitempty"`
	Max         *Number  `yaml:"max,omitempty"`

	Gate    *Gate  `yaml:"gate,omitempty"`
	GateAll []Gate `yaml:"gate_all,omitempty"`

	// LostHandPolicy documents what the binding does without a hand. Gates
	// carry the enforced policy; the binding-level value is validated only.
	LostHandPolicy string `yaml:"lost_hand_policy,omitempty"`
	Debug          bool   `yaml:"debug,omitempty"`
}

// FeatureName returns Input, falling back to Feature.
func (b *Binding) FeatureName() string {
	if b.Input != "" {
		return b.Input
	}
	return b.Feature
}

// Gates returns gate_all when present, otherwise the single gate, if any.
func (b *Binding) Gates() []Gate {
	if len(b.GateAll) > 0 {
		return b.GateAll
	}
	if b.Gate != nil {
		return []Gate{*b.Gate}
	}
	return nil
}

// Gate is a gate declaration.
type Gate struct {
	Input          string   `yaml:"input"`
	Op             string   `yaml:"op,omitempty"`
	TriggerPct     *float64 `yaml:"trigger_pct,omitempty"`
	ReleasePct     *float64 `yaml:"release_pct,omitempty"`
	RefractoryMs   *int64   `yaml:"refractory_ms,omitempty"`
	LostHandPolicy string   `yaml:"lost_hand_policy,omitempty"`
}

// DefaultPath returns ~/.mudra/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mudra", "config.yaml"), nil
}

// Load reads the configuration at path. When the file does not exist a
// default configuration is written there and returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// CalibrationStore returns the calibration entries as a store.
func (c *Config) CalibrationStore() *calibration.Store {
	return calibration.NewStore(c.Calibration)
}
