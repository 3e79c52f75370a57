package config

import (
	"slices"
	"strings"

	"github.com/ayusman/mudra/internal/calibration"
)

// Default values applied by EnsureDefaults.
const (
	DefaultCameraWidth  = 640
	DefaultCameraHeight = 480
	DefaultCameraFPS    = 30
	DefaultWindowMs     = 120
	DefaultServerAddr   = "127.0.0.1:8080"
	DefaultLogLevel     = "info"
	DefaultPluginMs     = 5000
	DefaultScrollScale  = 120
)

// bindingPolicies are the accepted binding-level lost_hand_policy values.
var bindingPolicies = map[string]bool{
	"": true, "zero": true, "release": true, "hold": true, "true": true, "toggle": true,
}

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

// Default returns the configuration written when no file exists: relative
// pointer movement with a closed fist as the clutch, and an index-finger click.
func Default() *Config {
	clutch := func() *Gate {
		return &Gate{Input: "right_hand.gesture.closed", Op: "<", TriggerPct: f64(0.5), ReleasePct: f64(0.45),
			RefractoryMs: i64(120), LostHandPolicy: "release"}
	}
	return &Config{
		Version: CurrentVersion,
		Camera:  Camera{Width: DefaultCameraWidth, Height: DefaultCameraHeight, FPS: DefaultCameraFPS},
		Smoothing: Smoothing{
			WindowMs: DefaultWindowMs,
		},
		Calibration: map[string]calibration.Entry{
			"right_hand.motion.up":      {Axis: []float64{0, -1}, RangeNorm: f64(0.20)},
			"right_hand.motion.left":    {Axis: []float64{1, 0}, RangeNorm: f64(0.20)},
			"right_hand.pos":            {Quad: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
			"right_hand.gesture.closed": {Min: f64(0.30), Max: f64(0.95)},
			"right_hand.curv.index.rel": {Min: f64(-0.20), Max: f64(0.50)},
		},
		Bindings: []Binding{
			{
				ID: "move_x", Actuator: Key("mouse.move.x"), Input: "right_hand.motion.left",
				Sensitivity: &Number{Token: "screen.width"}, Gate: clutch(), LostHandPolicy: "zero",
			},
			{
				ID: "move_y", Actuator: Key("mouse.move.y"), Input: "right_hand.motion.up",
				Sensitivity: &Number{Token: "-screen.height"}, Gate: clutch(), LostHandPolicy: "zero",
			},
			{
				ID: "left_click", Actuator: Key("mouse.click.left"), Input: "right_hand.curv.index.rel",
				Op: ">", TriggerPct: f64(0.8), ReleasePct: f64(0.6), RefractoryMs: i64(250),
				Gate: clutch(), LostHandPolicy: "release",
			},
			{
				ID: "scroll_y", Actuator: Key("mouse.scroll.y"), Input: "left_hand.motion.up",
				Sensitivity: Num(-180), Gate: &Gate{Input: "left_hand.dist.thumb.index", Op: "<",
					TriggerPct: f64(0.3), ReleasePct: f64(0.4), RefractoryMs: i64(120), LostHandPolicy: "release"},
				LostHandPolicy: "zero",
			},
		},
		Server:  Server{Enabled: true, Addr: DefaultServerAddr},
		Logging: Logging{Level: DefaultLogLevel},
		Plugins: Plugins{TimeoutMs: DefaultPluginMs},
	}
}

// EnsureDefaults fills every omitted value, resolves screen tokens against the
// given screen size and validates calibration entries and binding-level
// policies. It returns an *Error for the first entry or binding it cannot
// complete.
func (c *Config) EnsureDefaults(screenW, screenH int) error {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Camera.Width == 0 {
		c.Camera.Width = DefaultCameraWidth
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = DefaultCameraHeight
	}
	if c.Camera.FPS == 0 {
		c.Camera.FPS = DefaultCameraFPS
	}
	if c.Smoothing.WindowMs == 0 {
		c.Smoothing.WindowMs = DefaultWindowMs
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Plugins.TimeoutMs == 0 {
		c.Plugins.TimeoutMs = DefaultPluginMs
	}
	if c.Calibration == nil {
		c.Calibration = map[string]calibration.Entry{}
	}
	if err := validateCalibration(c.Calibration); err != nil {
		return err
	}

	for i := range c.Bindings {
		b := &c.Bindings[i]
		ref := BindingRef(i, b)
		if b.FeatureName() == "" {
			return &Error{Binding: ref, Field: "input", Err: ErrMissingField}
		}
		if !b.Actuator.IsPair() && b.Actuator.Key == "" {
			return &Error{Binding: ref, Field: "actuator", Err: ErrMissingField}
		}
		if !bindingPolicies[strings.ToLower(b.LostHandPolicy)] {
			return &Error{Binding: ref, Field: "lost_hand_policy", Err: ErrUnknownLostHandPolicy}
		}
		b.applyActuatorDefaults()
		for _, f := range []struct {
			name string
			n    *Number
		}{{"scale", b.Scale}, {"sensitivity", b.Sensitivity}, {"min", b.Min}, {"max", b.Max}} {
			if f.n == nil {
				continue
			}
			if err := f.n.resolve(screenW, screenH); err != nil {
				return &Error{Binding: ref, Field: f.name, Err: err}
			}
		}
		if b.Gate != nil {
			b.Gate.applyDefaults()
		}
		for j := range b.GateAll {
			b.GateAll[j].applyDefaults()
		}
	}
	return nil
}

// applyActuatorDefaults sets the per-actuator defaults: click, key and pair
// bindings get event thresholds; scroll gets a step scale; absolute pointer
// bindings span the screen.
func (b *Binding) applyActuatorDefaults() {
	key := b.Actuator.Key
	switch {
	case b.Actuator.IsPair(), strings.HasPrefix(key, "mouse.click."), strings.HasPrefix(key, "key."),
		strings.HasPrefix(key, "plugin."):
		if b.Op == "" {
			b.Op = ">"
		}
		if b.TriggerPct == nil {
			b.TriggerPct = f64(0.80)
		}
		if b.ReleasePct == nil {
			b.ReleasePct = f64(0.60)
		}
		if b.RefractoryMs == nil {
			b.RefractoryMs = i64(250)
		}
		if b.LostHandPolicy == "" {
			b.LostHandPolicy = "release"
		}
	case strings.HasPrefix(key, "mouse.move."):
		if b.LostHandPolicy == "" {
			b.LostHandPolicy = "zero"
		}
	case strings.HasPrefix(key, "mouse.scroll."):
		if b.Scale == nil && b.Sensitivity == nil {
			b.Sensitivity = Num(DefaultScrollScale)
		}
		if b.LostHandPolicy == "" {
			b.LostHandPolicy = "zero"
		}
	case strings.HasPrefix(key, "mouse.pos."):
		if b.Min == nil {
			b.Min = Num(0)
		}
		if b.Max == nil {
			tok := "screen.width"
			if strings.HasSuffix(key, ".y") {
				tok = "screen.height"
			}
			b.Max = &Number{Token: tok}
		}
		if b.LostHandPolicy == "" {
			b.LostHandPolicy = "hold"
		}
	}
}

func (g *Gate) applyDefaults() {
	if g.Op == "" {
		g.Op = ">"
	}
	if g.TriggerPct == nil {
		g.TriggerPct = f64(0.5)
	}
	if g.ReleasePct == nil {
		g.ReleasePct = f64(0.45)
	}
	if g.RefractoryMs == nil {
		g.RefractoryMs = i64(120)
	}
	if g.LostHandPolicy == "" {
		g.LostHandPolicy = "release"
	}
}

// validateCalibration checks entries in name order so the reported entry is
// stable.
func validateCalibration(entries map[string]calibration.Entry) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if field, err := entries[name].Validate(); err != nil {
			return &Error{Calibration: name, Field: field, Err: err}
		}
	}
	return nil
}
