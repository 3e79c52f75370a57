package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ayusman/mudra/internal/calibration"
)

const sample = `
version: 1
camera:
  index: 1
calibration:
  right_hand.motion.left: {axis: [1, 0], range_norm: 0.02}
  right_hand.pos: {quad: [[0.1, 0.1], [0.9, 0.1], [0.9, 0.9], [0.1, 0.9]]}
bindings:
  - id: move_x
    actuator: mouse.move.x
    input: right_hand.motion.left
    sensitivity: screen.width
    gate: {input: right_hand.gesture.closed, op: "<"}
  - actuator: {trigger: key.ctrl.down, release: key.ctrl.up}
    feature: right_hand.dist.thumb.index
  - id: scroll
    actuator: mouse.scroll.y
    input: left_hand.motion.up
    gate_all:
      - {input: left_hand.gesture.closed, op: "<"}
      - {input: left_hand.dist.thumb.index, op: "<", trigger_pct: 0.3, release_pct: 0.4}
  - id: point_y
    actuator: mouse.pos.y
    input: right_hand.pos.y
plugins:
  settings:
    keyboard:
      pinch: {key: c, modifiers: [cmd]}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Camera.Index)
	require.Len(t, cfg.Bindings, 4)

	entry := cfg.Calibration["right_hand.pos"]
	require.Len(t, entry.Quad, 4)
	assert.Equal(t, [2]float64{0.9, 0.1}, entry.Quad[1])
	assert.InDelta(t, 0.02, *cfg.Calibration["right_hand.motion.left"].RangeNorm, 1e-12)

	move := cfg.Bindings[0]
	assert.Equal(t, Key("mouse.move.x"), move.Actuator)
	assert.Equal(t, "screen.width", move.Sensitivity.Token)

	pair := cfg.Bindings[1]
	assert.True(t, pair.Actuator.IsPair())
	assert.Equal(t, "key.ctrl.down", pair.Actuator.Trigger)
	assert.Equal(t, "right_hand.dist.thumb.index", pair.FeatureName())

	assert.Len(t, cfg.Bindings[2].Gates(), 2)

	settings, err := cfg.Plugins.SettingsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"pinch":{"key":"c","modifiers":["cmd"]}}`, string(settings["keyboard"]))

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := Parse([]byte("bindings:\n  - actuator: key.a\n    inptu: x\n"))
		assert.Error(t, err)
	})

	t.Run("empty document", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, cfg.Bindings)
	})
}

func TestEnsureDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDefaults(1920, 1080))

	assert.Equal(t, DefaultCameraFPS, cfg.Camera.FPS)
	assert.Equal(t, int64(DefaultWindowMs), cfg.Smoothing.WindowMs)

	move := cfg.Bindings[0]
	assert.Equal(t, 1920.0, move.Sensitivity.Value)
	assert.True(t, move.Sensitivity.Resolved())
	assert.Equal(t, "<", move.Gate.Op)
	assert.Equal(t, 0.5, *move.Gate.TriggerPct)
	assert.Equal(t, 0.45, *move.Gate.ReleasePct)
	assert.Equal(t, int64(120), *move.Gate.RefractoryMs)
	assert.Equal(t, "release", move.Gate.LostHandPolicy)

	pair := cfg.Bindings[1]
	assert.Equal(t, ">", pair.Op)
	assert.Equal(t, 0.8, *pair.TriggerPct)
	assert.Equal(t, 0.6, *pair.ReleasePct)
	assert.Equal(t, int64(250), *pair.RefractoryMs)

	scroll := cfg.Bindings[2]
	assert.Equal(t, float64(DefaultScrollScale), scroll.Sensitivity.Value)
	assert.Equal(t, 0.3, *scroll.GateAll[1].TriggerPct)
	assert.Equal(t, 0.5, *scroll.GateAll[0].TriggerPct)

	point := cfg.Bindings[3]
	assert.Equal(t, 0.0, point.Min.Value)
	assert.Equal(t, 1080.0, point.Max.Value)

	t.Run("negative token", func(t *testing.T) {
		cfg := &Config{Bindings: []Binding{{ID: "y", Actuator: Key("mouse.move.y"), Input: "right_hand.motion.up",
			Scale: &Number{Token: "-screen.height"}}}}
		require.NoError(t, cfg.EnsureDefaults(1920, 1080))
		assert.Equal(t, -1080.0, cfg.Bindings[0].Scale.Value)
	})

	t.Run("unknown token", func(t *testing.T) {
		cfg := &Config{Bindings: []Binding{{ID: "y", Actuator: Key("mouse.move.y"), Input: "right_hand.motion.up",
			Scale: &Number{Token: "screen.depth"}}}}
		err := cfg.EnsureDefaults(1920, 1080)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "y", cerr.Binding)
		assert.Equal(t, "scale", cerr.Field)
		assert.ErrorIs(t, err, ErrUnknownToken)
	})

	t.Run("missing input", func(t *testing.T) {
		cfg := &Config{Bindings: []Binding{{Actuator: Key("key.a")}}}
		err := cfg.EnsureDefaults(1920, 1080)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "#0")
	})

	t.Run("malformed calibration entries", func(t *testing.T) {
		cases := []struct {
			doc   string
			field string
			want  error
		}{
			{"calibration:\n  right_hand.pos.x: {quad: [[0, 0], [1, 0], [1, 1]]}\n", "quad", calibration.ErrQuadCorners},
			{"calibration:\n  right_hand.motion.left: {axis: [1, 0, 0], range_norm: 0.02}\n", "axis", calibration.ErrAxisComponents},
		}
		for _, tc := range cases {
			cfg, err := Parse([]byte(tc.doc))
			require.NoError(t, err)
			err = cfg.EnsureDefaults(1920, 1080)
			var cerr *Error
			require.ErrorAs(t, err, &cerr, tc.field)
			assert.Equal(t, tc.field, cerr.Field)
			assert.NotEmpty(t, cerr.Calibration)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "calibration "+cerr.Calibration)
		}
	})

	t.Run("unknown binding policy", func(t *testing.T) {
		cfg := &Config{Bindings: []Binding{{Actuator: Key("key.a"), Input: "x", LostHandPolicy: "freeze"}}}
		assert.ErrorIs(t, cfg.EnsureDefaults(1920, 1080), ErrUnknownLostHandPolicy)
	})
}

func TestLoadWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Bindings, len(Default().Bindings))

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "screen.width", again.Bindings[0].Sensitivity.Token, "tokens survive a round trip")
	assert.Equal(t, "mouse.click.left", again.Bindings[2].Actuator.Key)
	require.NoError(t, again.EnsureDefaults(800, 600))
}

func TestWatcher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watcher test in short mode")
	}
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

	var reloads, rejected atomic.Int32
	w := NewWatcher(path, func(cfg *Config) error {
		if len(cfg.Bindings) == 0 {
			rejected.Add(1)
			return assert.AnError
		}
		reloads.Add(1)
		return nil
	}, nil)
	w.debounce = 20 * time.Millisecond
	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	require.Eventually(t, func() bool { return reloads.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("bindings: [\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load(), "invalid yaml is not delivered")

	require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0644))
	require.Eventually(t, func() bool { return rejected.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}
