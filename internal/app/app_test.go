package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/metrics"
)

// pipeline moves the pointer with the right hand's sideways motion and holds
// space while it moves. A one millisecond smoothing window keeps only the
// newest sample at 33 ms frame spacing.
const pipeline = `
smoothing: {window_ms: 1}
calibration:
  right_hand.motion.left: {axis: [1, 0], range_norm: 0.02}
bindings:
  - id: move_x
    actuator: mouse.move.x
    input: right_hand.motion.left
    sensitivity: screen.width
  - id: hold
    actuator: key.space
    input: right_hand.motion.left
    op: ">"
    trigger_pct: 0.4
    release_pct: 0.2
    refractory_ms: 0
`

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(frame int) time.Time {
	return t0.Add(time.Duration(frame) * 33 * time.Millisecond)
}

// shifted is an open right palm moved right by dx.
func shifted(dx float64) []detector.HandLandmarks {
	lm := detector.OpenPalmLandmarks(hand.Right)
	for i := range lm.Points {
		lm.Points[i].X += dx
	}
	return []detector.HandLandmarks{lm}
}

func parse(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func newApp(t *testing.T, backend actuator.Backend, opts ...func(*Config)) *App {
	t.Helper()
	cfg := Config{
		Actuators:    actuator.NewBuilder(backend),
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		Clock:        func() time.Time { return t0 },
	}
	for _, o := range opts {
		o(&cfg)
	}
	a := New(cfg)
	require.NoError(t, a.Reload(parse(t, pipeline)))
	return a
}

type edges struct{ got []string }

func (e *edges) record(id string, edge binding.Edge) { e.got = append(e.got, id+":"+string(edge)) }

func TestProcessFrame(t *testing.T) {
	rec := actuator.NewRecorder()
	a := newApp(t, rec)
	ed := &edges{}
	a.OnEdge(ed.record)

	for frame := 1; frame <= 3; frame++ {
		require.NoError(t, a.ProcessFrame(shifted(0.01*float64(frame)), at(frame)))
	}

	want := []actuator.Call{
		{Op: "move", Args: []any{960, 0}},
		{Op: "key", Args: []any{"space", true}},
		{Op: "move", Args: []any{960, 0}},
	}
	assert.Empty(t, cmp.Diff(want, rec.Calls()))
	assert.Equal(t, []string{"hold:down"}, ed.got)

	probes := a.Probes()
	require.Len(t, probes, 2)
	assert.Equal(t, binding.StateTracked, probes[0].State)
	assert.Equal(t, binding.StateActive, probes[1].State)
	assert.Contains(t, a.Features(), "right_hand.motion.left")

	t.Run("disabled frames release", func(t *testing.T) {
		rec.Reset()
		a.SetEnabled(false)
		require.NoError(t, a.ProcessFrame(shifted(0.04), at(4)))
		assert.Empty(t, cmp.Diff([]actuator.Call{{Op: "key", Args: []any{"space", false}}}, rec.Calls()))
		assert.Equal(t, []string{"hold:down", "hold:up"}, ed.got)
		assert.False(t, a.IsEnabled())
	})
}

func TestProcessFrame_DuplicateLabels(t *testing.T) {
	rec := actuator.NewRecorder()
	a := newApp(t, rec)

	// The second right hand never counts, so the motion is the first hand's.
	for frame := 1; frame <= 2; frame++ {
		hands := append(shifted(0.01*float64(frame)), shifted(0.5)...)
		require.NoError(t, a.ProcessFrame(hands, at(frame)))
	}
	require.NotEmpty(t, rec.Calls())
	assert.Equal(t, actuator.Call{Op: "move", Args: []any{960, 0}}, rec.Calls()[0])
}

func TestReload(t *testing.T) {
	rec := actuator.NewRecorder()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := newApp(t, rec, func(c *Config) { c.Metrics = m })

	for frame := 1; frame <= 2; frame++ {
		require.NoError(t, a.ProcessFrame(shifted(0.01*float64(frame)), at(frame)))
	}
	require.Contains(t, rec.Calls(), actuator.Call{Op: "key", Args: []any{"space", true}})

	t.Run("rejected configuration keeps the plan", func(t *testing.T) {
		err := a.Reload(parse(t, "bindings:\n  - {id: bad, actuator: mouse.warp, input: right_hand.motion.left}\n"))
		var cerr *config.Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "bad", cerr.Binding)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues("error")))

		require.NoError(t, a.ProcessFrame(shifted(0.03), at(3)))
		assert.Len(t, a.Probes(), 2)
	})

	t.Run("applied configuration releases the old bindings", func(t *testing.T) {
		rec.Reset()
		require.NoError(t, a.Reload(parse(t, "bindings:\n  - {id: only, actuator: mouse.move.y, input: right_hand.motion.up}\n")))
		assert.Equal(t, []actuator.Call{{Op: "key", Args: []any{"space", false}}}, rec.Calls())
		assert.Equal(t, 2.0, testutil.ToFloat64(m.Reloads.WithLabelValues("ok")))

		require.NoError(t, a.ProcessFrame(shifted(0.04), at(4)))
		probes := a.Probes()
		require.Len(t, probes, 1)
		assert.Equal(t, "only", probes[0].ID)
	})

	t.Run("unknown profile", func(t *testing.T) {
		cfg := parse(t, pipeline)
		cfg.Profile = "desk"
		assert.Error(t, a.Reload(cfg))
	})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Frames))
}

type profiles map[string]map[string]calibration.Entry

func (p profiles) Calibration(name string) (map[string]calibration.Entry, error) {
	e, ok := p[name]
	if !ok {
		return nil, assert.AnError
	}
	return e, nil
}

func TestReload_Profile(t *testing.T) {
	rec := actuator.NewRecorder()
	a := newApp(t, rec, func(c *Config) {
		c.Profiles = profiles{"desk": {
			"right_hand.motion.left": {Axis: []float64{1, 0}, RangeNorm: calibration.Float(0.01)},
		}}
	})

	cfg := parse(t, pipeline)
	cfg.Profile = "desk"
	require.NoError(t, a.Reload(cfg))

	for frame := 1; frame <= 2; frame++ {
		require.NoError(t, a.ProcessFrame(shifted(0.005*float64(frame)), at(frame)))
	}
	assert.Equal(t, actuator.Call{Op: "move", Args: []any{960, 0}}, rec.Calls()[0])
}

// panicky is a backend whose pointer movement panics.
type panicky struct{ *actuator.Recorder }

func (panicky) MoveRelative(int, int) error { panic("pointer backend exploded") }

func TestProcessFrame_RecoversPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a := newApp(t, panicky{actuator.NewRecorder()}, func(c *Config) { c.Metrics = m })

	require.NoError(t, a.ProcessFrame(shifted(0.01), at(1)))
	err := a.ProcessFrame(shifted(0.02), at(2))
	assert.ErrorIs(t, err, ErrFramePanic)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramePanics))

	// The next frame still runs.
	a.OnEdge(nil)
	assert.ErrorIs(t, a.ProcessFrame(shifted(0.03), at(3)), ErrFramePanic)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramePanics))
}

func TestProcessFrame_NoPlan(t *testing.T) {
	a := New(Config{Actuators: actuator.NewBuilder(actuator.NewRecorder())})
	assert.NoError(t, a.ProcessFrame(shifted(0), at(1)))
	assert.Empty(t, a.Probes())
	assert.Nil(t, a.Features())
}

func TestStart_NoCamera(t *testing.T) {
	a := New(Config{Actuators: actuator.NewBuilder(actuator.NewRecorder())})
	assert.ErrorIs(t, a.Start(context.Background()), ErrNoCamera)
	a.Stop()
}

func TestCaptureLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping capture loop test")
	}
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	det.SetHands(shifted(0))

	rec := actuator.NewRecorder()
	a := New(Config{
		Actuators:    actuator.NewBuilder(rec),
		Camera:       cam,
		Detector:     det,
		Activity:     capture.ActivityConfig{ActiveFPS: 100},
		ScreenWidth:  1920,
		ScreenHeight: 1080,
	})
	require.NoError(t, a.Reload(parse(t, pipeline)))

	stop := a.Watch()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Start(context.Background()), "second start is a no-op")

	require.Eventually(t, func() bool { return det.Calls() >= 3 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := a.LatestJPEG()
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	stop()

	a.Stop()
	a.Stop()

	assert.False(t, cam.IsOpen())
	assert.Equal(t, []int{100}, cam.Rates())
	probes := a.Probes()
	require.Len(t, probes, 2)
	assert.Equal(t, binding.StateTracked, probes[0].State, "a still hand is tracked")
}
