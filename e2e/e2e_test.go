package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/testdata"
)

// bindings moves the pointer with the right hand's sideways motion, holds
// space while it moves fast enough, and reports the same edges to a plugin.
const bindings = `
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
  - id: notify
    actuator: plugin.recorder.note
    input: right_hand.motion.left
    op: ">"
    trigger_pct: 0.4
    release_pct: 0.2
    refractory_ms: 0
`

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type rig struct {
	app      *app.App
	rec      *actuator.Recorder
	store    *store.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	events   string
	frame    int
}

// newRig wires a recording backend, a shell plugin, the store and metrics
// into an App without a camera; frames are fed directly.
func newRig(t *testing.T) *rig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	dir := t.TempDir()

	pluginDir := filepath.Join(dir, "plugins")
	events := filepath.Join(dir, "events.log")
	writePlugin(t, pluginDir, events)

	mgr := plugin.NewManager(pluginDir, nil)
	require.NoError(t, mgr.Discover())
	disp := plugin.NewDispatcher(mgr, plugin.NewExecutor(5000), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	disp.Start(ctx)
	t.Cleanup(func() {
		disp.Stop()
		cancel()
	})

	st, err := store.New(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := actuator.NewRecorder()

	a := app.New(app.Config{
		Actuators:    actuator.NewBuilder(rec, actuator.WithPlugins(disp)),
		Profiles:     st.Profiles(),
		Metrics:      m,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		Clock:        func() time.Time { return t0 },
	})
	cfg, err := config.Parse([]byte(bindings))
	require.NoError(t, err)
	require.NoError(t, a.Reload(cfg))

	return &rig{app: a, rec: rec, store: st, registry: reg, metrics: m, events: events}
}

func writePlugin(t *testing.T, root, events string) {
	t.Helper()
	dir := filepath.Join(root, "recorder")
	require.NoError(t, os.MkdirAll(dir, 0755))
	manifest := `{"name": "recorder", "version": "1.0.0", "executable": "run.sh", "actions": ["note"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644))
	script := "#!/bin/sh\ncat >> " + events + "\necho >> " + events + "\necho '{\"success\": true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755))
}

// play feeds a scripted sequence, 33 ms apart.
func (r *rig) play(t *testing.T, name string) {
	t.Helper()
	frames, err := testdata.LoadSequence(name)
	require.NoError(t, err)
	for _, hands := range frames {
		r.frame++
		now := t0.Add(time.Duration(r.frame) * 33 * time.Millisecond)
		require.NoError(t, r.app.ProcessFrame(hands, now))
	}
}

// pluginEvents returns the event field of every delivered request.
func (r *rig) pluginEvents(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(r.events)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var req plugin.Request
		require.NoError(t, json.Unmarshal([]byte(line), &req))
		out = append(out, req.Event)
	}
	return out
}

func keyCalls(calls []actuator.Call) []actuator.Call {
	var out []actuator.Call
	for _, c := range calls {
		if c.Op == "key" {
			out = append(out, c)
		}
	}
	return out
}

func TestE2E_SwipeAndLoseHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	r := newRig(t)

	r.play(t, "swipe")

	want := []actuator.Call{
		{Op: "move", Args: []any{960, 0}},
		{Op: "key", Args: []any{"space", true}},
		{Op: "move", Args: []any{960, 0}},
		{Op: "move", Args: []any{960, 0}},
	}
	assert.Empty(t, cmp.Diff(want, r.rec.Calls()))

	r.play(t, "lost")

	assert.Empty(t, cmp.Diff([]actuator.Call{
		{Op: "key", Args: []any{"space", true}},
		{Op: "key", Args: []any{"space", false}},
	}, keyCalls(r.rec.Calls())), "losing the hand releases held keys")

	require.Eventually(t, func() bool {
		return len(r.pluginEvents(t)) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"down", "up"}, r.pluginEvents(t))

	assert.Equal(t, 7.0, testutil.ToFloat64(r.metrics.Frames))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.metrics.Edges.WithLabelValues("hold", "down"))+
		testutil.ToFloat64(r.metrics.Edges.WithLabelValues("hold", "up")))
}

func TestE2E_StillHandIsQuiet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	r := newRig(t)

	r.play(t, "hold_still")

	assert.Empty(t, r.rec.Calls(), "a still hand drives nothing")
	assert.Empty(t, r.pluginEvents(t))
}

func TestE2E_ProfileOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	r := newRig(t)

	ts := httptest.NewServer(server.New(server.Config{
		Store:    r.store,
		Pipeline: r.app,
		Gatherer: r.registry,
	}))
	defer ts.Close()
	client := ts.Client()

	// A profile halving the motion range doubles the pointer speed.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/calibration/profiles/narrow",
		strings.NewReader(`{"entries": {"right_hand.motion.left": {"axis": [1, 0], "range_norm": 0.04}}}`))
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cfg, err := config.Parse([]byte(bindings))
	require.NoError(t, err)
	cfg.Profile = "narrow"
	require.NoError(t, r.app.Reload(cfg))

	r.play(t, "swipe")
	require.NotEmpty(t, r.rec.Calls())
	assert.Equal(t, actuator.Call{Op: "move", Args: []any{480, 0}}, r.rec.Calls()[0])
	assert.Empty(t, keyCalls(r.rec.Calls()), "0.25 of the range stays under the trigger")

	resp, err = client.Get(ts.URL + "/api/probes")
	require.NoError(t, err)
	var probes struct {
		Enabled  bool `json:"enabled"`
		Bindings []struct {
			ID    string  `json:"id"`
			Value float64 `json:"value"`
		} `json:"bindings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&probes))
	resp.Body.Close()
	assert.True(t, probes.Enabled)
	require.Len(t, probes.Bindings, 3)
	assert.Equal(t, "move_x", probes.Bindings[0].ID)
	assert.InDelta(t, 0.25, probes.Bindings[0].Value, 1e-9)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_DisabledOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	r := newRig(t)
	ts := httptest.NewServer(server.New(server.Config{Pipeline: r.app}))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/enabled", strings.NewReader(`{"enabled": false}`))
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r.play(t, "swipe")
	assert.Empty(t, r.rec.Calls())
}
