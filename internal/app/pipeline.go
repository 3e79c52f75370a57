package app

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/smoothing"
)

// ErrFramePanic is returned by ProcessFrame when a binding panicked. The
// next frame runs normally.
var ErrFramePanic = errors.New("frame pass panicked")

// Plan is everything built from one configuration: the feature registry, the
// bindings over it and the smoothing windows. It is replaced as a whole.
type Plan struct {
	Features  *feature.Index
	Bindings  *binding.Index
	Smoothing *smoothing.Index
}

// BuildPlan builds a plan from a configuration whose defaults have been
// applied. profile entries override the configuration's calibration.
func (a *App) BuildPlan(cfg *config.Config, profile map[string]calibration.Entry) (*Plan, error) {
	cal := cfg.CalibrationStore().Merge(profile)
	features := feature.NewIndex(cal)
	bindings, err := binding.NewIndex(cfg.Bindings, features, a.actuators,
		binding.WithLogger(a.log),
		binding.WithObserver(a.metrics),
		binding.WithObserver(edgeRelay{a}),
	)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Features:  features,
		Bindings:  bindings,
		Smoothing: smoothing.NewIndex(cfg.Smoothing.WindowMs),
	}, nil
}

// Reload builds a plan from cfg and swaps it in between frames. On failure
// the current plan stays and the error is returned.
func (a *App) Reload(cfg *config.Config) error {
	err := a.reload(cfg)
	a.metrics.IncrementReload(err)
	if err != nil {
		a.log.Warn("configuration rejected", zap.Error(err))
		return err
	}
	a.log.Info("configuration applied", zap.Int("bindings", len(cfg.Bindings)))
	return nil
}

func (a *App) reload(cfg *config.Config) error {
	if err := cfg.EnsureDefaults(a.screenW, a.screenH); err != nil {
		return err
	}
	var profile map[string]calibration.Entry
	if cfg.Profile != "" {
		if a.profiles == nil {
			return fmt.Errorf("calibration profile %q: no profile store", cfg.Profile)
		}
		var err error
		if profile, err = a.profiles.Calibration(cfg.Profile); err != nil {
			return fmt.Errorf("calibration profile %q: %w", cfg.Profile, err)
		}
	}
	p, err := a.BuildPlan(cfg, profile)
	if err != nil {
		return err
	}

	a.mu.Lock()
	old := a.plan
	a.plan = p
	a.mu.Unlock()

	// Bindings of the old plan may be holding keys or buttons.
	if old != nil {
		a.release(old)
	}
	return nil
}

// release runs one empty frame through p so every pressed event binding
// lets go.
func (a *App) release(p *Plan) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p.Bindings.Update(binding.Frame{NowMs: a.nowMs(a.clock())})
}

// ProcessFrame is the per-frame pass: it assigns the frame epoch, converts
// and smooths the hands, updates every binding and publishes their probes.
// While disabled the hands are ignored, which releases every event binding.
func (a *App) ProcessFrame(hands []detector.HandLandmarks, now time.Time) (err error) {
	start := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.plan
	if p == nil {
		return nil
	}
	a.frame++
	nowMs := a.nowMs(now)

	defer func() {
		if r := recover(); r != nil {
			a.metrics.IncrementPanic()
			a.log.Error("frame pass panicked", zap.Uint64("frame", a.frame), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrFramePanic, r)
		}
	}()

	if !a.enabled {
		hands = nil
	}
	snaps, errs := detector.Snapshots(hands, a.frame)
	for _, e := range errs {
		a.log.Debug("hand dropped", zap.Uint64("frame", a.frame), zap.Error(e))
	}
	snaps = p.Smoothing.SmoothAll(nowMs, snaps)

	f := binding.Frame{NowMs: nowMs}
	for i := range snaps {
		switch snaps[i].Label {
		case hand.Left:
			f.Left = &snaps[i]
		case hand.Right:
			f.Right = &snaps[i]
		}
	}
	p.Bindings.Update(f)

	a.metrics.ObserveFrame(time.Since(start), f.Left != nil, f.Right != nil)
	a.publish(p.Bindings.Probes())
	return nil
}

// nowMs converts a wall time to milliseconds since the app was created.
func (a *App) nowMs(now time.Time) int64 {
	return now.Sub(a.epoch).Milliseconds()
}

// edgeRelay forwards event binding edges to the OnEdge callback.
type edgeRelay struct{ a *App }

func (r edgeRelay) Dispatched(string, binding.Kind, error) {}

func (r edgeRelay) Edge(id string, edge binding.Edge) {
	r.a.edgeMu.RLock()
	fn := r.a.onEdge
	r.a.edgeMu.RUnlock()
	if fn != nil {
		fn(id, edge)
	}
}
