// Package app runs the capture loop and the per-frame pass from tracked
// hands to actuators.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/metrics"
)

// ErrNoCamera is returned by Start when the app was built without a camera.
var ErrNoCamera = errors.New("no camera configured")

// ProfileSource supplies stored calibration profiles by name.
type ProfileSource interface {
	Calibration(name string) (map[string]calibration.Entry, error)
}

// Config holds the collaborators of an App. Only Actuators is required.
type Config struct {
	Actuators *actuator.Builder
	Camera    capture.Camera
	Detector  detector.Detector
	Activity  capture.ActivityConfig
	Profiles  ProfileSource
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	// ScreenWidth and ScreenHeight resolve screen tokens in bindings.
	ScreenWidth  int
	ScreenHeight int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App owns the pipeline plan and the capture loop feeding it.
type App struct {
	actuators *actuator.Builder
	camera    capture.Camera
	detector  detector.Detector
	activity  *capture.Activity
	profiles  ProfileSource
	metrics   *metrics.Metrics
	log       *zap.Logger
	clock     func() time.Time
	screenW   int
	screenH   int

	// mu guards the plan and serializes frame passes.
	mu      sync.Mutex
	plan    *Plan
	frame   uint64
	epoch   time.Time
	enabled bool

	probeMu sync.RWMutex
	probes  []binding.Probe

	edgeMu sync.RWMutex
	onEdge func(id string, edge binding.Edge)

	viewers atomic.Int32
	jpegMu  sync.RWMutex
	jpeg    []byte

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns an enabled App with no plan; call Reload before frames can
// drive anything.
func New(cfg Config) *App {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	a := &App{
		actuators: cfg.Actuators,
		camera:    cfg.Camera,
		detector:  cfg.Detector,
		profiles:  cfg.Profiles,
		metrics:   cfg.Metrics,
		log:       cfg.Log.Named("app"),
		clock:     cfg.Clock,
		screenW:   cfg.ScreenWidth,
		screenH:   cfg.ScreenHeight,
		enabled:   true,
	}
	a.epoch = a.clock()
	if a.camera != nil {
		a.activity = capture.NewActivity(cfg.Activity, a.epoch)
	}
	return a
}

// SetEnabled turns the pipeline on or off. Disabled frames see no hands.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.log.Info("pipeline toggled", zap.Bool("enabled", enabled))
}

// IsEnabled reports whether the pipeline is enabled.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// OnEdge registers fn to be told about every event binding edge. fn runs
// inside the frame pass and must not call back into the App.
func (a *App) OnEdge(fn func(id string, edge binding.Edge)) {
	a.edgeMu.Lock()
	defer a.edgeMu.Unlock()
	a.onEdge = fn
}

// Probes returns the binding probes published by the last frame.
func (a *App) Probes() []binding.Probe {
	a.probeMu.RLock()
	defer a.probeMu.RUnlock()
	return append([]binding.Probe(nil), a.probes...)
}

func (a *App) publish(p []binding.Probe) {
	a.probeMu.Lock()
	defer a.probeMu.Unlock()
	a.probes = p
}

// Features returns the feature names of the current plan.
func (a *App) Features() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan == nil {
		return nil
	}
	return a.plan.Features.Names()
}

// Watch asks the capture loop to keep the latest frame as JPEG until the
// returned function is called.
func (a *App) Watch() (stop func()) {
	a.viewers.Add(1)
	var once sync.Once
	return func() { once.Do(func() { a.viewers.Add(-1) }) }
}

// LatestJPEG returns the most recent frame kept for watchers.
func (a *App) LatestJPEG() ([]byte, bool) {
	a.jpegMu.RLock()
	defer a.jpegMu.RUnlock()
	return a.jpeg, a.jpeg != nil
}

// Start opens the camera and runs the capture loop until ctx ends or Stop
// is called.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.camera == nil {
		return ErrNoCamera
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.activity.FPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(ctx, a.stopCh, a.doneCh)

	a.log.Info("capture started", zap.Int("fps", a.activity.FPS()))
	return nil
}

// Stop ends the capture loop, releases every binding and closes the camera
// and the tracker.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.stopCh, a.doneCh = nil, nil

	a.mu.Lock()
	p := a.plan
	a.mu.Unlock()
	if p != nil {
		a.release(p)
	}

	if err := a.camera.Close(); err != nil {
		a.log.Warn("closing camera", zap.Error(err))
	}
	a.activity.Close()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn("closing tracker", zap.Error(err))
		}
	}
	a.log.Info("capture stopped")
}

func (a *App) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	fps := a.activity.FPS()
	ticker := time.NewTicker(interval(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if next := a.tick(); next != fps {
				fps = next
				a.camera.SetFPS(fps)
				ticker.Reset(interval(fps))
				a.log.Info("capture mode", zap.Stringer("mode", a.activity.Mode()), zap.Int("fps", fps))
			}
		}
	}
}

// tick reads, tracks and processes one frame and returns the capture rate
// for the next one.
func (a *App) tick() int {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.log.Debug("reading frame", zap.Error(err))
		return a.activity.FPS()
	}
	defer frame.Close()

	now := a.clock()
	a.keepJPEG(frame)

	var hands []detector.HandLandmarks
	if track, _ := a.activity.Observe(frame, now); track && a.detector != nil && a.IsEnabled() {
		hands, err = a.detector.Detect(frame)
		if err != nil {
			a.log.Warn("tracking frame", zap.Error(err))
		}
		a.activity.Hands(len(hands), now)
	}

	if err := a.ProcessFrame(hands, now); err != nil {
		a.log.Debug("frame pass failed", zap.Error(err))
	}
	return a.activity.FPS()
}

func (a *App) keepJPEG(frame *gocv.Mat) {
	if a.viewers.Load() == 0 {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.log.Debug("encoding frame", zap.Error(err))
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.jpegMu.Lock()
	a.jpeg = data
	a.jpegMu.Unlock()
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
