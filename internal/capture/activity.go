package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame differencing constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// Mode is the capture pace chosen by an Activity monitor.
type Mode int

const (
	// ModeIdle runs at the idle rate and only tracks frames with motion.
	ModeIdle Mode = iota
	// ModeActive tracks every frame at the full rate.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// ActivityConfig tunes the idle/active switch.
type ActivityConfig struct {
	// MotionThreshold is the percentage of pixels that must change to wake.
	MotionThreshold float64
	// IdleAfter is how long without hands before dropping to idle.
	IdleAfter time.Duration
	IdleFPS   int
	ActiveFPS int
}

// DefaultActivityConfig returns a 1% wake threshold, 2 s idle delay and
// 5/30 fps.
func DefaultActivityConfig() ActivityConfig {
	return ActivityConfig{
		MotionThreshold: 1.0,
		IdleAfter:       2 * time.Second,
		IdleFPS:         5,
		ActiveFPS:       DefaultFPS,
	}
}

// Activity decides which frames go to the hand tracker. It starts active.
// While hands are seen it stays active; after IdleAfter without hands it
// drops to idle and wakes again on the first frame whose difference from
// the previous one exceeds MotionThreshold.
type Activity struct {
	mu       sync.Mutex
	cfg      ActivityConfig
	prevGray gocv.Mat
	primed   bool
	mode     Mode
	lastSeen time.Time
}

// NewActivity returns an active monitor. Zero config fields take defaults.
func NewActivity(cfg ActivityConfig, now time.Time) *Activity {
	def := DefaultActivityConfig()
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = def.MotionThreshold
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	return &Activity{cfg: cfg, prevGray: gocv.NewMat(), mode: ModeActive, lastSeen: now}
}

// Observe inspects a frame and reports whether it should be tracked, and
// whether the mode changed on this frame.
func (a *Activity) Observe(frame *gocv.Mat, now time.Time) (track, switched bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == ModeActive {
		if now.Sub(a.lastSeen) <= a.cfg.IdleAfter {
			return true, false
		}
		a.mode = ModeIdle
		a.primed = false
		switched = true
	}

	change, ok := a.difference(frame)
	if !ok || change <= a.cfg.MotionThreshold {
		return false, switched
	}
	a.mode = ModeActive
	a.lastSeen = now
	return true, !switched
}

// Hands records that the tracker found n hands.
func (a *Activity) Hands(n int, now time.Time) {
	if n == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSeen = now
}

// Mode returns the current mode.
func (a *Activity) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// FPS returns the capture rate for the current mode.
func (a *Activity) FPS() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == ModeActive {
		return a.cfg.ActiveFPS
	}
	return a.cfg.IdleFPS
}

// Close releases the baseline frame.
func (a *Activity) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.prevGray.Empty() {
		a.prevGray.Close()
		a.prevGray = gocv.NewMat()
	}
	a.primed = false
}

// difference returns the percentage of pixels that changed since the
// previous frame. The first frame after priming is lost only sets the
// baseline.
func (a *Activity) difference(frame *gocv.Mat) (float64, bool) {
	if frame == nil || frame.Empty() {
		return 0, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !a.primed {
		blurred.CopyTo(&a.prevGray)
		a.primed = true
		return 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, a.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	blurred.CopyTo(&a.prevGray)

	total := thresh.Rows() * thresh.Cols()
	if total == 0 {
		return 0, false
	}
	return float64(gocv.CountNonZero(thresh)) / float64(total) * 100.0, true
}
