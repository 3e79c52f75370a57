package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/hand"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns an open palm facing the camera, fingers extended
// upward. The left hand mirrors the right.
func OpenPalmLandmarks(label hand.Label) HandLandmarks {
	lm := HandLandmarks{Handedness: handedness(label), Score: 0.95}

	lm.Points[hand.Wrist] = Point3D{X: 0.5, Y: 0.8}

	// Thumb extended to the side
	lm.Points[hand.ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[hand.ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[hand.ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[hand.ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[hand.IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	lm.Points[hand.IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	lm.Points[hand.IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	lm.Points[hand.IndexTip] = Point3D{X: 0.58, Y: 0.35}

	lm.Points[hand.MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	lm.Points[hand.MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	lm.Points[hand.MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	lm.Points[hand.MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	lm.Points[hand.RingMCP] = Point3D{X: 0.45, Y: 0.68}
	lm.Points[hand.RingPIP] = Point3D{X: 0.43, Y: 0.55}
	lm.Points[hand.RingDIP] = Point3D{X: 0.42, Y: 0.45}
	lm.Points[hand.RingTip] = Point3D{X: 0.42, Y: 0.35}

	lm.Points[hand.PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	lm.Points[hand.PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	lm.Points[hand.PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	lm.Points[hand.PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return mirrored(lm, label)
}

// FistLandmarks returns a closed fist: every finger curls back toward the
// palm, the thumb folds across.
func FistLandmarks(label hand.Label) HandLandmarks {
	lm := HandLandmarks{Handedness: handedness(label), Score: 0.95}

	lm.Points[hand.Wrist] = Point3D{X: 0.5, Y: 0.8}

	lm.Points[hand.ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: -0.01}
	lm.Points[hand.ThumbMCP] = Point3D{X: 0.58, Y: 0.70, Z: -0.02}
	lm.Points[hand.ThumbIP] = Point3D{X: 0.54, Y: 0.66, Z: -0.04}
	lm.Points[hand.ThumbTip] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}

	for f, x := range []float64{0.55, 0.50, 0.45, 0.40} {
		mcp := hand.IndexMCP + 4*f
		lm.Points[mcp] = Point3D{X: x, Y: 0.68, Z: -0.02}
		lm.Points[mcp+1] = Point3D{X: x, Y: 0.62, Z: -0.05}
		lm.Points[mcp+2] = Point3D{X: x, Y: 0.64, Z: -0.09}
		lm.Points[mcp+3] = Point3D{X: x, Y: 0.69, Z: -0.07}
	}

	return mirrored(lm, label)
}

// PinchLandmarks returns an open palm with the thumb and index tips touching.
func PinchLandmarks(label hand.Label) HandLandmarks {
	lm := OpenPalmLandmarks(hand.Right)
	lm.Handedness = handedness(label)

	lm.Points[hand.IndexPIP] = Point3D{X: 0.60, Y: 0.58, Z: -0.02}
	lm.Points[hand.IndexDIP] = Point3D{X: 0.63, Y: 0.56, Z: -0.03}
	lm.Points[hand.IndexTip] = Point3D{X: 0.65, Y: 0.57, Z: -0.03}
	lm.Points[hand.ThumbIP] = Point3D{X: 0.66, Y: 0.63, Z: 0.0}
	lm.Points[hand.ThumbTip] = Point3D{X: 0.655, Y: 0.58, Z: -0.025}

	return mirrored(lm, label)
}

func handedness(label hand.Label) string {
	if label == hand.Left {
		return "Left"
	}
	return "Right"
}

func mirrored(lm HandLandmarks, label hand.Label) HandLandmarks {
	if label != hand.Left {
		return lm
	}
	for i := range lm.Points {
		lm.Points[i].X = 1 - lm.Points[i].X
	}
	return lm
}
