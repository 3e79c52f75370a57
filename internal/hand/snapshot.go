// Package hand defines the per-frame hand geometry snapshot consumed by the
// feature pipeline, and the geometry helpers computed from it.
package hand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// Hand landmark indices following MediaPipe convention, plus the derived palm center.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist      = 0
	ThumbCMC   = 1
	ThumbMCP   = 2
	ThumbIP    = 3
	ThumbTip   = 4
	IndexMCP   = 5
	IndexPIP   = 6
	IndexDIP   = 7
	IndexTip   = 8
	MiddleMCP  = 9
	MiddlePIP  = 10
	MiddleDIP  = 11
	MiddleTip  = 12
	RingMCP    = 13
	RingPIP    = 14
	RingDIP    = 15
	RingTip    = 16
	PinkyMCP   = 17
	PinkyPIP   = 18
	PinkyDIP   = 19
	PinkyTip   = 20
	PalmCenter = 21

	// NumTracked is the number of landmarks produced by the tracker.
	NumTracked = 21
	// NumLandmarks is NumTracked plus the derived palm center.
	NumLandmarks = 22
)

// palmPoints are averaged to derive the palm center.
var palmPoints = [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// Label identifies which hand a snapshot belongs to.
type Label string

const (
	Left  Label = "left"
	Right Label = "right"
)

// ErrUnknownLabel is returned when a handedness string is neither left nor right.
var ErrUnknownLabel = errors.New("unknown hand label")

// ParseLabel accepts tracker ("Left"/"Right") and config ("left"/"right") spellings.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// Snapshot is one frame's geometry for one hand. It is a value and is never
// mutated after construction.
type Snapshot struct {
	Label     Label
	Landmarks [NumLandmarks]r3.Vector
	PalmWidth float64
	// Frame is the pipeline epoch the snapshot was produced for. Stateful
	// features use it to recognise repeated queries within one frame.
	Frame uint64
}

// NewSnapshot builds a snapshot from the tracked landmarks, deriving the palm
// center and palm width.
func NewSnapshot(label Label, tracked [NumTracked]r3.Vector, frame uint64) Snapshot {
	s := Snapshot{Label: label, Frame: frame}
	copy(s.Landmarks[:NumTracked], tracked[:])
	s.Landmarks[PalmCenter] = palmCenter(&s.Landmarks)
	s.PalmWidth = palmWidth(&s.Landmarks)
	return s
}

// Point returns the landmark at index i.
func (s *Snapshot) Point(i int) r3.Vector {
	return s.Landmarks[i]
}

// WithLandmarks returns a copy of s carrying lms, with palm width recomputed.
func (s Snapshot) WithLandmarks(lms [NumLandmarks]r3.Vector) Snapshot {
	s.Landmarks = lms
	s.PalmWidth = palmWidth(&s.Landmarks)
	return s
}

func palmCenter(lms *[NumLandmarks]r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, i := range palmPoints {
		sum = sum.Add(lms[i])
	}
	return sum.Mul(1.0 / float64(len(palmPoints)))
}

// palmWidth is measured in the image plane so that it does not depend on the
// tracker's depth estimate.
func palmWidth(lms *[NumLandmarks]r3.Vector) float64 {
	d := lms[IndexMCP].Sub(lms[PinkyMCP])
	d.Z = 0
	return d.Norm() + 1e-9
}
