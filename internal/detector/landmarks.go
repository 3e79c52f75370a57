// Package detector provides the hand tracker interface and its MediaPipe and
// mock implementations.
package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// ErrIncompleteHand is returned for a tracker result without every landmark.
var ErrIncompleteHand = errors.New("incomplete hand landmarks")

// Point3D represents a 3D point in normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector converts the point for geometry.
func (p Point3D) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [hand.NumTracked]Point3D `json:"points"`
	Handedness string                   `json:"handedness"` // "Left" or "Right"
	Score      float64                  `json:"score"`
}

// Snapshot converts the landmarks into the pipeline's snapshot for frame.
// Unknown handedness and non-finite coordinates are errors.
func (h *HandLandmarks) Snapshot(frame uint64) (hand.Snapshot, error) {
	label, err := hand.ParseLabel(h.Handedness)
	if err != nil {
		return hand.Snapshot{}, err
	}
	var pts [hand.NumTracked]r3.Vector
	for i, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return hand.Snapshot{}, fmt.Errorf("%w: landmark %d is not finite", ErrIncompleteHand, i)
		}
		pts[i] = p.Vector()
	}
	return hand.NewSnapshot(label, pts, frame), nil
}

// Snapshots converts every hand of a frame, keeping the first hand for each
// label and dropping hands that fail to convert. It returns the conversion
// errors alongside.
func Snapshots(hands []HandLandmarks, frame uint64) ([]hand.Snapshot, []error) {
	var (
		out  []hand.Snapshot
		errs []error
		seen = map[hand.Label]bool{}
	)
	for i := range hands {
		s, err := hands[i].Snapshot(frame)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[s.Label] {
			continue
		}
		seen[s.Label] = true
		out = append(out, s)
	}
	return out, errs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
