package feature

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

var (
	imageUp    = r3.Vector{Y: -1}
	imageAxis  = r3.Vector{Z: 1}
	cameraAxis = r3.Vector{Z: -1}
)

// Rotation is a signed angle between a reference and a hand vector, measured
// in the plane orthogonal to an axis.
type Rotation struct {
	base
	vectors func(s *hand.Snapshot) (ref, v, axis r3.Vector, ok bool)
}

// NewHandRotation measures the wrist->middle-knuckle direction against image
// up, in the image plane.
func NewHandRotation(name string, side hand.Label, min, max float64) *Rotation {
	return &Rotation{
		base: newBase(name, side, min, max),
		vectors: func(s *hand.Snapshot) (r3.Vector, r3.Vector, r3.Vector, bool) {
			return imageUp, s.Point(hand.MiddleMCP).Sub(s.Point(hand.Wrist)), imageAxis, true
		},
	}
}

// NewThumbRotation measures the thumb direction against the index finger, in
// the palm plane.
func NewThumbRotation(name string, side hand.Label, min, max float64) *Rotation {
	return &Rotation{
		base: newBase(name, side, min, max),
		vectors: func(s *hand.Snapshot) (r3.Vector, r3.Vector, r3.Vector, bool) {
			n, ok := hand.PalmNormal(s)
			if !ok {
				return r3.Vector{}, r3.Vector{}, r3.Vector{}, false
			}
			index := s.Point(hand.IndexTip).Sub(s.Point(hand.IndexMCP))
			thumb := s.Point(hand.ThumbTip).Sub(s.Point(hand.ThumbMCP))
			return index, thumb, n, true
		},
	}
}

// Value implements Feature.
func (r *Rotation) Value(left, right *hand.Snapshot) (float64, bool) {
	return r.evaluate(r, left, right)
}

func (r *Rotation) raw(s *hand.Snapshot) (float64, bool) {
	ref, v, axis, ok := r.vectors(s)
	if !ok {
		return 0, false
	}
	return hand.SignedAngle(ref, v, axis)
}

// Roll is the rotation of the palm about the wrist->middle-knuckle axis,
// 0 when the palm faces the camera. The sign is flipped for the left hand so
// that mirrored motions of both hands report the same value.
type Roll struct {
	base
}

// NewRoll builds a roll feature.
func NewRoll(name string, side hand.Label, min, max float64) *Roll {
	return &Roll{base: newBase(name, side, min, max)}
}

// Value implements Feature.
func (r *Roll) Value(left, right *hand.Snapshot) (float64, bool) {
	return r.evaluate(r, left, right)
}

func (r *Roll) raw(s *hand.Snapshot) (float64, bool) {
	n, ok := hand.PalmNormal(s)
	if !ok {
		return 0, false
	}
	axis := s.Point(hand.MiddleMCP).Sub(s.Point(hand.Wrist))
	a, ok := hand.SignedAngle(cameraAxis, n, axis)
	if !ok {
		return 0, false
	}
	if s.Label == hand.Left {
		a = -a
	}
	return a, true
}
