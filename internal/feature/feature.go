// Package feature computes calibrated scalar signals from hand snapshots.
//
// Every feature is addressed by a stable name such as "right_hand.curv.index"
// and reports either a normalized value or no value for the current frame. A
// feature never reports a value for a hand that is not present.
package feature

import (
	"errors"
	"math"

	"github.com/ayusman/mudra/internal/hand"
)

// ErrUnknownFeature is returned when a feature name is not registered.
var ErrUnknownFeature = errors.New("unknown feature")

// rangeEpsilon is the calibration span below which normalization yields 0.
const rangeEpsilon = 1e-6

// Feature computes one named signal from the current pair of hand snapshots.
type Feature interface {
	// Name returns the registry name of the feature.
	Name() string
	// Value returns the normalized value, or false when the feature has no
	// value this frame. Calling it more than once in a frame returns the same
	// result.
	Value(left, right *hand.Snapshot) (float64, bool)
	// Probe returns the last computed values without evaluating.
	Probe() Probe
}

// Probe is a read-only view of a feature's last evaluation.
type Probe struct {
	Name  string  `json:"name"`
	Raw   float64 `json:"raw"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Normalize maps raw linearly so that min -> 0 and max -> 1. A range with
// max < min is inverted. The result is not clamped.
func Normalize(raw, min, max float64) float64 {
	rng := max - min
	if math.Abs(rng) < rangeEpsilon {
		return 0
	}
	if rng > 0 {
		return (raw - min) / rng
	}
	return (min - raw) / -rng
}

// measurer produces the raw (pre-normalization) measurement for one snapshot.
// Relative features hold measurers of registry entries to read raw values
// without touching their probes.
type measurer interface {
	raw(s *hand.Snapshot) (float64, bool)
}

// base carries what every feature shares: name, hand side, linear calibration
// range and the last probe.
type base struct {
	name     string
	side     hand.Label
	min, max float64
	last     Probe
}

func newBase(name string, side hand.Label, min, max float64) base {
	return base{name: name, side: side, min: min, max: max, last: Probe{Name: name}}
}

// Name implements Feature.
func (b *base) Name() string { return b.name }

// Probe implements Feature.
func (b *base) Probe() Probe { return b.last }

func (b *base) pick(left, right *hand.Snapshot) *hand.Snapshot {
	if b.side == hand.Left {
		return left
	}
	return right
}

func (b *base) none() (float64, bool) {
	b.last = Probe{Name: b.name}
	return 0, false
}

func (b *base) emit(raw float64) (float64, bool) {
	v := Normalize(raw, b.min, b.max)
	b.last = Probe{Name: b.name, Raw: raw, Value: v, Valid: true}
	return v, true
}

// evaluate is the Value implementation shared by the stateless features.
func (b *base) evaluate(m measurer, left, right *hand.Snapshot) (float64, bool) {
	s := b.pick(left, right)
	if s == nil {
		return b.none()
	}
	raw, ok := m.raw(s)
	if !ok || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return b.none()
	}
	return b.emit(raw)
}
