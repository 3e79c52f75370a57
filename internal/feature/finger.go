package feature

import (
	"github.com/ayusman/mudra/internal/hand"
)

// Curvature is the total joint bend along one finger chain.
type Curvature struct {
	base
	chain [4]int
}

// NewCurvature builds a curvature feature for the MCP..TIP chain.
func NewCurvature(name string, side hand.Label, chain [4]int, min, max float64) *Curvature {
	return &Curvature{base: newBase(name, side, min, max), chain: chain}
}

// Value implements Feature.
func (c *Curvature) Value(left, right *hand.Snapshot) (float64, bool) {
	return c.evaluate(c, left, right)
}

func (c *Curvature) raw(s *hand.Snapshot) (float64, bool) {
	return hand.FingerCurvature(s, c.chain[:]), true
}

// Bend is the angle between a finger segment and the palm plane.
type Bend struct {
	base
	from, to int
}

// NewBend builds a bend feature over the from->to segment.
func NewBend(name string, side hand.Label, from, to int, min, max float64) *Bend {
	return &Bend{base: newBase(name, side, min, max), from: from, to: to}
}

// Value implements Feature.
func (b *Bend) Value(left, right *hand.Snapshot) (float64, bool) {
	return b.evaluate(b, left, right)
}

func (b *Bend) raw(s *hand.Snapshot) (float64, bool) {
	return hand.BendAngle(s, b.from, b.to)
}

// Relative reports how far one finger's raw measurement sits from the mean of
// its neighbours'. The difference is taken on raw values and then normalized
// with the relative feature's own range.
type Relative struct {
	base
	main measurer
	refs []measurer
}

// newRelative builds a relative feature over registry entries it does not own.
func newRelative(name string, side hand.Label, main measurer, refs []measurer, min, max float64) *Relative {
	return &Relative{base: newBase(name, side, min, max), main: main, refs: refs}
}

// Value implements Feature.
func (r *Relative) Value(left, right *hand.Snapshot) (float64, bool) {
	return r.evaluate(r, left, right)
}

func (r *Relative) raw(s *hand.Snapshot) (float64, bool) {
	if r.main == nil || len(r.refs) == 0 {
		return 0, false
	}
	main, ok := r.main.raw(s)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for _, ref := range r.refs {
		v, ok := ref.raw(s)
		if !ok {
			return 0, false
		}
		sum += v
	}
	return main - sum/float64(len(r.refs)), true
}

// Closed is the "closed hand" gesture: mean curvature of the four fingers.
type Closed struct {
	base
}

// NewClosed builds the closed-hand gesture feature.
func NewClosed(name string, side hand.Label, min, max float64) *Closed {
	return &Closed{base: newBase(name, side, min, max)}
}

// Value implements Feature.
func (c *Closed) Value(left, right *hand.Snapshot) (float64, bool) {
	return c.evaluate(c, left, right)
}

func (c *Closed) raw(s *hand.Snapshot) (float64, bool) {
	total := hand.FingerCurvature(s, hand.IndexChain[:]) +
		hand.FingerCurvature(s, hand.MiddleChain[:]) +
		hand.FingerCurvature(s, hand.RingChain[:]) +
		hand.FingerCurvature(s, hand.PinkyChain[:])
	return total / 4, true
}

// Distance is the distance between two landmarks in palm widths.
type Distance struct {
	base
	a, b int
}

// NewDistance builds a distance feature.
func NewDistance(name string, side hand.Label, a, b int, min, max float64) *Distance {
	return &Distance{base: newBase(name, side, min, max), a: a, b: b}
}

// Value implements Feature.
func (d *Distance) Value(left, right *hand.Snapshot) (float64, bool) {
	return d.evaluate(d, left, right)
}

func (d *Distance) raw(s *hand.Snapshot) (float64, bool) {
	return hand.Distance(s, d.a, d.b)
}
