package feature

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ayusman/mudra/internal/hand"
)

// Movement projects the frame-to-frame palm-center displacement onto a
// calibrated axis and divides by range_norm. The result is clamped to [-1, 1].
//
// Movement is the only stateful feature. It remembers the frame it last
// answered for, so that a gate and a binding querying it in the same frame
// both see one displacement.
type Movement struct {
	base
	axis      r2.Point
	rangeNorm float64

	prev    r2.Point
	hasPrev bool
	frame   uint64
	seen    bool
	value   float64
	valid   bool
}

// NewMovement builds a movement feature.
func NewMovement(name string, side hand.Label, axis r2.Point, rangeNorm float64) *Movement {
	return &Movement{
		base:      newBase(name, side, 0, 1),
		axis:      axis,
		rangeNorm: rangeNorm,
	}
}

// Value implements Feature.
func (m *Movement) Value(left, right *hand.Snapshot) (float64, bool) {
	s := m.pick(left, right)
	if s == nil {
		m.reset()
		return m.none()
	}
	if m.seen && s.Frame == m.frame {
		return m.value, m.valid
	}
	// A skipped frame leaves prev stale; start over instead of reporting the
	// accumulated jump.
	if m.seen && s.Frame != m.frame+1 {
		m.hasPrev = false
	}
	m.seen, m.frame = true, s.Frame

	pc := planar(s.Point(hand.PalmCenter))
	if !m.hasPrev {
		m.prev, m.hasPrev = pc, true
		return m.record(0, 0, true)
	}
	d := pc.Sub(m.prev)
	m.prev = pc
	if math.Abs(m.rangeNorm) < rangeEpsilon {
		return m.record(0, 0, false)
	}
	raw := d.Dot(m.axis) / m.rangeNorm
	return m.record(raw, math.Max(-1, math.Min(1, raw)), true)
}

func (m *Movement) record(raw, v float64, valid bool) (float64, bool) {
	if !valid {
		raw, v = 0, 0
	}
	m.value, m.valid = v, valid
	m.last = Probe{Name: m.name, Raw: raw, Value: v, Valid: valid}
	return v, valid
}

func (m *Movement) reset() {
	m.hasPrev = false
	m.seen = false
	m.value, m.valid = 0, false
}
