package feature

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/hand/handtest"
)

const tolerance = 1e-9

// handAt collapses every landmark onto p, so the palm center is p.
func handAt(label hand.Label, p r3.Vector, frame uint64) *hand.Snapshot {
	var pts [hand.NumTracked]r3.Vector
	for i := range pts {
		pts[i] = p
	}
	s := hand.NewSnapshot(label, pts, frame)
	return &s
}

func TestNormalize(t *testing.T) {
	t.Run("unit range is identity", func(t *testing.T) {
		assert.Equal(t, 0.0, Normalize(0, 0, 1))
		assert.Equal(t, 1.0, Normalize(1, 0, 1))
		assert.InDelta(t, 0.25, Normalize(0.25, 0, 1), tolerance)
	})

	t.Run("inverted range decreases", func(t *testing.T) {
		prev := math.Inf(1)
		for raw := -1.0; raw <= 2.0; raw += 0.25 {
			v := Normalize(raw, 1, 0)
			assert.Less(t, v, prev)
			prev = v
		}
		assert.Equal(t, 0.0, Normalize(1, 1, 0))
		assert.Equal(t, 1.0, Normalize(0, 1, 0))
	})

	t.Run("degenerate range is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Normalize(5, 2, 2+1e-7))
	})

	t.Run("not clamped", func(t *testing.T) {
		assert.InDelta(t, 2.0, Normalize(4, 0, 2), tolerance)
		assert.InDelta(t, -0.5, Normalize(-1, 0, 2), tolerance)
	})
}

func TestMovement(t *testing.T) {
	newLeftward := func(norm float64) *Movement {
		return NewMovement("right_hand.motion.left", hand.Right, r2.Point{X: 1}, norm)
	}

	t.Run("first observation is neutral", func(t *testing.T) {
		m := newLeftward(20)
		v, ok := m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("shift of half the range norm is 0.5", func(t *testing.T) {
		m := newLeftward(20)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		v, ok := m.Value(nil, handAt(hand.Right, r3.Vector{X: 110}, 1))
		require.True(t, ok)
		assert.InDelta(t, 0.5, v, tolerance)
	})

	t.Run("repeated query in one frame is stable", func(t *testing.T) {
		m := newLeftward(20)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		s := handAt(hand.Right, r3.Vector{X: 110}, 1)
		first, ok1 := m.Value(nil, s)
		second, ok2 := m.Value(nil, s)
		assert.True(t, ok1)
		assert.True(t, ok2)
		assert.Equal(t, first, second)
		assert.InDelta(t, 0.5, second, tolerance)
	})

	t.Run("clamped to unit interval", func(t *testing.T) {
		m := newLeftward(20)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		v, _ := m.Value(nil, handAt(hand.Right, r3.Vector{X: 0}, 1))
		assert.Equal(t, -1.0, v)
		assert.InDelta(t, -5.0, m.Probe().Raw, tolerance)
	})

	t.Run("lost hand resets history", func(t *testing.T) {
		m := newLeftward(20)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		_, ok := m.Value(nil, nil)
		assert.False(t, ok)
		v, ok := m.Value(nil, handAt(hand.Right, r3.Vector{X: 150}, 2))
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("skipped frame resets history", func(t *testing.T) {
		m := newLeftward(20)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		v, ok := m.Value(nil, handAt(hand.Right, r3.Vector{X: 150}, 5))
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("other hand is ignored", func(t *testing.T) {
		m := newLeftward(20)
		_, ok := m.Value(handAt(hand.Left, r3.Vector{X: 100}, 0), nil)
		assert.False(t, ok)
	})

	t.Run("zero range norm has no value", func(t *testing.T) {
		m := newLeftward(0)
		m.Value(nil, handAt(hand.Right, r3.Vector{X: 100}, 0))
		_, ok := m.Value(nil, handAt(hand.Right, r3.Vector{X: 110}, 1))
		assert.False(t, ok)
	})
}

func TestHomography(t *testing.T) {
	quad := [4]r2.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.2}, {X: 0.8, Y: 0.9}, {X: 0.2, Y: 0.7}}
	h, ok := quadToSquare(quad)
	require.True(t, ok)

	for i, want := range calibration.UnitSquare {
		got, ok := h.apply(quad[i])
		require.True(t, ok)
		assert.InDelta(t, want.X, got.X, 1e-6, "corner %d x", i)
		assert.InDelta(t, want.Y, got.Y, 1e-6, "corner %d y", i)
	}

	t.Run("collapsed quad is singular", func(t *testing.T) {
		p := r2.Point{X: 0.5, Y: 0.5}
		_, ok := quadToSquare([4]r2.Point{p, p, p, p})
		assert.False(t, ok)
	})
}

func TestPosition(t *testing.T) {
	inset := [4]r2.Point{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.2}, {X: 0.8, Y: 0.8}, {X: 0.2, Y: 0.8}}

	t.Run("unit square maps palm center directly", func(t *testing.T) {
		p := NewPosition("right_hand.pos.x", hand.Right, "x", calibration.UnitSquare, 0, 1)
		v, ok := p.Value(nil, handAt(hand.Right, r3.Vector{X: 0.3, Y: 0.7}, 0))
		require.True(t, ok)
		assert.InDelta(t, 0.3, v, 1e-6)
	})

	t.Run("inset quad stretches to the unit square", func(t *testing.T) {
		x := NewPosition("right_hand.pos.x", hand.Right, "x", inset, 0, 1)
		y := NewPosition("right_hand.pos.y", hand.Right, "y", inset, 0, 1)
		s := handAt(hand.Right, r3.Vector{X: 0.2, Y: 0.8}, 0)
		vx, _ := x.Value(nil, s)
		vy, _ := y.Value(nil, s)
		assert.InDelta(t, 0, vx, 1e-6)
		assert.InDelta(t, 1, vy, 1e-6)

		vx, _ = x.Value(nil, handAt(hand.Right, r3.Vector{X: 0.5, Y: 0.5}, 1))
		assert.InDelta(t, 0.5, vx, 1e-6)
	})

	t.Run("degenerate quad has no value", func(t *testing.T) {
		p := r2.Point{X: 0.5, Y: 0.5}
		f := NewPosition("right_hand.pos.x", hand.Right, "x", [4]r2.Point{p, p, p, p}, 0, 1)
		_, ok := f.Value(nil, handAt(hand.Right, r3.Vector{X: 0.5, Y: 0.5}, 0))
		assert.False(t, ok)
		assert.False(t, f.Probe().Valid)
	})
}

func TestRelative(t *testing.T) {
	idx := NewIndex(calibration.NewStore(nil))
	rel, err := idx.Lookup("right_hand.curv.index.rel")
	require.NoError(t, err)

	pts := handtest.OpenPoints(hand.Right)
	pip := pts[hand.IndexPIP]
	pts[hand.IndexDIP] = r3.Vector{X: pip.X + 0.05, Y: pip.Y}
	pts[hand.IndexTip] = r3.Vector{X: pip.X + 0.10, Y: pip.Y}
	s := hand.NewSnapshot(hand.Right, pts, 0)

	v, ok := rel.Value(nil, &s)
	require.True(t, ok)
	raw := rel.Probe().Raw
	assert.InDelta(t, math.Pi/2, raw, 1e-3, "difference of raw curvatures")
	assert.InDelta(t, Normalize(raw, -0.2, 0.5), v, tolerance)

	t.Run("degenerate reference has no value", func(t *testing.T) {
		bendRel, err := idx.Lookup("right_hand.bend.middle.rel")
		require.NoError(t, err)
		_, ok := bendRel.Value(nil, handAt(hand.Right, r3.Vector{X: 0.5, Y: 0.5}, 0))
		assert.False(t, ok)
	})
}

func TestGestureAndDistance(t *testing.T) {
	idx := NewIndex(calibration.NewStore(nil))
	s := handtest.Open(hand.Right, 0)

	closed, err := idx.Lookup("right_hand.gesture.closed")
	require.NoError(t, err)
	_, ok := closed.Value(nil, &s)
	require.True(t, ok)
	assert.InDelta(t, 0, closed.Probe().Raw, 1e-3, "open hand is not closed")

	dist, err := idx.Lookup("right_hand.dist.index.pinky")
	require.NoError(t, err)
	v, ok := dist.Value(nil, &s)
	require.True(t, ok)
	assert.InDelta(t, 1.0, dist.Probe().Raw, 1e-6, "tips are one palm width apart")
	assert.InDelta(t, Normalize(1.0, 0.1, 0.8), v, 1e-6)
}

func TestRotation(t *testing.T) {
	idx := NewIndex(calibration.NewStore(nil))

	t.Run("upright hand has no z rotation", func(t *testing.T) {
		rot, err := idx.Lookup("right_hand.rot.z")
		require.NoError(t, err)
		s := handtest.Open(hand.Right, 0)
		_, ok := rot.Value(nil, &s)
		require.True(t, ok)
		assert.InDelta(t, 0, rot.Probe().Raw, 0.06)
	})

	t.Run("palm facing camera has no roll", func(t *testing.T) {
		for _, label := range []hand.Label{hand.Right, hand.Left} {
			roll, err := idx.Lookup(HandPrefix(label) + ".roll")
			require.NoError(t, err)
			s := handtest.Open(label, 0)
			_, ok := roll.Value(&s, &s)
			require.True(t, ok, label)
			assert.InDelta(t, 0, roll.Probe().Raw, 1e-9, label)
		}
	})

	t.Run("mirrored hands roll with the same sign", func(t *testing.T) {
		pts := handtest.OpenPoints(hand.Right)
		for i := range pts {
			pts[i].Z = 0.5 * (pts[i].X - 0.5)
		}
		right := hand.NewSnapshot(hand.Right, pts, 0)
		for i := range pts {
			pts[i].X = 1 - pts[i].X
		}
		left := hand.NewSnapshot(hand.Left, pts, 0)

		rr, _ := idx.Lookup("right_hand.roll")
		lr, _ := idx.Lookup("left_hand.roll")
		_, ok := rr.Value(nil, &right)
		require.True(t, ok)
		_, ok = lr.Value(&left, nil)
		require.True(t, ok)

		assert.Greater(t, math.Abs(rr.Probe().Raw), 0.1)
		assert.InDelta(t, rr.Probe().Raw, lr.Probe().Raw, 1e-9)
	})
}

func TestIndex(t *testing.T) {
	cal := calibration.NewStore(map[string]calibration.Entry{
		"right_hand.curv.index": {Min: calibration.Float(1), Max: calibration.Float(2)},
	})
	idx := NewIndex(cal)

	t.Run("registers both hands", func(t *testing.T) {
		assert.Equal(t, 88, idx.Len())
		for _, name := range []string{
			"right_hand.pos.x", "left_hand.pos.y",
			"right_hand.motion.up", "left_hand.motion.left",
			"right_hand.curv.pinky.rel", "left_hand.bend.ring.rel",
			"right_hand.gesture.closed", "left_hand.dist.pinky.thumb",
			"right_hand.rot.z", "left_hand.rot.thumb", "right_hand.roll",
		} {
			f, err := idx.Lookup(name)
			require.NoError(t, err, name)
			assert.NotNil(t, f)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := idx.Lookup("right_hand.curv.toe")
		assert.ErrorIs(t, err, ErrUnknownFeature)
	})

	t.Run("distance spellings share an instance", func(t *testing.T) {
		a, _ := idx.Lookup("right_hand.dist.thumb.index")
		b, _ := idx.Lookup("right_hand.dist.index.thumb")
		assert.Same(t, a, b)
	})

	t.Run("calibration overrides the default range", func(t *testing.T) {
		c, _ := idx.Lookup("right_hand.curv.index")
		cc := c.(*Curvature)
		assert.Equal(t, 1.0, cc.min)
		assert.Equal(t, 2.0, cc.max)
	})

	t.Run("absent hands yield no values", func(t *testing.T) {
		for _, name := range idx.Names() {
			f, _ := idx.Lookup(name)
			_, ok := f.Value(nil, nil)
			assert.False(t, ok, name)
			assert.False(t, f.Probe().Valid, name)
		}
	})

	t.Run("features only read their own hand", func(t *testing.T) {
		s := handtest.Open(hand.Left, 0)
		for _, name := range idx.Names() {
			f, _ := idx.Lookup(name)
			_, ok := f.Value(&s, nil)
			if name[:len("right_hand")] == "right_hand" {
				assert.False(t, ok, name)
			}
		}
	})
}
