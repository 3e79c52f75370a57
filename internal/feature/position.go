package feature

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/hand"
)

// singular is the determinant magnitude below which a projective map is treated
// as degenerate.
const singular = 1e-12

// homography is a 3x3 projective transform acting on (x, y, 1).
type homography [3][3]float64

func (m homography) det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// apply maps p, returning false when p lands on the line at infinity.
func (m homography) apply(p r2.Point) (r2.Point, bool) {
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	if math.Abs(w) < singular {
		return r2.Point{}, false
	}
	return r2.Point{
		X: (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]) / w,
		Y: (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]) / w,
	}, true
}

// unitSquare lists the corners quads are mapped onto, in quad order.
var unitSquare = []gocv.Point2f{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// quadToSquare returns the map taking quad q onto the unit square, or false
// when q is degenerate.
func quadToSquare(q [4]r2.Point) (homography, bool) {
	pts := make([]gocv.Point2f, len(q))
	for i, p := range q {
		pts[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	src := gocv.NewPoint2fVectorFromPoints(pts)
	defer src.Close()
	dst := gocv.NewPoint2fVectorFromPoints(unitSquare)
	defer dst.Close()

	m := gocv.GetPerspectiveTransform2f(src, dst)
	defer m.Close()
	if m.Empty() || m.Rows() != 3 || m.Cols() != 3 {
		return homography{}, false
	}
	var h homography
	for r := range h {
		for c := range h[r] {
			h[r][c] = m.GetDoubleAt(r, c)
		}
	}
	if math.Abs(h.det()) < singular {
		return homography{}, false
	}
	return h, true
}

// Position reports one coordinate of the palm center inside a calibrated quad.
type Position struct {
	base
	axis int // 0 = x, 1 = y
	h    homography
	ok   bool
}

// NewPosition builds a position feature. A degenerate quad yields a feature
// that never reports a value.
func NewPosition(name string, side hand.Label, axis string, quad [4]r2.Point, min, max float64) *Position {
	p := &Position{base: newBase(name, side, min, max)}
	if axis == "y" {
		p.axis = 1
	}
	p.h, p.ok = quadToSquare(quad)
	return p
}

// Value implements Feature.
func (p *Position) Value(left, right *hand.Snapshot) (float64, bool) {
	return p.evaluate(p, left, right)
}

func (p *Position) raw(s *hand.Snapshot) (float64, bool) {
	if !p.ok {
		return 0, false
	}
	uv, ok := p.h.apply(planar(s.Point(hand.PalmCenter)))
	if !ok {
		return 0, false
	}
	if p.axis == 1 {
		return uv.Y, true
	}
	return uv.X, true
}

// planar drops the depth component.
func planar(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}
