package hand

import (
	"math"

	"github.com/golang/geo/r3"
)

// degenerateNorm is the vector length below which a direction is considered undefined.
const degenerateNorm = 1e-9

// Finger landmark chains, MCP to TIP.
var (
	IndexChain  = [4]int{IndexMCP, IndexPIP, IndexDIP, IndexTip}
	MiddleChain = [4]int{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip}
	RingChain   = [4]int{RingMCP, RingPIP, RingDIP, RingTip}
	PinkyChain  = [4]int{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip}
)

// FingerCurvature sums (pi - interior angle) over the interior joints of the chain.
// A straight finger is 0; the value grows as the finger bends.
func FingerCurvature(s *Snapshot, chain []int) float64 {
	if len(chain) < 3 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(chain)-1; i++ {
		a, b, c := s.Landmarks[chain[i-1]], s.Landmarks[chain[i]], s.Landmarks[chain[i+1]]
		v1 := a.Sub(b)
		v2 := c.Sub(b)
		cos := v1.Dot(v2) / ((v1.Norm() + degenerateNorm) * (v2.Norm() + degenerateNorm))
		total += math.Pi - math.Acos(clamp(cos, -1, 1))
	}
	return math.Max(0, total)
}

// PalmNormal returns the unit normal of the palm plane spanned by the wrist and the
// index and pinky knuckles. The orientation is normalised per label so that it
// points out of the palm for both hands.
func PalmNormal(s *Snapshot) (r3.Vector, bool) {
	wrist := s.Landmarks[Wrist]
	n := s.Landmarks[PinkyMCP].Sub(wrist).Cross(s.Landmarks[IndexMCP].Sub(wrist))
	if s.Label == Left {
		n = n.Mul(-1)
	}
	if n.Norm() < degenerateNorm {
		return r3.Vector{}, false
	}
	return n.Normalize(), true
}

// BendAngle returns the angle between the from->to segment and the palm plane:
// 0 when the segment lies in the plane, pi/2 when it is perpendicular.
func BendAngle(s *Snapshot, from, to int) (float64, bool) {
	normal, ok := PalmNormal(s)
	if !ok {
		return 0, false
	}
	seg := s.Landmarks[to].Sub(s.Landmarks[from])
	if seg.Norm() < degenerateNorm {
		return 0, false
	}
	d := seg.Normalize().Dot(normal)
	return math.Asin(math.Abs(clamp(d, -1, 1))), true
}

// SignedAngle returns the angle from a to b after both are projected onto the plane
// orthogonal to axis, positive when the rotation is counter-clockwise around axis.
func SignedAngle(a, b, axis r3.Vector) (float64, bool) {
	if axis.Norm() < degenerateNorm {
		return 0, false
	}
	n := axis.Normalize()
	pa := a.Sub(n.Mul(a.Dot(n)))
	pb := b.Sub(n.Mul(b.Dot(n)))
	if pa.Norm() < degenerateNorm || pb.Norm() < degenerateNorm {
		return 0, false
	}
	return math.Atan2(n.Dot(pa.Cross(pb)), pa.Dot(pb)), true
}

// Distance returns the 3D distance between two landmarks in palm widths.
func Distance(s *Snapshot, i, j int) (float64, bool) {
	if s.PalmWidth < 1e-6 {
		return 0, false
	}
	return s.Landmarks[i].Distance(s.Landmarks[j]) / s.PalmWidth, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
