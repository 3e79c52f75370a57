// Package handtest provides hand poses for tests of packages that consume
// hand snapshots.
package handtest

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// OpenPoints returns an upright hand with straight fingers, palm facing the
// camera. The left hand is the mirror image of the right.
func OpenPoints(label hand.Label) [hand.NumTracked]r3.Vector {
	var pts [hand.NumTracked]r3.Vector
	pts[hand.Wrist] = r3.Vector{X: 0.5, Y: 0.8}
	pts[hand.ThumbCMC] = r3.Vector{X: 0.44, Y: 0.76}
	pts[hand.ThumbMCP] = r3.Vector{X: 0.40, Y: 0.72}
	pts[hand.ThumbIP] = r3.Vector{X: 0.37, Y: 0.68}
	pts[hand.ThumbTip] = r3.Vector{X: 0.34, Y: 0.64}
	for f, x := range []float64{0.44, 0.49, 0.54, 0.59} {
		for j := 0; j < 4; j++ {
			pts[hand.IndexMCP+4*f+j] = r3.Vector{X: x, Y: 0.6 - 0.05*float64(j)}
		}
	}
	if label == hand.Left {
		for i := range pts {
			pts[i].X = 1 - pts[i].X
		}
	}
	return pts
}

// Open returns the open pose as a snapshot for frame.
func Open(label hand.Label, frame uint64) hand.Snapshot {
	return hand.NewSnapshot(label, OpenPoints(label), frame)
}

// Shifted returns the open pose translated by (dx, dy) in image coordinates.
func Shifted(label hand.Label, dx, dy float64, frame uint64) hand.Snapshot {
	pts := OpenPoints(label)
	for i := range pts {
		pts[i].X += dx
		pts[i].Y += dy
	}
	return hand.NewSnapshot(label, pts, frame)
}

// Fist returns a pose whose four fingers fold back toward the palm.
func Fist(label hand.Label, frame uint64) hand.Snapshot {
	pts := OpenPoints(label)
	for f := 0; f < 4; f++ {
		mcp := pts[hand.IndexMCP+4*f]
		pts[hand.IndexMCP+4*f+1] = r3.Vector{X: mcp.X, Y: mcp.Y - 0.05}
		pts[hand.IndexMCP+4*f+2] = r3.Vector{X: mcp.X, Y: mcp.Y - 0.05, Z: -0.05}
		pts[hand.IndexMCP+4*f+3] = r3.Vector{X: mcp.X, Y: mcp.Y, Z: -0.05}
	}
	return hand.NewSnapshot(label, pts, frame)
}
