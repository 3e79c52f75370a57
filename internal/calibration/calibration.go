// Package calibration holds the per-feature normalization parameters.
package calibration

import (
	"errors"

	"github.com/golang/geo/r2"
)

var (
	// ErrQuadCorners is returned for a quad that is not four corners.
	ErrQuadCorners = errors.New("quad needs four corners")
	// ErrAxisComponents is returned for an axis that is not two components.
	ErrAxisComponents = errors.New("axis needs two components")
)

// Entry is the calibration for one feature. Exactly which fields are meaningful
// depends on the feature kind: {min, max} for linear ranges, {axis, range_norm}
// for motion, {quad} for position. Unset fields fall back to kind defaults.
type Entry struct {
	Min       *float64     `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64     `yaml:"max,omitempty" json:"max,omitempty"`
	Axis      []float64    `yaml:"axis,omitempty" json:"axis,omitempty"`
	RangeNorm *float64     `yaml:"range_norm,omitempty" json:"range_norm,omitempty"`
	Quad      [][2]float64 `yaml:"quad,omitempty" json:"quad,omitempty"`
}

// Validate reports a quad or axis of the wrong length. Absent fields are fine.
func (e Entry) Validate() (field string, err error) {
	if len(e.Quad) != 0 && len(e.Quad) != 4 {
		return "quad", ErrQuadCorners
	}
	if len(e.Axis) != 0 && len(e.Axis) != 2 {
		return "axis", ErrAxisComponents
	}
	return "", nil
}

// Range returns the entry's {min, max}, taking defaults for unset bounds.
func (e Entry) Range(defMin, defMax float64) (float64, float64) {
	lo, hi := defMin, defMax
	if e.Min != nil {
		lo = *e.Min
	}
	if e.Max != nil {
		hi = *e.Max
	}
	return lo, hi
}

// AxisVector returns the motion projection axis, or def if none is configured.
func (e Entry) AxisVector(def r2.Point) r2.Point {
	if len(e.Axis) != 2 {
		return def
	}
	return r2.Point{X: e.Axis[0], Y: e.Axis[1]}
}

// Norm returns range_norm, or def if unset.
func (e Entry) Norm(def float64) float64 {
	if e.RangeNorm == nil {
		return def
	}
	return *e.RangeNorm
}

// Corners returns the four quad corners, or the unit square if the quad is not
// exactly four points.
func (e Entry) Corners() [4]r2.Point {
	if len(e.Quad) != 4 {
		return UnitSquare
	}
	var q [4]r2.Point
	for i, c := range e.Quad {
		q[i] = r2.Point{X: c[0], Y: c[1]}
	}
	return q
}

// UnitSquare is the identity quad, clockwise from the top-left in image coordinates.
var UnitSquare = [4]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// Store maps feature names to calibration entries. It is read-only once built.
type Store struct {
	entries map[string]Entry
}

// NewStore copies entries into a new Store.
func NewStore(entries map[string]Entry) *Store {
	s := &Store{entries: make(map[string]Entry, len(entries))}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Lookup returns the entry for name.
func (s *Store) Lookup(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[name]
	return e, ok
}

// Merge returns a new Store holding s's entries overlaid with override's.
func (s *Store) Merge(override map[string]Entry) *Store {
	out := NewStore(s.Entries())
	for k, v := range override {
		out.entries[k] = v
	}
	return out
}

// Entries returns a copy of all entries.
func (s *Store) Entries() map[string]Entry {
	out := make(map[string]Entry)
	if s == nil {
		return out
	}
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Float returns a pointer to v, for building entries in code.
func Float(v float64) *float64 {
	return &v
}
