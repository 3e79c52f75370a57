package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/hand"
)

// Default movement normalization, in normalized image units per frame.
const DefaultRangeNorm = 0.20

var (
	defaultUpAxis   = r2.Point{X: 0, Y: -1}
	defaultLeftAxis = r2.Point{X: 1, Y: 0}
)

type finger struct {
	name  string
	chain [4]int
}

var fingers = []finger{
	{"index", hand.IndexChain},
	{"middle", hand.MiddleChain},
	{"ring", hand.RingChain},
	{"pinky", hand.PinkyChain},
}

// relativeRefs lists the neighbours each finger is compared against.
var relativeRefs = map[string][]string{
	"index":  {"middle"},
	"middle": {"index", "ring"},
	"ring":   {"middle", "pinky"},
	"pinky":  {"ring"},
}

var tips = []struct {
	name string
	id   int
}{
	{"thumb", hand.ThumbTip},
	{"index", hand.IndexTip},
	{"middle", hand.MiddleTip},
	{"ring", hand.RingTip},
	{"pinky", hand.PinkyTip},
}

// HandPrefix returns the feature name prefix for a hand side.
func HandPrefix(side hand.Label) string {
	return string(side) + "_hand"
}

// Index is the registry of every feature, built once from calibration. It owns
// all feature instances; bindings and gates hold references into it.
type Index struct {
	features map[string]Feature
}

// NewIndex builds the full feature set for both hands. Features without a
// calibration entry use their kind's default range.
func NewIndex(cal *calibration.Store) *Index {
	idx := &Index{features: make(map[string]Feature)}
	for _, side := range []hand.Label{hand.Right, hand.Left} {
		idx.addHand(side, cal)
	}
	return idx
}

func (idx *Index) addHand(side hand.Label, cal *calibration.Store) {
	p := HandPrefix(side)
	entry := func(name string) calibration.Entry {
		e, _ := cal.Lookup(name)
		return e
	}

	pos := entry(p + ".pos")
	lo, hi := pos.Range(0, 1)
	for _, axis := range []string{"x", "y"} {
		name := p + ".pos." + axis
		idx.features[name] = NewPosition(name, side, axis, pos.Corners(), lo, hi)
	}

	for axis, def := range map[string]r2.Point{"up": defaultUpAxis, "left": defaultLeftAxis} {
		name := p + ".motion." + axis
		e := entry(name)
		idx.features[name] = NewMovement(name, side, e.AxisVector(def), e.Norm(DefaultRangeNorm))
	}

	curv := make(map[string]*Curvature, len(fingers))
	bend := make(map[string]*Bend, len(fingers))
	for _, f := range fingers {
		name := p + ".curv." + f.name
		lo, hi := entry(name).Range(0, 4)
		curv[f.name] = NewCurvature(name, side, f.chain, lo, hi)
		idx.features[name] = curv[f.name]

		name = p + ".bend." + f.name
		lo, hi = entry(name).Range(0, math.Pi/2)
		bend[f.name] = NewBend(name, side, f.chain[0], f.chain[3], lo, hi)
		idx.features[name] = bend[f.name]
	}
	for _, f := range fingers {
		var crefs, brefs []measurer
		for _, r := range relativeRefs[f.name] {
			crefs = append(crefs, curv[r])
			brefs = append(brefs, bend[r])
		}
		name := p + ".curv." + f.name + ".rel"
		lo, hi := entry(name).Range(-0.2, 0.5)
		idx.features[name] = newRelative(name, side, curv[f.name], crefs, lo, hi)

		name = p + ".bend." + f.name + ".rel"
		lo, hi = entry(name).Range(-math.Pi/2, math.Pi/2)
		idx.features[name] = newRelative(name, side, bend[f.name], brefs, lo, hi)
	}

	name := p + ".gesture.closed"
	lo, hi = entry(name).Range(0.3, 0.95)
	idx.features[name] = NewClosed(name, side, lo, hi)

	// Both spellings of a pair share one instance, calibrated under the name
	// that follows thumb..pinky order.
	for i, a := range tips {
		for _, b := range tips[i+1:] {
			name := p + ".dist." + a.name + "." + b.name
			lo, hi := entry(name).Range(0.1, 0.8)
			d := NewDistance(name, side, a.id, b.id, lo, hi)
			idx.features[name] = d
			idx.features[p+".dist."+b.name+"."+a.name] = d
		}
	}

	name = p + ".rot.z"
	lo, hi = entry(name).Range(-math.Pi, math.Pi)
	idx.features[name] = NewHandRotation(name, side, lo, hi)

	name = p + ".rot.thumb"
	lo, hi = entry(name).Range(-math.Pi, math.Pi)
	idx.features[name] = NewThumbRotation(name, side, lo, hi)

	name = p + ".roll"
	lo, hi = entry(name).Range(-math.Pi/2, math.Pi/2)
	idx.features[name] = NewRoll(name, side, lo, hi)
}

// Lookup returns the feature registered under name.
func (idx *Index) Lookup(name string) (Feature, error) {
	f, ok := idx.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return f, nil
}

// Names returns every registered name, sorted.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.features))
	for n := range idx.features {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (idx *Index) Len() int {
	return len(idx.features)
}
