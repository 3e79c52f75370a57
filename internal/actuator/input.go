package actuator

import (
	"math"
)

// pointerMove moves the pointer by a relative amount along one axis.
type pointerMove struct {
	tally
	backend Backend
	axis    Axis
}

func (a *pointerMove) Delta(v float64) error {
	d := int(math.Round(v))
	var err error
	if a.axis == AxisX {
		err = a.backend.MoveRelative(d, 0)
	} else {
		err = a.backend.MoveRelative(0, d)
	}
	return a.record("delta", v, err)
}

// scroll scrolls by a relative amount along one axis.
type scroll struct {
	tally
	backend Backend
	axis    Axis
}

func (a *scroll) Delta(v float64) error {
	d := int(math.Round(v))
	var err error
	if a.axis == AxisX {
		err = a.backend.Scroll(d, 0)
	} else {
		err = a.backend.Scroll(0, d)
	}
	return a.record("delta", v, err)
}

// pointerPos places the pointer at an absolute pixel along one axis, keeping
// the other coordinate.
type pointerPos struct {
	tally
	backend Backend
	axis    Axis
}

func (a *pointerPos) Absolute(v float64) error {
	x, y, err := a.backend.Position()
	if err != nil {
		return a.record("absolute", v, err)
	}
	p := int(math.Round(v))
	if a.axis == AxisX {
		x = p
	} else {
		y = p
	}
	return a.record("absolute", v, a.backend.MoveTo(x, y))
}

// button sends one half of a mouse click.
type button struct {
	tally
	backend Backend
	name    string
	down    bool
}

func (a *button) Fire() error {
	return a.record(phase(a.down), 0, a.backend.Button(a.name, a.down))
}

// key sends one half of a key press.
type key struct {
	tally
	backend Backend
	name    string
	down    bool
}

func (a *key) Fire() error {
	return a.record(phase(a.down), 0, a.backend.Key(a.name, a.down))
}

func phase(down bool) string {
	if down {
		return EventDown
	}
	return EventUp
}

// Pair joins a trigger and an optional release actuator into a split event.
type Pair struct {
	tally
	trigger Event
	release Event
}

// NewPair returns a split event over trigger and release. release may be nil.
func NewPair(key string, trigger, release Event) *Pair {
	return &Pair{tally: newTally(key), trigger: trigger, release: release}
}

// Press fires the trigger half.
func (p *Pair) Press() error {
	var err error
	if p.trigger != nil {
		err = p.trigger.Fire()
	}
	return p.record(EventDown, 0, err)
}

// Release fires the release half, if there is one.
func (p *Pair) Release() error {
	var err error
	if p.release != nil {
		err = p.release.Fire()
	}
	return p.record(EventUp, 0, err)
}
