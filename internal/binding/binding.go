// Package binding connects a feature, its gates and an actuator, and decides
// once per frame what the actuator is told.
package binding

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/gate"
	"github.com/ayusman/mudra/internal/hand"
)

var (
	// ErrUnknownKind is returned for a binding type other than event, delta or abs,
	// and for an actuator offering none of those capabilities.
	ErrUnknownKind = errors.New("unknown binding kind")
	// ErrKindMismatch is returned when a declared type disagrees with the
	// actuator's capability.
	ErrKindMismatch = errors.New("binding kind does not match actuator")
)

// Kind is the binding variant, fixed when the binding is built.
type Kind string

const (
	KindEvent    Kind = "event"
	KindDelta    Kind = "delta"
	KindAbsolute Kind = "abs"
)

// ParseKind parses a declared binding type. The empty string means the kind
// is inferred from the actuator.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "event":
		return KindEvent, nil
	case "delta":
		return KindDelta, nil
	case "abs", "absolute":
		return KindAbsolute, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindOf returns the kind an actuator supports.
func KindOf(a actuator.Actuator) (Kind, bool) {
	switch a.(type) {
	case actuator.SplitEvent, actuator.Event:
		return KindEvent, true
	case actuator.Delta:
		return KindDelta, true
	case actuator.Absolute:
		return KindAbsolute, true
	}
	return "", false
}

// Frame is what every binding sees during one pass.
type Frame struct {
	Left  *hand.Snapshot
	Right *hand.Snapshot
	NowMs int64
}

// State is the binding's condition after its last update.
type State string

const (
	// StateClosed means a gate is closed.
	StateClosed State = "closed"
	// StateValueless means the gates are open but the feature has no value.
	StateValueless State = "tracked-valueless"
	// StateTracked means a delta or absolute binding received a value.
	StateTracked State = "tracked"
	// StateActive means an event binding is pressed.
	StateActive State = "active"
	// StateInactive means an event binding is released with its gates open.
	StateInactive State = "inactive"
)

// Edge is an event binding transition.
type Edge string

const (
	EdgeNone Edge = ""
	EdgeDown Edge = "down"
	EdgeUp   Edge = "up"
)

// Outcome reports what one update did.
type Outcome struct {
	// Dispatched is true when the actuator was called.
	Dispatched bool
	Edge       Edge
	// Err is the actuator's error, if it was called and failed.
	Err error
}

// Binding is one declared mapping from a feature to an actuator.
type Binding interface {
	ID() string
	Kind() Kind
	// Update evaluates the binding for one frame and drives its actuator.
	Update(f Frame) Outcome
	Actuator() actuator.Actuator
	Probe() Probe
}

// Probe is a read-only view of a binding after its last update.
type Probe struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	State    State          `json:"state"`
	Value    float64        `json:"value"`
	Valid    bool           `json:"valid"`
	Edge     Edge           `json:"edge,omitempty"`
	Feature  feature.Probe  `json:"feature"`
	Gates    []gate.Probe   `json:"gates,omitempty"`
	Actuator actuator.Probe `json:"actuator"`
}

// common holds what every kind shares: the feature, the gates and the last
// evaluation.
type common struct {
	id      string
	kind    Kind
	feature feature.Feature
	gates   []*gate.Gate

	state State
	value float64
	valid bool
	edge  Edge
}

// sample queries the feature, then every gate. All gates are evaluated even
// once one is closed, so each keeps its own history.
func (c *common) sample(f Frame) (float64, bool, bool) {
	v, ok := c.feature.Value(f.Left, f.Right)
	open := true
	for _, g := range c.gates {
		if !g.Evaluate(f.Left, f.Right, f.NowMs) {
			open = false
		}
	}
	c.value, c.valid = v, ok
	return v, ok, open
}

func (c *common) ID() string { return c.id }

func (c *common) Kind() Kind { return c.kind }

func (c *common) probe(a actuator.Actuator) Probe {
	p := Probe{
		ID:       c.id,
		Kind:     c.kind,
		State:    c.state,
		Value:    c.value,
		Valid:    c.valid,
		Edge:     c.edge,
		Feature:  c.feature.Probe(),
		Actuator: a.Probe(),
	}
	for _, g := range c.gates {
		p.Gates = append(p.Gates, g.Probe())
	}
	return p
}

// EventBinding presses its actuator on a rising edge of its own trigger and
// releases it on the falling edge.
type EventBinding struct {
	common
	trigger *gate.Trigger
	act     actuator.Actuator
	split   actuator.SplitEvent
	fire    actuator.Event
}

// NewEvent returns an event binding. a must be an actuator.SplitEvent or an
// actuator.Event.
func NewEvent(id string, f feature.Feature, gates []*gate.Gate, a actuator.Actuator, t *gate.Trigger) (*EventBinding, error) {
	b := &EventBinding{
		common:  common{id: id, kind: KindEvent, feature: f, gates: gates, state: StateClosed},
		trigger: t,
		act:     a,
	}
	switch v := a.(type) {
	case actuator.SplitEvent:
		b.split = v
	case actuator.Event:
		b.fire = v
	default:
		return nil, fmt.Errorf("%w: %s is not an event", ErrKindMismatch, a.Key())
	}
	return b, nil
}

// Update implements Binding. A closed gate or a missing value releases
// immediately; otherwise the trigger's hysteresis and refractory period apply.
func (b *EventBinding) Update(f Frame) Outcome {
	was := b.trigger.Open()
	v, ok, open := b.sample(f)

	switch {
	case !open:
		b.trigger.Force(false)
		b.state = StateClosed
	case !ok:
		b.trigger.Force(false)
		b.state = StateValueless
	default:
		if b.trigger.Update(v, f.NowMs) {
			b.state = StateActive
		} else {
			b.state = StateInactive
		}
	}

	now := b.trigger.Open()
	b.edge = EdgeNone
	var out Outcome
	switch {
	case !was && now:
		b.edge = EdgeDown
		out = Outcome{Dispatched: true, Edge: EdgeDown}
		if b.split != nil {
			out.Err = b.split.Press()
		} else {
			out.Err = b.fire.Fire()
		}
	case was && !now:
		b.edge = EdgeUp
		out = Outcome{Edge: EdgeUp}
		if b.split != nil {
			out.Dispatched = true
			out.Err = b.split.Release()
		}
	}
	return out
}

// Active reports whether the binding is pressed.
func (b *EventBinding) Active() bool { return b.trigger.Open() }

func (b *EventBinding) Actuator() actuator.Actuator { return b.act }

func (b *EventBinding) Probe() Probe { return b.probe(b.act) }

// DeltaBinding sends scaled values outside the deadzone.
type DeltaBinding struct {
	common
	act      actuator.Delta
	scale    float64
	deadzone float64
}

// NewDelta returns a delta binding.
func NewDelta(id string, f feature.Feature, gates []*gate.Gate, a actuator.Delta, scale, deadzone float64) *DeltaBinding {
	return &DeltaBinding{
		common:   common{id: id, kind: KindDelta, feature: f, gates: gates, state: StateClosed},
		act:      a,
		scale:    scale,
		deadzone: deadzone,
	}
}

// Update implements Binding.
func (b *DeltaBinding) Update(f Frame) Outcome {
	v, ok, open := b.sample(f)
	switch {
	case !open:
		b.state = StateClosed
		return Outcome{}
	case !ok:
		b.state = StateValueless
		return Outcome{}
	}
	b.state = StateTracked
	if math.Abs(v) <= b.deadzone {
		return Outcome{}
	}
	return Outcome{Dispatched: true, Err: b.act.Delta(v * b.scale)}
}

func (b *DeltaBinding) Actuator() actuator.Actuator { return b.act }

func (b *DeltaBinding) Probe() Probe { return b.probe(b.act) }

// AbsoluteBinding maps the feature value onto [min, max].
type AbsoluteBinding struct {
	common
	act      actuator.Absolute
	min, max float64
}

// NewAbsolute returns an absolute binding.
func NewAbsolute(id string, f feature.Feature, gates []*gate.Gate, a actuator.Absolute, min, max float64) *AbsoluteBinding {
	return &AbsoluteBinding{
		common: common{id: id, kind: KindAbsolute, feature: f, gates: gates, state: StateClosed},
		act:    a,
		min:    min,
		max:    max,
	}
}

// Update implements Binding.
func (b *AbsoluteBinding) Update(f Frame) Outcome {
	v, ok, open := b.sample(f)
	switch {
	case !open:
		b.state = StateClosed
		return Outcome{}
	case !ok:
		b.state = StateValueless
		return Outcome{}
	}
	b.state = StateTracked
	return Outcome{Dispatched: true, Err: b.act.Absolute(b.min + (b.max-b.min)*v)}
}

func (b *AbsoluteBinding) Actuator() actuator.Actuator { return b.act }

func (b *AbsoluteBinding) Probe() Probe { return b.probe(b.act) }
