package gate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownOp is returned for a comparison operator other than > or <.
	ErrUnknownOp = errors.New("unknown comparison operator")
	// ErrUnknownPolicy is returned for an unrecognised lost-hand policy.
	ErrUnknownPolicy = errors.New("unknown lost-hand policy")
)

// Op is the comparison a trigger applies to its input.
type Op string

const (
	Greater Op = ">"
	Less    Op = "<"
)

// ParseOp parses an operator. The empty string selects Greater.
func ParseOp(s string) (Op, error) {
	switch Op(strings.TrimSpace(s)) {
	case "", Greater:
		return Greater, nil
	case Less:
		return Less, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

// Trigger is a two-threshold hysteresis switch with a minimum dwell time
// between transitions. Gates and event bindings both use it.
type Trigger struct {
	op           Op
	triggerPct   float64
	releasePct   float64
	refractoryMs int64

	open   bool
	lastMs int64
	moved  bool
}

// NewTrigger returns a closed trigger.
func NewTrigger(op Op, triggerPct, releasePct float64, refractoryMs int64) *Trigger {
	return &Trigger{op: op, triggerPct: triggerPct, releasePct: releasePct, refractoryMs: refractoryMs}
}

// Update feeds a tracked value and returns the resulting state. A transition
// needs the threshold condition and strictly more than the refractory period
// since the previous transition. A trigger that never moved has no dwell
// constraint.
func (t *Trigger) Update(v float64, nowMs int64) bool {
	if !t.open {
		if t.desired(v) && t.rested(nowMs) {
			t.transition(true, nowMs)
		}
		return t.open
	}
	if t.releasable(v) && t.rested(nowMs) {
		t.transition(false, nowMs)
	}
	return t.open
}

// Toggle flips the state if at least the refractory period has passed since
// the last transition.
func (t *Trigger) Toggle(nowMs int64) bool {
	if !t.moved || nowMs-t.lastMs >= t.refractoryMs {
		t.transition(!t.open, nowMs)
	}
	return t.open
}

// Force sets the state immediately. The transition timestamp is left alone.
func (t *Trigger) Force(open bool) {
	t.open = open
}

// Open reports the current state.
func (t *Trigger) Open() bool { return t.open }

// LastTransition returns the time of the last timed transition and whether
// one has happened.
func (t *Trigger) LastTransition() (int64, bool) { return t.lastMs, t.moved }

func (t *Trigger) desired(v float64) bool {
	if t.op == Less {
		return v < t.triggerPct
	}
	return v > t.triggerPct
}

func (t *Trigger) releasable(v float64) bool {
	if t.op == Less {
		return v > t.releasePct
	}
	return v < t.releasePct
}

func (t *Trigger) rested(nowMs int64) bool {
	return !t.moved || nowMs-t.lastMs > t.refractoryMs
}

func (t *Trigger) transition(open bool, nowMs int64) {
	t.open = open
	t.lastMs = nowMs
	t.moved = true
}
