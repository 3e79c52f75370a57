// Package actuator turns binding output into effects: pointer movement,
// scrolling, button and key events, and plugin calls.
//
// A binding never knows how an effect is realised. It holds one of the
// capability interfaces below, chosen once when the binding is built.
package actuator

import (
	"errors"
)

// ErrUnknownActuator is returned for an actuator key outside the vocabulary.
var ErrUnknownActuator = errors.New("unknown actuator")

// Actuator is the part every actuator shares.
type Actuator interface {
	// Key returns the configuration key the actuator was built from.
	Key() string
	// Probe returns a read-only summary of past calls.
	Probe() Probe
}

// Event is an actuator with a single momentary action.
type Event interface {
	Actuator
	Fire() error
}

// SplitEvent is an actuator whose action has distinct press and release
// halves, like a mouse button held down between two edges.
type SplitEvent interface {
	Actuator
	Press() error
	Release() error
}

// Delta is an actuator taking incremental values.
type Delta interface {
	Actuator
	Delta(v float64) error
}

// Absolute is an actuator taking absolute values.
type Absolute interface {
	Actuator
	Absolute(v float64) error
}

// Probe summarises an actuator's calls.
type Probe struct {
	Key       string  `json:"key"`
	Calls     int     `json:"calls"`
	LastValue float64 `json:"last_value"`
	LastEvent string  `json:"last_event,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}

// Event names recorded in probes and sent to plugins.
const (
	EventDown = "down"
	EventUp   = "up"
	EventFire = "fire"
)

// tally is embedded by every concrete actuator.
type tally struct {
	probe Probe
}

func newTally(key string) tally {
	return tally{probe: Probe{Key: key}}
}

func (t *tally) Key() string { return t.probe.Key }

func (t *tally) Probe() Probe { return t.probe }

func (t *tally) record(event string, v float64, err error) error {
	t.probe.Calls++
	t.probe.LastEvent = event
	t.probe.LastValue = v
	t.probe.LastError = ""
	if err != nil {
		t.probe.LastError = err.Error()
	}
	return err
}
