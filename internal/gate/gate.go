// Package gate implements the debounced boolean that arms or disarms a binding.
package gate

import (
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/hand"
)

// Policy decides what a gate does while its feature has no value.
type Policy string

const (
	// Release closes the gate immediately.
	Release Policy = "release"
	// Hold keeps the current state.
	Hold Policy = "hold"
	// ForceOpen opens the gate.
	ForceOpen Policy = "true"
	// Toggle flips the state, at most once per refractory period.
	Toggle Policy = "toggle"
)

// ParsePolicy parses a lost-hand policy. The empty string selects Release.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Release, nil
	case Release, Hold, ForceOpen, Toggle:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Config holds a gate's thresholds.
type Config struct {
	Op           Op
	TriggerPct   float64
	ReleasePct   float64
	RefractoryMs int64
	LostHand     Policy
}

// DefaultConfig returns the thresholds used when a gate declaration omits them.
func DefaultConfig() Config {
	return Config{
		Op:           Greater,
		TriggerPct:   0.5,
		ReleasePct:   0.45,
		RefractoryMs: 120,
		LostHand:     Release,
	}
}

// Gate is a hysteresis state machine over one feature. It starts closed.
type Gate struct {
	feature feature.Feature
	policy  Policy
	trigger *Trigger
	tracked bool
}

// New builds a gate over f. The gate does not own f.
func New(f feature.Feature, cfg Config) (*Gate, error) {
	op, err := ParseOp(string(cfg.Op))
	if err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(string(cfg.LostHand))
	if err != nil {
		return nil, err
	}
	return &Gate{
		feature: f,
		policy:  policy,
		trigger: NewTrigger(op, cfg.TriggerPct, cfg.ReleasePct, cfg.RefractoryMs),
	}, nil
}

// Evaluate queries the feature and returns whether the gate is open.
func (g *Gate) Evaluate(left, right *hand.Snapshot, nowMs int64) bool {
	v, ok := g.feature.Value(left, right)
	g.tracked = ok
	if ok {
		return g.trigger.Update(v, nowMs)
	}
	switch g.policy {
	case Hold:
	case ForceOpen:
		g.trigger.Force(true)
	case Toggle:
		g.trigger.Toggle(nowMs)
	default:
		g.trigger.Force(false)
	}
	return g.trigger.Open()
}

// Open reports the state left by the last evaluation.
func (g *Gate) Open() bool { return g.trigger.Open() }

// Feature returns the gated feature.
func (g *Gate) Feature() feature.Feature { return g.feature }

// Probe is a read-only view of a gate.
type Probe struct {
	Feature feature.Probe `json:"feature"`
	Open    bool          `json:"open"`
	Tracked bool          `json:"tracked"`
	Policy  Policy        `json:"policy"`
}

// Probe returns the gate's last state.
func (g *Gate) Probe() Probe {
	return Probe{
		Feature: g.feature.Probe(),
		Open:    g.trigger.Open(),
		Tracked: g.tracked,
		Policy:  g.policy,
	}
}
