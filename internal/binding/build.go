package binding

import (
	"fmt"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/gate"
)

// Event binding thresholds used when a declaration omits them.
const (
	DefaultEventTriggerPct   = 0.8
	DefaultEventReleasePct   = 0.6
	DefaultEventRefractoryMs = 250
)

// Build resolves the i-th declaration against the feature registry and the
// actuator builder. Every failure is a *config.Error naming the field.
func Build(i int, decl config.Binding, features *feature.Index, actuators *actuator.Builder) (Binding, error) {
	ref := config.BindingRef(i, &decl)
	fail := func(field string, err error) error {
		return &config.Error{Binding: ref, Field: field, Err: err}
	}

	f, err := features.Lookup(decl.FeatureName())
	if err != nil {
		return nil, fail("input", err)
	}

	gates, err := buildGates(decl, features)
	if err != nil {
		return nil, fail("gate", err)
	}

	act, err := actuators.Build(decl.Actuator.Decl(), ref)
	if err != nil {
		return nil, fail("actuator", err)
	}

	declared, err := ParseKind(decl.Type)
	if err != nil {
		return nil, fail("type", err)
	}
	kind, ok := KindOf(act)
	if !ok {
		return nil, fail("actuator", fmt.Errorf("%w: %s", ErrUnknownKind, act.Key()))
	}
	if declared != "" && declared != kind {
		return nil, fail("type", fmt.Errorf("%w: %s is %s, declared %s", ErrKindMismatch, act.Key(), kind, declared))
	}

	switch kind {
	case KindEvent:
		op, err := gate.ParseOp(decl.Op)
		if err != nil {
			return nil, fail("op", err)
		}
		t := gate.NewTrigger(op,
			floatOr(decl.TriggerPct, DefaultEventTriggerPct),
			floatOr(decl.ReleasePct, DefaultEventReleasePct),
			intOr(decl.RefractoryMs, DefaultEventRefractoryMs))
		b, err := NewEvent(ref, f, gates, act, t)
		if err != nil {
			return nil, fail("actuator", err)
		}
		return b, nil

	case KindDelta:
		scale := 1.0
		switch {
		case decl.Sensitivity != nil:
			if scale, err = number(decl.Sensitivity); err != nil {
				return nil, fail("sensitivity", err)
			}
		case decl.Scale != nil:
			if scale, err = number(decl.Scale); err != nil {
				return nil, fail("scale", err)
			}
		}
		return NewDelta(ref, f, gates, act.(actuator.Delta), scale, floatOr(decl.Deadzone, 0)), nil

	default:
		lo, hi := 0.0, 1.0
		if decl.Min != nil {
			if lo, err = number(decl.Min); err != nil {
				return nil, fail("min", err)
			}
		}
		if decl.Max != nil {
			if hi, err = number(decl.Max); err != nil {
				return nil, fail("max", err)
			}
		}
		return NewAbsolute(ref, f, gates, act.(actuator.Absolute), lo, hi), nil
	}
}

func buildGates(decl config.Binding, features *feature.Index) ([]*gate.Gate, error) {
	var gates []*gate.Gate
	for j, g := range decl.Gates() {
		f, err := features.Lookup(g.Input)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", j, err)
		}
		def := gate.DefaultConfig()
		cfg := gate.Config{
			Op:           gate.Op(g.Op),
			TriggerPct:   floatOr(g.TriggerPct, def.TriggerPct),
			ReleasePct:   floatOr(g.ReleasePct, def.ReleasePct),
			RefractoryMs: intOr(g.RefractoryMs, def.RefractoryMs),
			LostHand:     gate.Policy(g.LostHandPolicy),
		}
		gt, err := gate.New(f, cfg)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", j, err)
		}
		gates = append(gates, gt)
	}
	return gates, nil
}

// number returns a resolved value. Tokens must have been resolved by
// config.EnsureDefaults.
func number(n *config.Number) (float64, error) {
	if !n.Resolved() {
		return 0, fmt.Errorf("%w: %q is unresolved", config.ErrUnknownToken, n.Token)
	}
	return n.Value, nil
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}
