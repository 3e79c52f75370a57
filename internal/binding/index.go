package binding

import (
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/feature"
)

// Observer is told about every dispatch and every event edge.
type Observer interface {
	Dispatched(id string, kind Kind, err error)
	Edge(id string, edge Edge)
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for dispatch failures and debug bindings.
func WithLogger(log *zap.Logger) Option {
	return func(x *Index) { x.log = log }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(x *Index) { x.observers = append(x.observers, o) }
}

// Index owns the bindings of one configuration, in declaration order.
type Index struct {
	bindings  []Binding
	debug     []bool
	log       *zap.Logger
	observers []Observer
}

// NewIndex builds every declaration in order and stops at the first error.
func NewIndex(decls []config.Binding, features *feature.Index, actuators *actuator.Builder, opts ...Option) (*Index, error) {
	x := &Index{log: zap.NewNop()}
	for _, opt := range opts {
		opt(x)
	}
	for i, d := range decls {
		b, err := Build(i, d, features, actuators)
		if err != nil {
			return nil, err
		}
		x.bindings = append(x.bindings, b)
		x.debug = append(x.debug, d.Debug)
	}
	return x, nil
}

// Update evaluates every binding once, in declaration order, with the same
// frame. Actuator errors are logged and reported to observers, never returned.
func (x *Index) Update(f Frame) {
	for i, b := range x.bindings {
		out := b.Update(f)
		if out.Err != nil {
			x.log.Warn("actuator failed",
				zap.String("binding", b.ID()),
				zap.String("actuator", b.Actuator().Key()),
				zap.Error(out.Err))
		}
		for _, o := range x.observers {
			if out.Dispatched {
				o.Dispatched(b.ID(), b.Kind(), out.Err)
			}
			if out.Edge != EdgeNone {
				o.Edge(b.ID(), out.Edge)
			}
		}
		if x.debug[i] {
			p := b.Probe()
			x.log.Debug("binding",
				zap.String("binding", p.ID),
				zap.String("state", string(p.State)),
				zap.Float64("value", p.Value),
				zap.Bool("valid", p.Valid),
				zap.Float64("raw", p.Feature.Raw),
				zap.String("edge", string(p.Edge)))
		}
	}
}

// Bindings returns the bindings in declaration order.
func (x *Index) Bindings() []Binding {
	return append([]Binding(nil), x.bindings...)
}

// Lookup returns the binding with the given id.
func (x *Index) Lookup(id string) (Binding, bool) {
	for _, b := range x.bindings {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// Probes returns a probe for every binding, in declaration order.
func (x *Index) Probes() []Probe {
	out := make([]Probe, 0, len(x.bindings))
	for _, b := range x.bindings {
		out = append(out, b.Probe())
	}
	return out
}

// Len returns the number of bindings.
func (x *Index) Len() int { return len(x.bindings) }
