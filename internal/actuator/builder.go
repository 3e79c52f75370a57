package actuator

import (
	"fmt"
	"strings"
)

// Decl is an actuator declaration: either a single key, or a trigger/release
// pair of event keys.
type Decl struct {
	Key     string `json:"key,omitempty"`
	Trigger string `json:"trigger,omitempty"`
	Release string `json:"release,omitempty"`
}

// IsPair reports whether the decl is a trigger/release pair.
func (s Decl) IsPair() bool {
	return s.Key == "" && (s.Trigger != "" || s.Release != "")
}

func (s Decl) String() string {
	if s.IsPair() {
		return fmt.Sprintf("{trigger: %s, release: %s}", s.Trigger, s.Release)
	}
	return s.Key
}

// Plugins forwards events to external plugin executables.
type Plugins interface {
	// Resolve checks that plugin exists and declares action.
	Resolve(plugin, action string) error
	// Dispatch delivers one event. It must not block the caller for long.
	Dispatch(plugin, action, binding, event string) error
}

// Builder creates actuators from declarations.
type Builder struct {
	backend Backend
	plugins Plugins
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPlugins enables plugin.<name>.<action> keys.
func WithPlugins(p Plugins) BuilderOption {
	return func(b *Builder) { b.plugins = p }
}

// NewBuilder returns a Builder whose actuators drive backend.
func NewBuilder(backend Backend, opts ...BuilderOption) *Builder {
	b := &Builder{backend: backend}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves a declaration. binding is the owning binding's id, passed on
// to plugins.
//
// Vocabulary:
//
//	mouse.move.x|y              delta, pixels
//	mouse.scroll.x|y            delta, scroll steps
//	mouse.pos.x|y               absolute, pixels
//	mouse.click.<btn>           split event
//	mouse.click.<btn>.down|up   event
//	key.<name>                  split event
//	key.<name>.down|up          event
//	plugin.<plugin>.<action>    split event
func (b *Builder) Build(decl Decl, binding string) (Actuator, error) {
	if decl.IsPair() {
		return b.buildPair(decl)
	}
	return b.build(decl.Key, binding)
}

func (b *Builder) buildPair(decl Decl) (Actuator, error) {
	var trigger, release Event
	for _, half := range []struct {
		key string
		dst *Event
	}{{decl.Trigger, &trigger}, {decl.Release, &release}} {
		if half.key == "" {
			continue
		}
		a, err := b.build(half.key, "")
		if err != nil {
			return nil, err
		}
		ev, ok := a.(Event)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a single event", ErrUnknownActuator, half.key)
		}
		*half.dst = ev
	}
	return NewPair(decl.String(), trigger, release), nil
}

func (b *Builder) build(k, binding string) (Actuator, error) {
	parts := strings.Split(k, ".")
	unknown := fmt.Errorf("%w: %q", ErrUnknownActuator, k)

	switch {
	case len(parts) == 3 && parts[0] == "mouse" && parts[1] != "click":
		axis, ok := parseAxis(parts[2])
		if !ok {
			return nil, unknown
		}
		t := newTally(k)
		switch parts[1] {
		case "move":
			return &pointerMove{tally: t, backend: b.backend, axis: axis}, nil
		case "scroll":
			return &scroll{tally: t, backend: b.backend, axis: axis}, nil
		case "pos":
			return &pointerPos{tally: t, backend: b.backend, axis: axis}, nil
		}
		return nil, unknown

	case len(parts) >= 3 && parts[0] == "mouse" && parts[1] == "click":
		btn := parts[2]
		if !Buttons[btn] || len(parts) > 4 {
			return nil, unknown
		}
		if len(parts) == 3 {
			down := &button{tally: newTally(k + ".down"), backend: b.backend, name: btn, down: true}
			up := &button{tally: newTally(k + ".up"), backend: b.backend, name: btn}
			return NewPair(k, down, up), nil
		}
		down, ok := parsePhase(parts[3])
		if !ok {
			return nil, unknown
		}
		return &button{tally: newTally(k), backend: b.backend, name: btn, down: down}, nil

	case len(parts) >= 2 && parts[0] == "key":
		// The name may itself be a dot, as in "key..down" for the period key.
		name, suffix := strings.Join(parts[1:], "."), ""
		if len(parts) > 2 {
			if _, ok := parsePhase(parts[len(parts)-1]); ok {
				name, suffix = strings.Join(parts[1:len(parts)-1], "."), parts[len(parts)-1]
			}
		}
		canon, ok := CanonicalKey(name)
		if !ok {
			return nil, unknown
		}
		if suffix == "" {
			down := &key{tally: newTally(k + ".down"), backend: b.backend, name: canon, down: true}
			up := &key{tally: newTally(k + ".up"), backend: b.backend, name: canon}
			return NewPair(k, down, up), nil
		}
		down, _ := parsePhase(suffix)
		return &key{tally: newTally(k), backend: b.backend, name: canon, down: down}, nil

	case len(parts) == 3 && parts[0] == "plugin":
		if b.plugins == nil {
			return nil, fmt.Errorf("%w: %q: plugins are not enabled", ErrUnknownActuator, k)
		}
		if err := b.plugins.Resolve(parts[1], parts[2]); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnknownActuator, k, err)
		}
		return &pluginEvent{tally: newTally(k), plugins: b.plugins, plugin: parts[1], action: parts[2], binding: binding}, nil
	}
	return nil, unknown
}

func parseAxis(s string) (Axis, bool) {
	switch s {
	case "x":
		return AxisX, true
	case "y":
		return AxisY, true
	}
	return 0, false
}

func parsePhase(s string) (down bool, ok bool) {
	switch s {
	case EventDown:
		return true, true
	case EventUp:
		return false, true
	}
	return false, false
}

// pluginEvent forwards press and release to a plugin action.
type pluginEvent struct {
	tally
	plugins Plugins
	plugin  string
	action  string
	binding string
}

func (a *pluginEvent) Press() error {
	return a.record(EventDown, 0, a.plugins.Dispatch(a.plugin, a.action, a.binding, EventDown))
}

func (a *pluginEvent) Release() error {
	return a.record(EventUp, 0, a.plugins.Dispatch(a.plugin, a.action, a.binding, EventUp))
}
