package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/actuator"
)

// Actuator is an actuator reference: a key string, or a {trigger, release}
// mapping of event keys.
type Actuator struct {
	Key     string
	Trigger string
	Release string
}

// Key returns a single-key reference.
func Key(k string) Actuator {
	return Actuator{Key: k}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Actuator) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*a = Actuator{Key: n.Value}
		return nil
	case yaml.MappingNode:
		var pair struct {
			Trigger string `yaml:"trigger"`
			Release string `yaml:"release"`
		}
		if err := n.Decode(&pair); err != nil {
			return err
		}
		*a = Actuator{Trigger: pair.Trigger, Release: pair.Release}
		return nil
	}
	return fmt.Errorf("line %d: actuator must be a key or a {trigger, release} mapping", n.Line)
}

// MarshalYAML implements yaml.Marshaler.
func (a Actuator) MarshalYAML() (any, error) {
	if a.IsPair() {
		m := map[string]string{}
		if a.Trigger != "" {
			m["trigger"] = a.Trigger
		}
		if a.Release != "" {
			m["release"] = a.Release
		}
		return m, nil
	}
	return a.Key, nil
}

// IsPair reports whether a is a trigger/release mapping.
func (a Actuator) IsPair() bool {
	return a.Key == "" && (a.Trigger != "" || a.Release != "")
}

// Decl converts the reference for the actuator builder.
func (a Actuator) Decl() actuator.Decl {
	return actuator.Decl{Key: a.Key, Trigger: a.Trigger, Release: a.Release}
}

func (a Actuator) String() string {
	return a.Decl().String()
}

// Number is a float that may be written as a screen token such as
// "screen.width" or "-screen.height". Tokens are resolved by EnsureDefaults.
type Number struct {
	Value float64
	Token string
}

// Num returns a literal Number.
func Num(v float64) *Number {
	return &Number{Value: v}
}

// Resolved reports whether the number no longer carries a token.
func (n *Number) Resolved() bool {
	return n.Token == ""
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number or screen token", node.Line)
	}
	if v, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*n = Number{Value: v}
		return nil
	}
	*n = Number{Token: strings.TrimSpace(node.Value)}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n Number) MarshalYAML() (any, error) {
	if n.Token != "" {
		return n.Token, nil
	}
	return n.Value, nil
}

// resolve replaces a screen token with its pixel value.
func (n *Number) resolve(screenW, screenH int) error {
	if n.Token == "" {
		return nil
	}
	tok := n.Token
	sign := 1.0
	if strings.HasPrefix(tok, "-") {
		sign, tok = -1, tok[1:]
	}
	switch tok {
	case "screen.width":
		n.Value = sign * float64(screenW)
	case "screen.height":
		n.Value = sign * float64(screenH)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownToken, n.Token)
	}
	n.Token = ""
	return nil
}
