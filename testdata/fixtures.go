// Package testdata provides scripted hand sequences for end-to-end tests.
// A sequence lists one entry per frame; each entry places a canned pose for
// either hand at an offset from its resting position.
package testdata

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

//go:embed sequences/*.yaml
var sequencesFS embed.FS

// HandStep places one hand in a frame.
type HandStep struct {
	Pose string  `yaml:"pose"`
	DX   float64 `yaml:"dx,omitempty"`
	DY   float64 `yaml:"dy,omitempty"`
}

// Step is one frame, optionally repeated. A step with neither hand is a
// frame where tracking sees nothing.
type Step struct {
	Left   *HandStep `yaml:"left,omitempty"`
	Right  *HandStep `yaml:"right,omitempty"`
	Repeat int       `yaml:"repeat,omitempty"`
}

type sequence struct {
	Frames []Step `yaml:"frames"`
}

var poses = map[string]func(hand.Label) detector.HandLandmarks{
	"open":  detector.OpenPalmLandmarks,
	"fist":  detector.FistLandmarks,
	"pinch": detector.PinchLandmarks,
}

// LoadSequence loads sequences/<name>.yaml and returns the hands of every
// frame in order.
func LoadSequence(name string) ([][]detector.HandLandmarks, error) {
	data, err := sequencesFS.ReadFile("sequences/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}
	var seq sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse sequence %s: %w", name, err)
	}

	var frames [][]detector.HandLandmarks
	for i, step := range seq.Frames {
		var hands []detector.HandLandmarks
		for _, h := range []struct {
			label hand.Label
			step  *HandStep
		}{{hand.Left, step.Left}, {hand.Right, step.Right}} {
			if h.step == nil {
				continue
			}
			lm, err := place(h.label, *h.step)
			if err != nil {
				return nil, fmt.Errorf("sequence %s frame %d: %w", name, i, err)
			}
			hands = append(hands, lm)
		}
		for n := max(step.Repeat, 1); n > 0; n-- {
			frames = append(frames, hands)
		}
	}
	return frames, nil
}

func place(label hand.Label, s HandStep) (detector.HandLandmarks, error) {
	pose, ok := poses[s.Pose]
	if !ok {
		return detector.HandLandmarks{}, fmt.Errorf("unknown pose %q", s.Pose)
	}
	lm := pose(label)
	for i := range lm.Points {
		lm.Points[i].X += s.DX
		lm.Points[i].Y += s.DY
	}
	return lm, nil
}
