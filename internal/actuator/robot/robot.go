// Package robot is the OS input backend built on robotgo.
package robot

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Backend drives the real pointer and keyboard.
type Backend struct{}

// New returns the OS backend.
func New() *Backend {
	return &Backend{}
}

// ScreenSize returns the main display size in pixels.
func ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

func (b *Backend) MoveRelative(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

func (b *Backend) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (b *Backend) Position() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (b *Backend) Scroll(dx, dy int) error {
	robotgo.Scroll(dx, dy)
	return nil
}

func (b *Backend) Button(button string, down bool) error {
	name := button
	if button == "middle" {
		name = "center"
	}
	var err error
	if down {
		err = robotgo.Toggle(name)
	} else {
		err = robotgo.Toggle(name, "up")
	}
	if err != nil {
		return fmt.Errorf("toggle %s button: %w", button, err)
	}
	return nil
}

func (b *Backend) Key(key string, down bool) error {
	dir := "down"
	if !down {
		dir = "up"
	}
	if err := robotgo.KeyToggle(key, dir); err != nil {
		return fmt.Errorf("toggle key %s: %w", key, err)
	}
	return nil
}
