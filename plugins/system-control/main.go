// Command system-control is a mudra plugin for volume, brightness and media
// keys on macOS. It acts when a binding presses and ignores the release.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Request is one binding event read from stdin.
type Request struct {
	Action  string          `json:"action"`
	Binding string          `json:"binding"`
	Event   string          `json:"event"`
	Config  json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings come from the plugins.settings.system-control section of the
// mudra configuration.
type Settings struct {
	// VolumeStep is the change in percent per volume event.
	VolumeStep int `json:"volume_step"`
}

const defaultVolumeStep = 10

type handler func(s Settings) string

var handlers = map[string]handler{
	"volume-up": func(s Settings) string {
		return fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) + %d)`, s.VolumeStep)
	},
	"volume-down": func(s Settings) string {
		return fmt.Sprintf(`set volume output volume ((output volume of (get volume settings)) - %d)`, s.VolumeStep)
	},
	"volume-mute":      func(Settings) string { return `set volume output muted (not (output muted of (get volume settings)))` },
	"brightness-up":    keyCode(144),
	"brightness-down":  keyCode(145),
	"media-play-pause": keyCode(100),
	"media-next":       keyCode(101),
	"media-prev":       keyCode(98),
}

func keyCode(code int) handler {
	return func(Settings) string {
		return fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
	}
}

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, runAppleScript))
}

// handle decodes one request and runs the script for its action.
func handle(r io.Reader, run func(script string) error) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	h, ok := handlers[req.Action]
	if !ok {
		return Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
	if req.Event == "up" {
		return Response{Success: true}
	}

	s := Settings{VolumeStep: defaultVolumeStep}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &s); err != nil {
			return Response{Error: fmt.Sprintf("invalid settings: %v", err)}
		}
		if s.VolumeStep <= 0 {
			s.VolumeStep = defaultVolumeStep
		}
	}

	if err := run(h(s)); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return Response{Success: true}
}

func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
