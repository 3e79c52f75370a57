// Command keyboard is a mudra plugin that sends keystrokes and held
// modifiers on macOS via AppleScript.
//
// Its settings map binding ids to the key they send:
//
//	plugins:
//	  settings:
//	    keyboard:
//	      pinch: {key: c, modifiers: [cmd]}
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
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

// Keystroke is the key a binding sends.
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

var errNoKey = errors.New("key is required")

var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// modifierKeyCodes are the virtual key codes used to hold a modifier.
var modifierKeyCodes = map[string]int{
	"command": 55,
	"cmd":     55,
	"shift":   56,
	"option":  58,
	"alt":     58,
	"control": 59,
	"ctrl":    59,
}

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, runAppleScript))
}

// handle decodes one request and runs the script it calls for, if any.
func handle(r io.Reader, run func(script string) error) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	script, err := scriptFor(req)
	if err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	if script == "" {
		return Response{Success: true}
	}
	if err := run(script); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}
	return Response{Success: true}
}

// scriptFor returns the AppleScript for a request. An empty script means the
// event needs no action.
func scriptFor(req Request) (string, error) {
	var bindings map[string]Keystroke
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &bindings); err != nil {
			return "", fmt.Errorf("invalid settings: %w", err)
		}
	}
	ks := bindings[req.Binding]

	switch req.Action {
	case "keystroke", "shortcut":
		if req.Event == "up" {
			return "", nil
		}
		if ks.Key == "" {
			return "", fmt.Errorf("%w for binding %q", errNoKey, req.Binding)
		}
		return buildKeystrokeScript(ks.Key, ks.Modifiers), nil

	case "hold":
		code, ok := modifierKeyCodes[strings.ToLower(ks.Key)]
		if !ok {
			return "", fmt.Errorf("cannot hold %q", ks.Key)
		}
		verb := "key down"
		if req.Event == "up" {
			verb = "key up"
		} else if req.Event == "fire" {
			return "", fmt.Errorf("hold needs down and up events")
		}
		return fmt.Sprintf("tell application \"System Events\" to %s (key code %d)", verb, code), nil
	}
	return "", fmt.Errorf("unknown action: %s", req.Action)
}

func buildKeystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(appleModifiers, ", "))
}

func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
