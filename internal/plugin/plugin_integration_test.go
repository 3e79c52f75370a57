package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestPlugin_SystemControl_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS != "darwin" {
		t.Skip("system-control plugin only works on macOS")
	}

	plug := builtPlugin(t, "system-control")

	// An unknown action has no side effects.
	resp, err := NewExecutor(5000).Execute(context.Background(), plug, &Request{
		Action:  "invalid-action",
		Binding: "test",
		Event:   "down",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for invalid action")
	}
}

func TestPlugin_Keyboard_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS != "darwin" {
		t.Skip("keyboard plugin only works on macOS")
	}

	plug := builtPlugin(t, "keyboard")

	// A binding with no configured key fails before any keystroke is sent.
	resp, err := NewExecutor(5000).Execute(context.Background(), plug, &Request{
		Action:  "keystroke",
		Binding: "unconfigured",
		Event:   "down",
		Config:  json.RawMessage(`{"pinch":{"key":"c"}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for unconfigured binding")
	}
}

// builtPlugin returns the named plugin from the repository's plugins
// directory, skipping the test when its executable has not been built.
func builtPlugin(t *testing.T, name string) *Plugin {
	t.Helper()
	for _, root := range []string{"../../plugins", "../../../plugins"} {
		if _, err := os.Stat(filepath.Join(root, name, "plugin.json")); err != nil {
			continue
		}
		mgr := NewManager(root, nil)
		if err := mgr.Discover(); err != nil {
			t.Fatalf("Discover() error = %v", err)
		}
		plug, err := mgr.Get(name)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if _, err := os.Stat(plug.Executable); err != nil {
			t.Skipf("%s plugin not built", name)
		}
		return plug
	}
	t.Skipf("%s plugin not found", name)
	return nil
}
