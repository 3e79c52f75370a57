package actuator

import (
	"strings"
	"unicode/utf8"
)

// Buttons are the mouse buttons the vocabulary knows.
var Buttons = map[string]bool{"left": true, "right": true, "middle": true}

// namedKeys maps accepted key spellings to canonical names.
var namedKeys = map[string]string{
	"enter":     "enter",
	"return":    "enter",
	"space":     "space",
	"tab":       "tab",
	"esc":       "esc",
	"escape":    "esc",
	"backspace": "backspace",
	"delete":    "delete",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"home":      "home",
	"end":       "end",
	"pageup":    "pageup",
	"page_up":   "pageup",
	"pagedown":  "pagedown",
	"page_down": "pagedown",
	"shift":     "shift",
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"option":    "alt",
	"cmd":       "cmd",
	"command":   "cmd",
	"super":     "cmd",
	"win":       "cmd",
	"f1":        "f1",
	"f2":        "f2",
	"f3":        "f3",
	"f4":        "f4",
	"f5":        "f5",
	"f6":        "f6",
	"f7":        "f7",
	"f8":        "f8",
	"f9":        "f9",
	"f10":       "f10",
	"f11":       "f11",
	"f12":       "f12",

	"audio_vol_up":      "audio_vol_up",
	"media_volume_up":   "audio_vol_up",
	"audio_vol_down":    "audio_vol_down",
	"media_volume_down": "audio_vol_down",
	"audio_mute":        "audio_mute",
	"media_volume_mute": "audio_mute",
	"audio_play":        "audio_play",
	"media_play_pause":  "audio_play",
	"audio_next":        "audio_next",
	"media_next":        "audio_next",
	"audio_prev":        "audio_prev",
	"media_previous":    "audio_prev",
}

// CanonicalKey returns the canonical name for a key spelling. Single
// characters are accepted as-is.
func CanonicalKey(name string) (string, bool) {
	n := strings.ToLower(name)
	if c, ok := namedKeys[n]; ok {
		return c, true
	}
	if utf8.RuneCountInString(name) == 1 {
		return name, true
	}
	return "", false
}
