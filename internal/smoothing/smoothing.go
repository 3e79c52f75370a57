// Package smoothing denoises hand landmarks with a trailing time-window average.
package smoothing

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/mudra/internal/hand"
)

// newestWeight is the weight of the most recent sample; older samples weigh 1.
const newestWeight = 3

type sample struct {
	atMs int64
	snap hand.Snapshot
}

// Window is the trailing history of one hand.
type Window struct {
	spanMs  int64
	samples []sample
}

// NewWindow returns a window that keeps samples no older than spanMs.
func NewWindow(spanMs int64) *Window {
	return &Window{spanMs: spanMs}
}

// Push adds s, drops samples older than nowMs-span and returns the smoothed
// snapshot.
func (w *Window) Push(nowMs int64, s hand.Snapshot) (hand.Snapshot, bool) {
	w.samples = append(w.samples, sample{atMs: nowMs, snap: s})
	w.prune(nowMs)
	return w.Smoothed()
}

func (w *Window) prune(nowMs int64) {
	cutoff := nowMs - w.spanMs
	i := 0
	for i < len(w.samples) && w.samples[i].atMs < cutoff {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

// Smoothed returns the recency-weighted mean of the retained samples, carrying
// the newest sample's label and frame. It reports false when empty.
func (w *Window) Smoothed() (hand.Snapshot, bool) {
	n := len(w.samples)
	if n == 0 {
		return hand.Snapshot{}, false
	}
	newest := w.samples[n-1].snap
	total := float64(n - 1 + newestWeight)

	var avg [hand.NumLandmarks]r3.Vector
	for i := range avg {
		sum := newest.Landmarks[i].Mul(newestWeight)
		for _, smp := range w.samples[:n-1] {
			sum = sum.Add(smp.snap.Landmarks[i])
		}
		avg[i] = sum.Mul(1 / total)
	}
	return newest.WithLandmarks(avg), true
}

// Len returns the number of retained samples.
func (w *Window) Len() int { return len(w.samples) }

// Index keeps one window per hand label.
type Index struct {
	spanMs  int64
	windows map[hand.Label]*Window
}

// NewIndex returns an index whose windows span spanMs.
func NewIndex(spanMs int64) *Index {
	return &Index{spanMs: spanMs, windows: make(map[hand.Label]*Window)}
}

// Smooth pushes s into its label's window and returns the smoothed snapshot.
func (x *Index) Smooth(nowMs int64, s hand.Snapshot) hand.Snapshot {
	w, ok := x.windows[s.Label]
	if !ok {
		w = NewWindow(x.spanMs)
		x.windows[s.Label] = w
	}
	out, _ := w.Push(nowMs, s)
	return out
}

// SmoothAll smooths every snapshot of one frame, preserving order. The
// window of a label absent from hands is discarded, so a hand that returns
// starts from a fresh history.
func (x *Index) SmoothAll(nowMs int64, hands []hand.Snapshot) []hand.Snapshot {
	out := make([]hand.Snapshot, len(hands))
	present := make(map[hand.Label]bool, len(hands))
	for i, s := range hands {
		out[i] = x.Smooth(nowMs, s)
		present[s.Label] = true
	}
	for label := range x.windows {
		if !present[label] {
			delete(x.windows, label)
		}
	}
	return out
}

// Tracking reports whether label has a live window.
func (x *Index) Tracking(label hand.Label) bool {
	_, ok := x.windows[label]
	return ok
}
