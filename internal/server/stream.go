package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamInterval is the pause between MJPEG parts (~15 fps).
const StreamInterval = 66 * time.Millisecond

// Frames provides the capture loop's latest frame as JPEG. Frames are only
// kept while at least one Watch is active.
type Frames interface {
	Watch() (stop func())
	LatestJPEG() ([]byte, bool)
}

// StreamHandler serves MJPEG frames from the capture loop.
type StreamHandler struct {
	frames Frames
}

// NewStreamHandler creates a new StreamHandler over frames.
func NewStreamHandler(frames Frames) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stop := h.frames.Watch()
	defer stop()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		buf, ok := h.frames.LatestJPEG()
		if !ok || sameFrame(buf, last) {
			continue
		}
		last = buf

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		if _, err := w.Write(buf); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// sameFrame reports whether a and b are the same buffer. The capture loop
// replaces the buffer for every frame, so identity is enough.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
