package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ProbeInterval is the websocket push period (~15 Hz).
const ProbeInterval = 66 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Snapshotter produces the document pushed to websocket clients.
type Snapshotter interface {
	Snapshot() any
}

// ProbesHandler pushes binding probes to each websocket client.
type ProbesHandler struct {
	source   Snapshotter
	interval time.Duration
	log      *zap.Logger
}

// NewProbesHandler creates a ProbesHandler pushing source's snapshots.
func NewProbesHandler(source Snapshotter, log *zap.Logger) *ProbesHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProbesHandler{source: source, interval: ProbeInterval, log: log}
}

// ServeHTTP upgrades the connection and writes a snapshot every interval
// until the client goes away.
func (h *ProbesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reading detects the close; clients send nothing else.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(h.source.Snapshot()); err != nil {
				h.log.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}
