package actuator

import (
	"sync"

	"go.uber.org/zap"
)

// Axis selects a pointer axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// Backend performs the OS-level input operations. Buttons are "left",
// "right" or "middle"; keys use the canonical names from CanonicalKey.
type Backend interface {
	MoveRelative(dx, dy int) error
	MoveTo(x, y int) error
	Position() (x, y int, err error)
	Scroll(dx, dy int) error
	Button(button string, down bool) error
	Key(key string, down bool) error
}

// LogBackend logs every operation instead of performing it. It keeps a
// virtual pointer so absolute moves along one axis are coherent.
type LogBackend struct {
	log  *zap.Logger
	mu   sync.Mutex
	x, y int
}

// NewLogBackend returns a dry-run backend.
func NewLogBackend(log *zap.Logger) *LogBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogBackend{log: log.Named("dry-run")}
}

func (b *LogBackend) MoveRelative(dx, dy int) error {
	b.mu.Lock()
	b.x += dx
	b.y += dy
	b.mu.Unlock()
	b.log.Info("move", zap.Int("dx", dx), zap.Int("dy", dy))
	return nil
}

func (b *LogBackend) MoveTo(x, y int) error {
	b.mu.Lock()
	b.x, b.y = x, y
	b.mu.Unlock()
	b.log.Info("move to", zap.Int("x", x), zap.Int("y", y))
	return nil
}

func (b *LogBackend) Position() (int, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.x, b.y, nil
}

func (b *LogBackend) Scroll(dx, dy int) error {
	b.log.Info("scroll", zap.Int("dx", dx), zap.Int("dy", dy))
	return nil
}

func (b *LogBackend) Button(button string, down bool) error {
	b.log.Info("button", zap.String("button", button), zap.Bool("down", down))
	return nil
}

func (b *LogBackend) Key(key string, down bool) error {
	b.log.Info("key", zap.String("key", key), zap.Bool("down", down))
	return nil
}

// Call is one operation seen by a Recorder.
type Call struct {
	Op   string
	Args []any
}

// Recorder is a Backend that records calls for inspection. Err, when set, is
// returned from every operation.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	x, y  int
	Err   error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(op string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	return r.Err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) MoveRelative(dx, dy int) error { return r.add("move", dx, dy) }

func (r *Recorder) MoveTo(x, y int) error {
	r.mu.Lock()
	r.x, r.y = x, y
	r.mu.Unlock()
	return r.add("move_to", x, y)
}

func (r *Recorder) Position() (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, nil
}

func (r *Recorder) Scroll(dx, dy int) error { return r.add("scroll", dx, dy) }

func (r *Recorder) Button(button string, down bool) error { return r.add("button", button, down) }

func (r *Recorder) Key(key string, down bool) error { return r.add("key", key, down) }
