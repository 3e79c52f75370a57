package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when events arrive faster than plugins run.
	ErrQueueFull = errors.New("plugin queue full")
	// ErrNotRunning is returned by Dispatch before Start or after Stop.
	ErrNotRunning = errors.New("plugin dispatcher not running")
)

// DefaultQueueSize is the number of events a Dispatcher buffers.
const DefaultQueueSize = 64

type job struct {
	plugin *Plugin
	req    Request
}

// Dispatcher delivers binding events to plugins without blocking the caller.
// Events are executed one at a time in arrival order, so a plugin always sees
// a press before its release.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	settings map[string]json.RawMessage
	log      *zap.Logger

	queue chan job

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDispatcher returns a stopped dispatcher. settings maps plugin names to
// the config object sent with each request.
func NewDispatcher(m *Manager, e *Executor, settings map[string]json.RawMessage, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		manager:  m,
		executor: e,
		settings: settings,
		log:      log.Named("plugin"),
		queue:    make(chan job, DefaultQueueSize),
	}
}

// Resolve checks that plugin exists and declares action.
func (d *Dispatcher) Resolve(plugin, action string) error {
	return d.manager.Resolve(plugin, action)
}

// Dispatch queues one event and returns immediately.
func (d *Dispatcher) Dispatch(plugin, action, binding, event string) error {
	p, err := d.manager.Get(plugin)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- job{plugin: p, req: Request{Action: action, Binding: binding, Event: event, Config: d.settings[plugin]}}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the delivery goroutine until ctx ends or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.run(ctx, d.stopCh, d.doneCh)
}

// Stop cancels the event in flight, waits for it and drops the rest.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()

	<-done

	dropped := 0
	for len(d.queue) > 0 {
		<-d.queue
		dropped++
	}
	if dropped > 0 {
		d.log.Warn("dropped queued plugin events", zap.Int("count", dropped))
	}
}

func (d *Dispatcher) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-d.queue:
			d.execute(ctx, j)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	fields := []zap.Field{
		zap.String("plugin", j.plugin.Manifest.Name),
		zap.String("action", j.req.Action),
		zap.String("binding", j.req.Binding),
		zap.String("event", j.req.Event),
	}
	resp, err := d.executor.Execute(ctx, j.plugin, &j.req)
	if err != nil {
		d.log.Warn("plugin failed", append(fields, zap.Error(err))...)
		return
	}
	if !resp.Success {
		d.log.Warn("plugin reported failure", append(fields, zap.String("error", resp.Error))...)
		return
	}
	d.log.Debug("plugin event delivered", fields...)
}
