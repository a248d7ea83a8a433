package midi

import (
	"context"
	"time"

	"midiosc/debug"
)

// DeviceEvent is emitted when an input port appears or disappears
type DeviceEvent struct {
	Type DeviceEventType
	Name string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// Watcher polls the input ports for hot-plug changes. With a follow
// target set it reopens that port (or any port for AllDevices) when it
// comes back.
type Watcher struct {
	input    *Input
	follow   string
	events   chan DeviceEvent
	pollRate time.Duration
	seen     map[string]bool
}

// NewWatcher creates a watcher; follow may be empty to only report events
func NewWatcher(input *Input, follow string) *Watcher {
	return &Watcher{
		input:    input,
		follow:   follow,
		events:   make(chan DeviceEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns a channel of connect/disconnect events
func (w *Watcher) Events() <-chan DeviceEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	// Initial scan only records what is there
	if names, err := w.input.portNames(); err == nil {
		w.seen = toSet(names)
	}

	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	names, err := w.input.portNames()
	if err != nil {
		// Enumeration hung - skip this scan
		debug.Log("midi", "%v", err)
		return
	}
	now := toSet(names)

	for _, name := range names {
		if w.seen[name] {
			continue
		}
		w.emit(DeviceEvent{Type: DeviceConnected, Name: name})
		if w.follow == AllDevices || w.follow == name {
			if err := w.input.openPort(name); err != nil {
				debug.Log("midi", "reconnect: %v", err)
			}
		}
	}

	for name := range w.seen {
		if now[name] {
			continue
		}
		w.input.Close(name)
		w.emit(DeviceEvent{Type: DeviceDisconnected, Name: name})
	}

	w.seen = now
}

func (w *Watcher) emit(ev DeviceEvent) {
	debug.Log("midi", "%s %s", ev.Name, ev.Type)
	select {
	case w.events <- ev:
	default:
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
