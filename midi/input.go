// Package midi reads MIDI input ports through gomidi and hands decoded
// events to subscribers.
package midi

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"midiosc/debug"
	"midiosc/mapping"
)

// AllDevices opens every input port.
const AllDevices = "all"

// ListTimeout bounds port enumeration, which can hang on CoreMIDI.
const ListTimeout = 3 * time.Second

// DeviceInfo describes an input port.
type DeviceInfo struct {
	Name string
	ID   string
}

// Handler receives a decoded event and the name of the port it came from.
type Handler = func(msg mapping.Message, device string)

type handlerEntry struct {
	id int
	fn Handler
}

// Input owns the open input ports and the subscriber list.
type Input struct {
	mu       sync.RWMutex
	open     map[string]func()
	handlers []handlerEntry
	nextID   int

	listPorts func() []string
	listen    func(name string, recv func(gomidi.Message, int32)) (func(), error)
}

func NewInput() *Input {
	return &Input{
		open:      make(map[string]func()),
		listPorts: inPortNames,
		listen:    listenTo,
	}
}

func inPortNames() []string {
	var names []string
	for _, p := range gomidi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}

func listenTo(name string, recv func(gomidi.Message, int32)) (func(), error) {
	in, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, err
	}
	return gomidi.ListenTo(in, recv)
}

// Devices lists the input ports, giving up after ListTimeout.
func (in *Input) Devices() ([]DeviceInfo, error) {
	names, err := in.portNames()
	if err != nil {
		return nil, err
	}
	devices := make([]DeviceInfo, len(names))
	for i, name := range names {
		devices[i] = DeviceInfo{Name: name, ID: strconv.Itoa(i)}
	}
	return devices, nil
}

func (in *Input) portNames() ([]string, error) {
	ch := make(chan []string, 1)
	go func() {
		ch <- in.listPorts()
	}()

	select {
	case names := <-ch:
		return names, nil
	case <-time.After(ListTimeout):
		return nil, fmt.Errorf("failed to get MIDI devices: port enumeration timed out after %s", ListTimeout)
	}
}

// Open starts listening on the named port, or on every port for
// AllDevices. Reopening a port replaces its listener.
func (in *Input) Open(name string) error {
	if name != AllDevices {
		return in.openPort(name)
	}

	names, err := in.portNames()
	if err != nil {
		return err
	}
	var failed int
	for _, n := range names {
		if err := in.openPort(n); err != nil {
			failed++
			debug.Log("midi", "%v", err)
		}
	}
	debug.Log("midi", "opened %d of %d inputs", len(names)-failed, len(names))
	return nil
}

func (in *Input) openPort(name string) error {
	in.Close(name)

	stop, err := in.listen(name, func(msg gomidi.Message, _ int32) {
		in.receive(msg, name)
	})
	if err != nil {
		return fmt.Errorf("failed to open MIDI device %s: %w", name, err)
	}

	in.mu.Lock()
	in.open[name] = stop
	in.mu.Unlock()

	debug.Log("midi", "opened %s", name)
	return nil
}

// Close stops listening on name. Closing a port that is not open is a no-op.
func (in *Input) Close(name string) {
	in.mu.Lock()
	stop, ok := in.open[name]
	delete(in.open, name)
	in.mu.Unlock()

	if ok {
		stop()
		debug.Log("midi", "closed %s", name)
	}
}

// CloseAll stops every open port.
func (in *Input) CloseAll() {
	for _, name := range in.OpenDevices() {
		in.Close(name)
	}
}

// OpenDevices returns the names of the open ports, sorted.
func (in *Input) OpenDevices() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	names := make([]string, 0, len(in.open))
	for name := range in.open {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (in *Input) IsOpen() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.open) > 0
}

// Subscribe adds h to the end of the handler list and returns its id.
func (in *Input) Subscribe(h func(msg mapping.Message, device string)) int {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.nextID++
	in.handlers = append(in.handlers, handlerEntry{id: in.nextID, fn: h})
	return in.nextID
}

func (in *Input) Unsubscribe(id int) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for i, h := range in.handlers {
		if h.id == id {
			in.handlers = append(in.handlers[:i:i], in.handlers[i+1:]...)
			return
		}
	}
}

func (in *Input) receive(raw gomidi.Message, device string) {
	msg, ok := Decode(raw)
	if !ok {
		debug.LogEvery(100, "midi", "ignored %s from %q", raw, device)
		return
	}
	in.Deliver(msg, device)
}

// Deliver hands msg to every handler in subscription order. Handlers run
// outside the lock, so they may subscribe or unsubscribe. A panicking
// handler is logged and does not stop the others.
func (in *Input) Deliver(msg mapping.Message, device string) {
	in.mu.RLock()
	handlers := append([]handlerEntry(nil), in.handlers...)
	in.mu.RUnlock()

	for _, h := range handlers {
		call(h.fn, msg, device)
	}
}

func call(fn Handler, msg mapping.Message, device string) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("midi", "handler panic on %s: %v", msg, r)
		}
	}()
	fn(msg, device)
}
