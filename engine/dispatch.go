package engine

import (
	"fmt"

	"midiosc/debug"
	"midiosc/mapping"
)

// Result summarizes one Process call.
type Result struct {
	Matched int
	Sent    int
	Failed  int
}

// Dispatcher sends the OSC commands of every mapping an event matches.
type Dispatcher struct {
	store  Store
	sink   Sink
	tracks TrackResolver
}

func NewDispatcher(store Store, sink Sink, tracks TrackResolver) *Dispatcher {
	return &Dispatcher{store: store, sink: sink, tracks: tracks}
}

// Process fires all enabled mappings that match msg from sourceDevice, in
// store order. Only a failure to load mappings is returned; a mapping whose
// command cannot be built or sent is logged and skipped so the others still
// fire.
func (d *Dispatcher) Process(msg mapping.Message, sourceDevice string) (Result, error) {
	var res Result

	all, err := d.store.All()
	if err != nil {
		return res, fmt.Errorf("failed to get mappings: %w", err)
	}

	for _, m := range all {
		if !m.Matches(msg, sourceDevice) {
			continue
		}
		res.Matched++

		cmd, err := Apply(m, msg, d.tracks)
		if err != nil {
			res.Failed++
			debug.Log("dispatch", "mapping %s: %v", m.ID(), err)
			continue
		}
		if err := d.sink.Send(cmd); err != nil {
			res.Failed++
			debug.Log("dispatch", "mapping %s: send %s: %v", m.ID(), cmd, err)
			continue
		}
		res.Sent++
		debug.Log("dispatch", "%s from %q -> %s", msg, sourceDevice, cmd)
	}

	return res, nil
}

// Handle is a MessageSource handler that runs Process and logs load
// failures.
func (d *Dispatcher) Handle(msg mapping.Message, device string) {
	if _, err := d.Process(msg, device); err != nil {
		debug.Log("dispatch", "%v", err)
	}
}
