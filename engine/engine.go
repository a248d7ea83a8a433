// Package engine turns MIDI events into OSC commands: it matches events
// against stored mappings, fills in command parameters and runs learn mode.
package engine

import "midiosc/mapping"

// Store persists mappings. All returns mappings in a stable order, which
// is the order matches fire in.
type Store interface {
	All() ([]mapping.Mapping, error)
	Get(id string) (mapping.Mapping, error)
	Save(m mapping.Mapping) error
	Update(m mapping.Mapping) error
	Delete(id string) error
	Exists(id string) (bool, error)
}

// Sink sends OSC commands.
type Sink interface {
	Send(cmd mapping.Command) error
}

// TrackResolver looks up track indices by name.
type TrackResolver interface {
	ResolveName(name string) (int, error)
}

// MessageSource delivers decoded MIDI events with the name of the device
// they came from. Handlers are called in subscription order.
type MessageSource interface {
	Subscribe(h func(msg mapping.Message, device string)) int
	Unsubscribe(id int)
}
