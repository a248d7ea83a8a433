package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"midiosc/mapping"
)

// Decode turns a raw MIDI message into a note, control change or program
// change. Note off, and note on with velocity 0, become a note with
// velocity 0. Channels are reported 1-16. Anything else is ignored.
func Decode(msg gomidi.Message) (mapping.Message, bool) {
	var channel, key, velocity, controller, value, program uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		m, err := mapping.NewNote(int(key), int(velocity), int(channel)+1)
		return m, err == nil
	case msg.GetNoteOff(&channel, &key, &velocity):
		m, err := mapping.NewNote(int(key), 0, int(channel)+1)
		return m, err == nil
	case msg.GetControlChange(&channel, &controller, &value):
		m, err := mapping.NewControlChange(int(controller), int(value), int(channel)+1)
		return m, err == nil
	case msg.GetProgramChange(&channel, &program):
		m, err := mapping.NewProgramChange(int(program), int(channel)+1)
		return m, err == nil
	}
	return nil, false
}
