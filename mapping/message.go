package mapping

import "fmt"

// Kind tags the variant of a Message or Trigger. The values double as the
// persisted type tag.
type Kind string

const (
	KindNote          Kind = "note"
	KindCC            Kind = "cc"
	KindProgramChange Kind = "program_change"
)

func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindCC, KindProgramChange:
		return true
	}
	return false
}

// Message is a decoded MIDI event: one of Note, ControlChange or
// ProgramChange.
type Message interface {
	Kind() Kind
	Channel() int
	String() string

	message()
}

var (
	_ Message = Note{}
	_ Message = ControlChange{}
	_ Message = ProgramChange{}
)

// Note is a note on/off event. Note off is carried as velocity 0.
type Note struct {
	number, velocity, channel uint8
}

func NewNote(number, velocity, channel int) (Note, error) {
	if err := checkData("MIDI note", number); err != nil {
		return Note{}, err
	}
	if err := checkData("velocity", velocity); err != nil {
		return Note{}, err
	}
	if err := checkChannel(channel); err != nil {
		return Note{}, err
	}
	return Note{number: uint8(number), velocity: uint8(velocity), channel: uint8(channel)}, nil
}

func (n Note) Kind() Kind     { return KindNote }
func (n Note) Number() int    { return int(n.number) }
func (n Note) Velocity() int  { return int(n.velocity) }
func (n Note) Channel() int   { return int(n.channel) }
func (n Note) IsNoteOn() bool { return n.velocity > 0 }
func (n Note) IsNoteOff() bool {
	return n.velocity == 0
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name returns the note name with octave, middle C (60) being C4.
func (n Note) Name() string {
	return fmt.Sprintf("%s%d", noteNames[n.number%12], int(n.number)/12-1)
}

func (n Note) String() string {
	return fmt.Sprintf("Note %s (%d) vel:%d ch:%d", n.Name(), n.number, n.velocity, n.channel)
}

func (Note) message() {}

// ControlChange is a CC event.
type ControlChange struct {
	controller, value, channel uint8
}

func NewControlChange(controller, value, channel int) (ControlChange, error) {
	if err := checkData("MIDI CC controller", controller); err != nil {
		return ControlChange{}, err
	}
	if err := checkData("CC value", value); err != nil {
		return ControlChange{}, err
	}
	if err := checkChannel(channel); err != nil {
		return ControlChange{}, err
	}
	return ControlChange{controller: uint8(controller), value: uint8(value), channel: uint8(channel)}, nil
}

func (c ControlChange) Kind() Kind      { return KindCC }
func (c ControlChange) Controller() int { return int(c.controller) }
func (c ControlChange) Value() int      { return int(c.value) }
func (c ControlChange) Channel() int    { return int(c.channel) }

// Normalized returns the value scaled to 0..1.
func (c ControlChange) Normalized() float64 {
	return float64(c.value) / 127
}

func (c ControlChange) String() string {
	return fmt.Sprintf("CC%d:%d ch:%d", c.controller, c.value, c.channel)
}

func (ControlChange) message() {}

// ProgramChange is a program change event.
type ProgramChange struct {
	program, channel uint8
}

func NewProgramChange(program, channel int) (ProgramChange, error) {
	if err := checkData("MIDI program", program); err != nil {
		return ProgramChange{}, err
	}
	if err := checkChannel(channel); err != nil {
		return ProgramChange{}, err
	}
	return ProgramChange{program: uint8(program), channel: uint8(channel)}, nil
}

func (p ProgramChange) Kind() Kind   { return KindProgramChange }
func (p ProgramChange) Program() int { return int(p.program) }
func (p ProgramChange) Channel() int { return int(p.channel) }

func (p ProgramChange) String() string {
	return fmt.Sprintf("PC%d ch:%d", p.program, p.channel)
}

func (ProgramChange) message() {}
