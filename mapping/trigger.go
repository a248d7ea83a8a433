package mapping

import "fmt"

// Range is an inclusive [Min, Max] bound on a velocity or CC value.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func NewRange(min, max int) (Range, error) {
	r := Range{Min: min, Max: max}
	return r, r.Validate()
}

func (r Range) Validate() error {
	if err := checkData("range bound", r.Min); err != nil {
		return err
	}
	if err := checkData("range bound", r.Max); err != nil {
		return err
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: range [%d,%d] has min above max", ErrValidation, r.Min, r.Max)
	}
	return nil
}

func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Trigger is the MIDI condition that activates a mapping: a NoteTrigger,
// CCTrigger or ProgramTrigger.
type Trigger interface {
	Kind() Kind
	MidiChannel() Channel
	String() string
	Validate() error

	trigger()
}

var (
	_ Trigger = NoteTrigger{}
	_ Trigger = CCTrigger{}
	_ Trigger = ProgramTrigger{}
)

type NoteTrigger struct {
	Note          int
	Channel       Channel
	VelocityRange *Range
}

func NewNoteTrigger(note int, ch Channel, velocity *Range) (NoteTrigger, error) {
	t := NoteTrigger{Note: note, Channel: ch, VelocityRange: copyRange(velocity)}
	return t, t.Validate()
}

func (t NoteTrigger) Kind() Kind           { return KindNote }
func (t NoteTrigger) MidiChannel() Channel { return t.Channel }

func (t NoteTrigger) Validate() error {
	if err := checkData("MIDI note", t.Note); err != nil {
		return err
	}
	if t.VelocityRange != nil {
		return t.VelocityRange.Validate()
	}
	return nil
}

func (t NoteTrigger) String() string {
	return fmt.Sprintf("Note %d %s", t.Note, t.Channel)
}

func (NoteTrigger) trigger() {}

type CCTrigger struct {
	Controller int
	Channel    Channel
	ValueRange *Range
}

func NewCCTrigger(controller int, ch Channel, value *Range) (CCTrigger, error) {
	t := CCTrigger{Controller: controller, Channel: ch, ValueRange: copyRange(value)}
	return t, t.Validate()
}

func (t CCTrigger) Kind() Kind           { return KindCC }
func (t CCTrigger) MidiChannel() Channel { return t.Channel }

func (t CCTrigger) Validate() error {
	if err := checkData("MIDI CC controller", t.Controller); err != nil {
		return err
	}
	if t.ValueRange != nil {
		return t.ValueRange.Validate()
	}
	return nil
}

func (t CCTrigger) String() string {
	return fmt.Sprintf("CC %d %s", t.Controller, t.Channel)
}

func (CCTrigger) trigger() {}

type ProgramTrigger struct {
	Program int
	Channel Channel
}

func NewProgramTrigger(program int, ch Channel) (ProgramTrigger, error) {
	t := ProgramTrigger{Program: program, Channel: ch}
	return t, t.Validate()
}

func (t ProgramTrigger) Kind() Kind           { return KindProgramChange }
func (t ProgramTrigger) MidiChannel() Channel { return t.Channel }

func (t ProgramTrigger) Validate() error {
	return checkData("MIDI program", t.Program)
}

func (t ProgramTrigger) String() string {
	return fmt.Sprintf("PC %d %s", t.Program, t.Channel)
}

func (ProgramTrigger) trigger() {}

// TriggerFor builds the unrestricted trigger that matches msg exactly:
// same note, controller or program on the same channel, no range.
func TriggerFor(msg Message) Trigger {
	ch := Channel{n: msg.Channel()}
	switch m := msg.(type) {
	case Note:
		return NoteTrigger{Note: m.Number(), Channel: ch}
	case ControlChange:
		return CCTrigger{Controller: m.Controller(), Channel: ch}
	case ProgramChange:
		return ProgramTrigger{Program: m.Program(), Channel: ch}
	}
	panic(fmt.Sprintf("mapping: unknown message type %T", msg))
}

func cloneTrigger(t Trigger) Trigger {
	switch t := t.(type) {
	case NoteTrigger:
		t.VelocityRange = copyRange(t.VelocityRange)
		return t
	case CCTrigger:
		t.ValueRange = copyRange(t.ValueRange)
		return t
	}
	return t
}

func copyRange(r *Range) *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
