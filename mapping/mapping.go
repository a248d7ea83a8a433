package mapping

import "fmt"

// Params holds the fields of a new Mapping.
type Params struct {
	ID                string
	Name              string
	Trigger           Trigger
	Command           Command
	ParameterMappings []ParameterMapping
	Enabled           bool

	// Device binds the mapping to one MIDI input. Empty means any device.
	Device string
}

// Mapping binds a MIDI trigger to an OSC command. A Mapping is immutable;
// the With* methods return modified copies.
type Mapping struct {
	id      string
	name    string
	trigger Trigger
	command Command
	params  []ParameterMapping
	enabled bool
	device  string
}

// New validates p and builds the mapping. Every parameter mapping must
// satisfy its substitution kind and address an existing command slot.
func New(p Params) (Mapping, error) {
	if p.ID == "" {
		return Mapping{}, fmt.Errorf("%w: mapping id is empty", ErrValidation)
	}
	if p.Trigger == nil {
		return Mapping{}, fmt.Errorf("%w: mapping %s has no trigger", ErrValidation, p.ID)
	}
	if err := p.Trigger.Validate(); err != nil {
		return Mapping{}, err
	}
	if p.Command.address.path == "" {
		return Mapping{}, fmt.Errorf("%w: mapping %s has no command", ErrValidation, p.ID)
	}
	params := make([]ParameterMapping, 0, len(p.ParameterMappings))
	for _, pm := range p.ParameterMappings {
		if err := pm.Validate(); err != nil {
			return Mapping{}, err
		}
		if pm.Index >= p.Command.Len() {
			return Mapping{}, fmt.Errorf("%w: parameter index %d out of bounds for %s (%d parameters)",
				ErrValidation, pm.Index, p.Command.address, p.Command.Len())
		}
		params = append(params, pm.clone())
	}
	return Mapping{
		id:      p.ID,
		name:    p.Name,
		trigger: cloneTrigger(p.Trigger),
		command: p.Command,
		params:  params,
		enabled: p.Enabled,
		device:  p.Device,
	}, nil
}

func (m Mapping) ID() string       { return m.id }
func (m Mapping) Name() string     { return m.name }
func (m Mapping) Trigger() Trigger { return m.trigger }
func (m Mapping) Command() Command { return m.command }
func (m Mapping) Enabled() bool    { return m.enabled }
func (m Mapping) Device() string   { return m.device }

// ParameterMappings returns a copy of the substitution list.
func (m Mapping) ParameterMappings() []ParameterMapping {
	out := make([]ParameterMapping, len(m.params))
	for i, pm := range m.params {
		out[i] = pm.clone()
	}
	return out
}

// Matches reports whether msg, received from sourceDevice, fires this
// mapping. An empty sourceDevice skips the device check entirely, as does
// a mapping bound to no device.
func (m Mapping) Matches(msg Message, sourceDevice string) bool {
	if !m.enabled {
		return false
	}
	if m.device != "" && sourceDevice != "" && m.device != sourceDevice {
		return false
	}
	if msg == nil || msg.Kind() != m.trigger.Kind() {
		return false
	}
	if !m.trigger.MidiChannel().Matches(msg.Channel()) {
		return false
	}

	switch t := m.trigger.(type) {
	case NoteTrigger:
		n, ok := msg.(Note)
		if !ok || n.Number() != t.Note {
			return false
		}
		return t.VelocityRange == nil || t.VelocityRange.Contains(n.Velocity())
	case CCTrigger:
		cc, ok := msg.(ControlChange)
		if !ok || cc.Controller() != t.Controller {
			return false
		}
		return t.ValueRange == nil || t.ValueRange.Contains(cc.Value())
	case ProgramTrigger:
		pc, ok := msg.(ProgramChange)
		return ok && pc.Program() == t.Program
	}
	return false
}

func (m Mapping) WithEnabled(enabled bool) Mapping {
	c := m
	c.enabled = enabled
	return c
}

func (m Mapping) WithName(name string) Mapping {
	c := m
	c.name = name
	return c
}

func (m Mapping) String() string {
	return fmt.Sprintf("%s: %s → %s", m.name, m.trigger, m.command)
}
