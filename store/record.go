package store

import (
	"fmt"

	"midiosc/mapping"
)

// record is the on-disk form of a mapping.
type record struct {
	ID                string                     `json:"id" yaml:"id"`
	Name              string                     `json:"name" yaml:"name"`
	Trigger           triggerRecord              `json:"trigger" yaml:"trigger"`
	Command           commandRecord              `json:"command" yaml:"command"`
	ParameterMappings []mapping.ParameterMapping `json:"parameterMappings" yaml:"parameterMappings,omitempty"`
	Enabled           bool                       `json:"enabled" yaml:"enabled"`
	MidiDevice        *string                    `json:"midiDevice" yaml:"midiDevice"` // nil means any device
}

type triggerRecord struct {
	Type          mapping.Kind     `json:"type" yaml:"type"`
	Note          *int             `json:"note,omitempty" yaml:"note,omitempty"`
	Controller    *int             `json:"controller,omitempty" yaml:"controller,omitempty"`
	Program       *int             `json:"program,omitempty" yaml:"program,omitempty"`
	Channel       *mapping.Channel `json:"channel" yaml:"channel"`
	VelocityRange *mapping.Range   `json:"velocityRange,omitempty" yaml:"velocityRange,omitempty"`
	ValueRange    *mapping.Range   `json:"valueRange,omitempty" yaml:"valueRange,omitempty"`
}

type commandRecord struct {
	Address    string          `json:"address" yaml:"address"`
	Parameters []mapping.Value `json:"parameters" yaml:"parameters,flow"`
}

func toRecord(m mapping.Mapping) record {
	r := record{
		ID:                m.ID(),
		Name:              m.Name(),
		ParameterMappings: m.ParameterMappings(),
		Enabled:           m.Enabled(),
		Command: commandRecord{
			Address:    m.Command().Address().Path(),
			Parameters: m.Command().Parameters(),
		},
	}
	if d := m.Device(); d != "" {
		r.MidiDevice = &d
	}

	ch := m.Trigger().MidiChannel()
	switch t := m.Trigger().(type) {
	case mapping.NoteTrigger:
		r.Trigger = triggerRecord{Type: mapping.KindNote, Note: intp(t.Note), Channel: &ch, VelocityRange: t.VelocityRange}
	case mapping.CCTrigger:
		r.Trigger = triggerRecord{Type: mapping.KindCC, Controller: intp(t.Controller), Channel: &ch, ValueRange: t.ValueRange}
	case mapping.ProgramTrigger:
		r.Trigger = triggerRecord{Type: mapping.KindProgramChange, Program: intp(t.Program), Channel: &ch}
	}
	return r
}

func (r record) mapping() (mapping.Mapping, error) {
	trigger, err := r.Trigger.build()
	if err != nil {
		return mapping.Mapping{}, err
	}
	cmd, err := mapping.NewCommand(r.Command.Address, r.Command.Parameters...)
	if err != nil {
		return mapping.Mapping{}, err
	}
	var device string
	if r.MidiDevice != nil {
		device = *r.MidiDevice
	}
	return mapping.New(mapping.Params{
		ID:                r.ID,
		Name:              r.Name,
		Trigger:           trigger,
		Command:           cmd,
		ParameterMappings: r.ParameterMappings,
		Enabled:           r.Enabled,
		Device:            device,
	})
}

// build requires an explicit channel; a missing one is not read as "all".
func (t triggerRecord) build() (mapping.Trigger, error) {
	if t.Channel == nil {
		return nil, fmt.Errorf("%w: %s trigger without channel", mapping.ErrValidation, t.Type)
	}
	ch := *t.Channel

	switch t.Type {
	case mapping.KindNote:
		if t.Note == nil {
			return nil, fmt.Errorf("%w: note trigger without note", mapping.ErrValidation)
		}
		return mapping.NewNoteTrigger(*t.Note, ch, t.VelocityRange)
	case mapping.KindCC:
		if t.Controller == nil {
			return nil, fmt.Errorf("%w: cc trigger without controller", mapping.ErrValidation)
		}
		return mapping.NewCCTrigger(*t.Controller, ch, t.ValueRange)
	case mapping.KindProgramChange:
		if t.Program == nil {
			return nil, fmt.Errorf("%w: program change trigger without program", mapping.ErrValidation)
		}
		return mapping.NewProgramTrigger(*t.Program, ch)
	}
	return nil, fmt.Errorf("%w: unknown trigger type %q", mapping.ErrValidation, t.Type)
}

func intp(i int) *int { return &i }
