package engine

import (
	"fmt"

	"github.com/google/uuid"

	"midiosc/mapping"
)

// TriggerSpec describes a trigger in plain values, as it arrives from the
// UI or a file.
type TriggerSpec struct {
	Kind    mapping.Kind
	Number  int // note, controller or program number
	Channel mapping.Channel
	Range   *mapping.Range // velocity for notes, value for CC
}

// Build validates s and returns the trigger.
func (s TriggerSpec) Build() (mapping.Trigger, error) {
	switch s.Kind {
	case mapping.KindNote:
		return mapping.NewNoteTrigger(s.Number, s.Channel, s.Range)
	case mapping.KindCC:
		return mapping.NewCCTrigger(s.Number, s.Channel, s.Range)
	case mapping.KindProgramChange:
		if s.Range != nil {
			return nil, fmt.Errorf("%w: program change triggers take no range", mapping.ErrValidation)
		}
		return mapping.NewProgramTrigger(s.Number, s.Channel)
	}
	return nil, fmt.Errorf("%w: unknown trigger type %q", mapping.ErrValidation, s.Kind)
}

// CreateInput is everything needed to create a mapping.
type CreateInput struct {
	Name              string
	Trigger           TriggerSpec
	Address           string
	Parameters        []mapping.Value
	ParameterMappings []mapping.ParameterMapping
	Enabled           *bool // nil means enabled
	Device            string
}

// UpdateInput changes the name and/or enabled flag of a mapping.
type UpdateInput struct {
	ID      string
	Name    *string
	Enabled *bool
}

// Service is the mapping CRUD API on top of a Store.
type Service struct {
	store Store
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{store: store, newID: uuid.NewString}
}

// Create validates in, assigns an id and saves the mapping.
func (s *Service) Create(in CreateInput) (string, error) {
	trigger, err := in.Trigger.Build()
	if err != nil {
		return "", fmt.Errorf("failed to create mapping: %w", err)
	}
	cmd, err := mapping.NewCommand(in.Address, in.Parameters...)
	if err != nil {
		return "", fmt.Errorf("failed to create mapping: %w", err)
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	m, err := mapping.New(mapping.Params{
		ID:                s.newID(),
		Name:              in.Name,
		Trigger:           trigger,
		Command:           cmd,
		ParameterMappings: in.ParameterMappings,
		Enabled:           enabled,
		Device:            in.Device,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create mapping: %w", err)
	}

	if err := s.store.Save(m); err != nil {
		return "", fmt.Errorf("failed to save mapping: %w", err)
	}
	return m.ID(), nil
}

func (s *Service) All() ([]mapping.Mapping, error) {
	all, err := s.store.All()
	if err != nil {
		return nil, fmt.Errorf("failed to get mappings: %w", err)
	}
	return all, nil
}

func (s *Service) Get(id string) (mapping.Mapping, error) {
	m, err := s.store.Get(id)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("failed to get mapping: %w", err)
	}
	return m, nil
}

// Update applies the non-nil fields of in.
func (s *Service) Update(in UpdateInput) error {
	m, err := s.Get(in.ID)
	if err != nil {
		return err
	}
	if in.Name != nil {
		m = m.WithName(*in.Name)
	}
	if in.Enabled != nil {
		m = m.WithEnabled(*in.Enabled)
	}
	if err := s.store.Update(m); err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	return nil
}

func (s *Service) SetEnabled(id string, enabled bool) error {
	return s.Update(UpdateInput{ID: id, Enabled: &enabled})
}

func (s *Service) Rename(id, name string) error {
	return s.Update(UpdateInput{ID: id, Name: &name})
}

func (s *Service) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}
