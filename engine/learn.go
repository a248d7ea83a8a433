package engine

import (
	"fmt"
	"slices"
	"sync"

	"midiosc/debug"
	"midiosc/mapping"
)

// PendingSpec is the command a learn session will bind to the next MIDI
// event.
type PendingSpec struct {
	Address           string
	Parameters        []mapping.Value
	ParameterMappings []mapping.ParameterMapping
}

// validate runs the checks Create applies, with a stand-in trigger.
func (spec PendingSpec) validate() error {
	cmd, err := mapping.NewCommand(spec.Address, spec.Parameters...)
	if err != nil {
		return err
	}
	trigger, err := mapping.NewProgramTrigger(0, mapping.AllChannels())
	if err != nil {
		return err
	}
	_, err = mapping.New(mapping.Params{
		ID:                "pending",
		Trigger:           trigger,
		Command:           cmd,
		ParameterMappings: spec.ParameterMappings,
	})
	return err
}

// Learner captures exactly one MIDI event and turns it into a mapping.
type Learner struct {
	source  MessageSource
	service *Service

	mu         sync.Mutex
	active     bool
	pending    PendingSpec
	sub        int
	onComplete []func(id string)
}

func NewLearner(source MessageSource, service *Service) *Learner {
	return &Learner{source: source, service: service}
}

// OnComplete registers fn to run after a learned mapping was saved.
func (l *Learner) OnComplete(fn func(id string)) {
	l.mu.Lock()
	l.onComplete = append(l.onComplete, fn)
	l.mu.Unlock()
}

// Start arms learn mode. It fails with ErrState when a session is already
// running, leaving that session untouched, and with ErrValidation when spec
// could never become a mapping.
func (l *Learner) Start(spec PendingSpec) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return fmt.Errorf("%w: learn mode is already active", mapping.ErrState)
	}
	if err := spec.validate(); err != nil {
		return err
	}
	l.active = true
	l.pending = PendingSpec{
		Address:           spec.Address,
		Parameters:        append([]mapping.Value(nil), spec.Parameters...),
		ParameterMappings: append([]mapping.ParameterMapping(nil), spec.ParameterMappings...),
	}
	l.sub = l.source.Subscribe(l.capture)

	debug.Log("learn", "waiting for MIDI for %s", spec.Address)
	return nil
}

// Cancel stops a running session. It does nothing when inactive.
func (l *Learner) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		debug.Log("learn", "cancelled")
	}
	l.stop()
}

func (l *Learner) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Pending returns the armed spec, if any.
func (l *Learner) Pending() (PendingSpec, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending, l.active
}

func (l *Learner) stop() {
	if l.active {
		l.source.Unsubscribe(l.sub)
	}
	l.active = false
	l.pending = PendingSpec{}
	l.sub = 0
}

// capture handles the first event after Start. The session is closed
// before the mapping is created, so a second event never gets captured.
func (l *Learner) capture(msg mapping.Message, device string) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	spec := l.pending
	l.stop()
	callbacks := slices.Clone(l.onComplete)
	l.mu.Unlock()

	debug.Log("learn", "captured %s from %q", msg, device)

	id, err := l.service.Create(learnedInput(msg, device, spec))
	if err != nil {
		debug.Log("learn", "failed to create learned mapping: %v", err)
		return
	}

	debug.Log("learn", "created mapping %s", id)
	for _, fn := range callbacks {
		fn(id)
	}
}

func learnedInput(msg mapping.Message, device string, spec PendingSpec) CreateInput {
	exact := mapping.TriggerFor(msg)
	trig := TriggerSpec{Channel: exact.MidiChannel()}
	switch t := exact.(type) {
	case mapping.NoteTrigger:
		trig.Kind, trig.Number = mapping.KindNote, t.Note
	case mapping.CCTrigger:
		trig.Kind, trig.Number = mapping.KindCC, t.Controller
	case mapping.ProgramTrigger:
		trig.Kind, trig.Number = mapping.KindProgramChange, t.Program
	}

	return CreateInput{
		Name:              fmt.Sprintf("MIDI %s → %s", msg, spec.Address),
		Trigger:           trig,
		Address:           spec.Address,
		Parameters:        spec.Parameters,
		ParameterMappings: spec.ParameterMappings,
		Device:            device,
	}
}
