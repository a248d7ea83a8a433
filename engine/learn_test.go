package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"midiosc/mapping"
)

func newTestLearner() (*Learner, *fakeSource, *memStore) {
	src := &fakeSource{}
	store := &memStore{}
	return NewLearner(src, newTestService(store)), src, store
}

func TestLearner_StartTwice(t *testing.T) {
	l, src, _ := newTestLearner()

	if err := l.Start(PendingSpec{Address: "/live/clip/fire"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := l.Start(PendingSpec{Address: "/live/scene/fire"})
	if !errors.Is(err, mapping.ErrState) {
		t.Fatalf("second Start err = %v, want ErrState", err)
	}
	if !strings.Contains(err.Error(), "learn mode is already active") {
		t.Errorf("err = %q", err)
	}
	spec, ok := l.Pending()
	if !ok || spec.Address != "/live/clip/fire" {
		t.Errorf("pending = %+v, %t", spec, ok)
	}
	if src.count() != 1 {
		t.Errorf("%d listeners registered, want 1", src.count())
	}
}

func TestLearner_StartInvalidAddress(t *testing.T) {
	l, src, _ := newTestLearner()
	err := l.Start(PendingSpec{Address: "live//x"})
	if !errors.Is(err, mapping.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if l.Active() || src.count() != 0 {
		t.Error("learn mode armed after a failed start")
	}
}

func TestLearner_StartWhileActiveReportsState(t *testing.T) {
	l, _, _ := newTestLearner()
	if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := l.Start(PendingSpec{Address: "bad"})
	if !errors.Is(err, mapping.ErrState) {
		t.Errorf("Start with bad address while active err = %v, want ErrState", err)
	}
}

func TestLearner_StartRejectsUnbuildableSpec(t *testing.T) {
	tests := []struct {
		name string
		spec PendingSpec
	}{
		{"index out of bounds", PendingSpec{
			Address:           "/live/track/set/volume",
			ParameterMappings: []mapping.ParameterMapping{{Index: 3, Substitution: mapping.SubstVelocity}},
		}},
		{"missing track index", PendingSpec{
			Address:           "/live/track/set/volume",
			Parameters:        []mapping.Value{mapping.Number(0)},
			ParameterMappings: []mapping.ParameterMapping{{Index: 0, Substitution: mapping.SubstTrackIndex}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, src, store := newTestLearner()
			err := l.Start(tt.spec)
			if !errors.Is(err, mapping.ErrValidation) {
				t.Fatalf("Start err = %v, want ErrValidation", err)
			}
			if l.Active() || src.count() != 0 {
				t.Fatal("learn mode armed after a failed start")
			}
			src.emit(mustCC(t, 7, 100, 1), "")
			if len(store.mappings) != 0 {
				t.Errorf("%d mappings created", len(store.mappings))
			}
		})
	}
}

func TestLearner_CapturesOneEvent(t *testing.T) {
	l, src, store := newTestLearner()
	var completed []string
	l.OnComplete(func(id string) { completed = append(completed, id) })

	err := l.Start(PendingSpec{
		Address:    "/live/track/set/volume",
		Parameters: []mapping.Value{mapping.Number(0), mapping.Number(0)},
		ParameterMappings: []mapping.ParameterMapping{
			{Index: 1, Substitution: mapping.SubstVelocityNormalized},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	src.emit(mustCC(t, 7, 127, 3), "DeviceA")
	src.emit(mustCC(t, 8, 1, 3), "DeviceA")

	if l.Active() {
		t.Error("still active after capture")
	}
	if src.count() != 0 {
		t.Errorf("%d listeners left", src.count())
	}
	if len(store.mappings) != 1 {
		t.Fatalf("%d mappings created, want 1", len(store.mappings))
	}
	if len(completed) != 1 || completed[0] != store.mappings[0].ID() {
		t.Errorf("completion callbacks = %v", completed)
	}

	m := store.mappings[0]
	if m.Device() != "DeviceA" {
		t.Errorf("device = %q, want DeviceA", m.Device())
	}
	if !m.Enabled() {
		t.Error("learned mapping is disabled")
	}
	trig, ok := m.Trigger().(mapping.CCTrigger)
	if !ok {
		t.Fatalf("trigger = %T, want CCTrigger", m.Trigger())
	}
	if trig.Controller != 7 || trig.Channel.Number() != 3 || trig.ValueRange != nil {
		t.Errorf("trigger = %+v", trig)
	}
	if want := "MIDI CC7:127 ch:3 → /live/track/set/volume"; m.Name() != want {
		t.Errorf("name = %q, want %q", m.Name(), want)
	}
	if len(m.ParameterMappings()) != 1 {
		t.Errorf("parameter mappings = %v", m.ParameterMappings())
	}
}

func TestLearner_Triggers(t *testing.T) {
	tests := []struct {
		name string
		msg  mapping.Message
		want string
	}{
		{"note", mustNote(t, 60, 90, 1), "Note 60 Channel 1"},
		{"cc", mustCC(t, 1, 5, 16), "CC 1 Channel 16"},
		{"program", mustProgram(t, 12, 2), "PC 12 Channel 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, src, store := newTestLearner()
			if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			src.emit(tt.msg, "")
			if len(store.mappings) != 1 {
				t.Fatalf("%d mappings created", len(store.mappings))
			}
			m := store.mappings[0]
			if got := m.Trigger().String(); got != tt.want {
				t.Errorf("trigger = %q, want %q", got, tt.want)
			}
			if m.Device() != "" {
				t.Errorf("device = %q, want any", m.Device())
			}
		})
	}
}

func TestLearner_Cancel(t *testing.T) {
	l, src, store := newTestLearner()
	l.Cancel()

	if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Cancel()
	if l.Active() || src.count() != 0 {
		t.Fatal("still armed after Cancel")
	}
	src.emit(mustNote(t, 60, 90, 1), "")
	if len(store.mappings) != 0 {
		t.Errorf("cancelled session created %d mappings", len(store.mappings))
	}
	if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
		t.Errorf("Start after Cancel: %v", err)
	}
}

func TestLearner_CreateFailure(t *testing.T) {
	src := &fakeSource{}
	store := &memStore{saveErr: fmt.Errorf("%w: read-only", mapping.ErrRepository)}
	l := NewLearner(src, newTestService(store))
	called := false
	l.OnComplete(func(string) { called = true })

	if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.emit(mustNote(t, 60, 90, 1), "")

	if called {
		t.Error("completion called after a failed create")
	}
	if l.Active() {
		t.Error("learn mode re-armed after a failed create")
	}
}

func TestLearner_RunsAlongsideDispatch(t *testing.T) {
	src := &fakeSource{}
	store := &memStore{}
	sink := &fakeSink{}
	svc := newTestService(store)
	d := NewDispatcher(store, sink, nil)
	src.Subscribe(d.Handle)
	l := NewLearner(src, svc)

	if err := l.Start(PendingSpec{Address: "/live/test"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.emit(mustNote(t, 60, 90, 1), "Pads")
	src.emit(mustNote(t, 60, 90, 1), "Pads")

	if len(store.mappings) != 1 {
		t.Fatalf("%d mappings, want 1", len(store.mappings))
	}
	if len(sink.sent) != 1 {
		t.Errorf("sent %d commands, want 1 (only the second event matches)", len(sink.sent))
	}
}
