package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"midiosc/mapping"
)

type memStore struct {
	mappings []mapping.Mapping
	loadErr  error
	saveErr  error
}

func (s *memStore) All() ([]mapping.Mapping, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]mapping.Mapping(nil), s.mappings...), nil
}

func (s *memStore) Get(id string) (mapping.Mapping, error) {
	for _, m := range s.mappings {
		if m.ID() == id {
			return m, nil
		}
	}
	return mapping.Mapping{}, fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, id)
}

func (s *memStore) Save(m mapping.Mapping) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for i := range s.mappings {
		if s.mappings[i].ID() == m.ID() {
			s.mappings[i] = m
			return nil
		}
	}
	s.mappings = append(s.mappings, m)
	return nil
}

func (s *memStore) Update(m mapping.Mapping) error {
	for i := range s.mappings {
		if s.mappings[i].ID() == m.ID() {
			s.mappings[i] = m
			return nil
		}
	}
	return fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, m.ID())
}

func (s *memStore) Delete(id string) error {
	for i := range s.mappings {
		if s.mappings[i].ID() == id {
			s.mappings = append(s.mappings[:i], s.mappings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: mapping %s", mapping.ErrNotFound, id)
}

func (s *memStore) Exists(id string) (bool, error) {
	_, err := s.Get(id)
	return err == nil, nil
}

type fakeSink struct {
	sent   []mapping.Command
	failOn string
}

func (s *fakeSink) Send(cmd mapping.Command) error {
	if s.failOn != "" && cmd.Address().Path() == s.failOn {
		return fmt.Errorf("%w: send failed", mapping.ErrTransport)
	}
	s.sent = append(s.sent, cmd)
	return nil
}

type fakeTracks map[string]int

func (f fakeTracks) ResolveName(name string) (int, error) {
	if idx, ok := f[name]; ok {
		return idx, nil
	}
	return 0, errors.New("no such track")
}

type fakeSource struct {
	mu       sync.Mutex
	next     int
	order    []int
	handlers map[int]func(mapping.Message, string)
}

func (s *fakeSource) Subscribe(h func(msg mapping.Message, device string)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = map[int]func(mapping.Message, string){}
	}
	s.next++
	s.handlers[s.next] = h
	s.order = append(s.order, s.next)
	return s.next
}

func (s *fakeSource) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *fakeSource) emit(msg mapping.Message, device string) {
	s.mu.Lock()
	var hs []func(mapping.Message, string)
	for _, id := range s.order {
		hs = append(hs, s.handlers[id])
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(msg, device)
	}
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func newTestService(store Store) *Service {
	svc := NewService(store)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
	return svc
}

func mustCC(t *testing.T, controller, value, ch int) mapping.ControlChange {
	t.Helper()
	msg, err := mapping.NewControlChange(controller, value, ch)
	if err != nil {
		t.Fatalf("NewControlChange(%d, %d, %d): %v", controller, value, ch, err)
	}
	return msg
}

func mustNote(t *testing.T, n, v, ch int) mapping.Note {
	t.Helper()
	msg, err := mapping.NewNote(n, v, ch)
	if err != nil {
		t.Fatalf("NewNote(%d, %d, %d): %v", n, v, ch, err)
	}
	return msg
}

func mustProgram(t *testing.T, p, ch int) mapping.ProgramChange {
	t.Helper()
	msg, err := mapping.NewProgramChange(p, ch)
	if err != nil {
		t.Fatalf("NewProgramChange(%d, %d): %v", p, ch, err)
	}
	return msg
}

func mustChannel(t *testing.T, n int) mapping.Channel {
	t.Helper()
	ch, err := mapping.NewChannel(n)
	if err != nil {
		t.Fatalf("NewChannel(%d): %v", n, err)
	}
	return ch
}

func intp(i int) *int { return &i }

func floatParam(t *testing.T, cmd mapping.Command, i int) float64 {
	t.Helper()
	params := cmd.Parameters()
	if i >= len(params) {
		t.Fatalf("%s has no parameter %d", cmd, i)
	}
	f, ok := params[i].Float()
	if !ok {
		t.Fatalf("parameter %d of %s is not a number", i, cmd)
	}
	return f
}
