package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"midiosc/engine"
	"midiosc/mapping"
	"midiosc/midi"
	"midiosc/store"
)

func TestParseLearnInput(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantAddr   string
		wantParams string
		wantSubst  []mapping.Substitution
		wantErr    bool
	}{
		{"address only", "/live/song/start_playing", "/live/song/start_playing", "", nil, false},
		{"static params", "/live/clip/fire 0 2", "/live/clip/fire", "0 2", nil, false},
		{"velocity", "/live/track/set/volume 1 $norm", "/live/track/set/volume", "1 0", []mapping.Substitution{mapping.SubstVelocityNormalized}, false},
		{"raw velocity", "/live/device/set/parameter/value 0 0 3 $vel", "/live/device/set/parameter/value", "0 0 3 0", []mapping.Substitution{mapping.SubstVelocity}, false},
		{"track name", "/live/track/set/mute $track:Drums true", "/live/track/set/mute", "0 true", []mapping.Substitution{mapping.SubstTrackName}, false},
		{"empty", "   ", "", "", nil, true},
		{"bad address", "live/x", "", "", nil, true},
		{"unknown placeholder", "/live/x $pitch", "", "", nil, true},
		{"empty track name", "/live/x $track:", "", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseLearnInput(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLearnInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, mapping.ErrValidation) {
					t.Errorf("err = %v, want ErrValidation", err)
				}
				return
			}
			if spec.Address != tt.wantAddr {
				t.Errorf("address = %s", spec.Address)
			}
			var params []string
			for _, p := range spec.Parameters {
				params = append(params, p.String())
			}
			if got := strings.Join(params, " "); got != tt.wantParams {
				t.Errorf("params = %q, want %q", got, tt.wantParams)
			}
			if len(spec.ParameterMappings) != len(tt.wantSubst) {
				t.Fatalf("parameter mappings = %+v", spec.ParameterMappings)
			}
			for i, s := range tt.wantSubst {
				if spec.ParameterMappings[i].Substitution != s {
					t.Errorf("mapping %d = %s, want %s", i, spec.ParameterMappings[i].Substitution, s)
				}
			}
		})
	}
}

func TestParseLearnInput_Indexes(t *testing.T) {
	spec, err := ParseLearnInput("/live/track/set/send $track:Bass 1 $norm")
	if err != nil {
		t.Fatal(err)
	}
	if spec.ParameterMappings[0].Index != 0 || spec.ParameterMappings[0].TrackName != "Bass" {
		t.Errorf("first = %+v", spec.ParameterMappings[0])
	}
	if spec.ParameterMappings[1].Index != 2 {
		t.Errorf("second = %+v", spec.ParameterMappings[1])
	}
}

type fakeOutput struct {
	tests int
	err   error
}

func (o *fakeOutput) Test() error {
	o.tests++
	return o.err
}

func (o *fakeOutput) Target() string { return "127.0.0.1:11000" }

func newTestModel(t *testing.T, names ...string) (Model, *engine.Service, *midi.Input, *fakeOutput) {
	t.Helper()
	svc := engine.NewService(store.NewMemory())
	for _, name := range names {
		_, err := svc.Create(engine.CreateInput{
			Name:    name,
			Trigger: engine.TriggerSpec{Kind: mapping.KindNote, Number: 60, Channel: mapping.AllChannels()},
			Address: "/live/clip/fire",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	in := midi.NewInput()
	out := &fakeOutput{}
	m := NewModel(Deps{
		Service: svc,
		Learner: engine.NewLearner(in, svc),
		Input:   in,
		Output:  out,
	})
	return m, svc, in, out
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_ToggleAndDelete(t *testing.T) {
	m, svc, _, _ := newTestModel(t, "Kick", "Snare")

	m = press(t, m, "j", "space")
	all, _ := svc.All()
	if all[0].Enabled() == false || all[1].Enabled() {
		t.Fatalf("expected only Snare disabled")
	}

	m = press(t, m, "d")
	if !m.confirmMode || !strings.Contains(m.View(), `Delete "Snare"?`) {
		t.Fatalf("no confirmation shown:\n%s", m.View())
	}
	m = press(t, m, "n")
	if all, _ := svc.All(); len(all) != 2 {
		t.Fatal("deleted without confirmation")
	}

	m = press(t, m, "d", "y")
	all, _ = svc.All()
	if len(all) != 1 || all[0].Name() != "Kick" {
		t.Errorf("after delete = %v", all)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want clamped to 0", m.cursor)
	}
}

func TestModel_Learn(t *testing.T) {
	m, svc, in, _ := newTestModel(t)

	m = press(t, m, "l")
	for _, r := range "/live/track/set/volume 0 $norm" {
		m = press(t, m, string(r))
	}
	m = press(t, m, "enter")
	if m.inputMode != InputNone {
		t.Fatalf("still in input mode, status %q", m.status)
	}
	if !m.deps.Learner.Active() {
		t.Fatal("learn mode not started")
	}
	if !strings.Contains(m.View(), "LEARN") {
		t.Errorf("view lacks learn banner:\n%s", m.View())
	}

	cc, _ := mapping.NewControlChange(7, 100, 1)
	in.Deliver(cc, "Faders")

	next, _ := m.Update(LearnedMsg(<-m.learnedCh))
	m = next.(Model)
	all, _ := svc.All()
	if len(all) != 1 || all[0].Device() != "Faders" {
		t.Fatalf("mappings = %v", all)
	}
	if !strings.HasPrefix(m.status, "Learned") {
		t.Errorf("status = %q", m.status)
	}

	next, _ = m.Update(MidiMsg(<-m.midiCh))
	m = next.(Model)
	if len(m.log) != 1 || !strings.Contains(m.log[0], "CC7:100 ch:1") || m.lastCC != 100 {
		t.Errorf("log = %v, lastCC = %d", m.log, m.lastCC)
	}
}

func TestModel_LearnBadInput(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m = press(t, m, "l", "x", "enter")
	if m.inputMode != InputLearn || m.status == "" {
		t.Errorf("bad address accepted: mode %d status %q", m.inputMode, m.status)
	}
	m = press(t, m, "esc")
	if m.inputMode != InputNone {
		t.Error("esc did not leave input mode")
	}
}

func TestModel_TestOSC(t *testing.T) {
	m, _, _, out := newTestModel(t)
	m = press(t, m, "t")
	if out.tests != 1 || !strings.Contains(m.status, "127.0.0.1:11000") {
		t.Errorf("tests = %d, status %q", out.tests, m.status)
	}

	out.err = errors.New("OSC test failed")
	m = press(t, m, "t")
	if m.status != "OSC test failed" {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_LogIsBounded(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	for i := 0; i < 20; i++ {
		m.logLine("line")
	}
	if len(m.log) != maxLogLines {
		t.Errorf("log has %d lines", len(m.log))
	}
}
