package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"midiosc/mapping"
)

func newMapping(t *testing.T, id string, device string) mapping.Mapping {
	t.Helper()
	ch, err := mapping.NewChannel(2)
	if err != nil {
		t.Fatal(err)
	}
	trig, err := mapping.NewNoteTrigger(60, ch, &mapping.Range{Min: 10, Max: 100})
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := mapping.NewCommand("/live/track/set/volume", mapping.Number(0), mapping.Number(0.5))
	if err != nil {
		t.Fatal(err)
	}
	m, err := mapping.New(mapping.Params{
		ID:      id,
		Name:    "Volume " + id,
		Trigger: trig,
		Command: cmd,
		ParameterMappings: []mapping.ParameterMapping{
			{Index: 1, Substitution: mapping.SubstVelocityNormalized},
		},
		Enabled: true,
		Device:  device,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func ids(t *testing.T, s *Store) string {
	t.Helper()
	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	var out []string
	for _, m := range all {
		out = append(out, m.ID())
	}
	return strings.Join(out, ",")
}

func TestStore_CRUD(t *testing.T) {
	s := NewMemory()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(newMapping(t, id, "")); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}
	if got := ids(t, s); got != "a,b,c" {
		t.Errorf("order = %s", got)
	}

	// Save of an existing id replaces in place
	if err := s.Save(newMapping(t, "b", "Keys").WithName("renamed")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := ids(t, s); got != "a,b,c" {
		t.Errorf("order after upsert = %s", got)
	}
	m, err := s.Get("b")
	if err != nil || m.Name() != "renamed" {
		t.Errorf("Get(b) = %v, %v", m, err)
	}

	if err := s.Update(m.WithEnabled(false)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if m, _ := s.Get("b"); m.Enabled() {
		t.Error("Update not applied")
	}

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := s.Exists("a"); ok {
		t.Error("a still exists")
	}
	if got := ids(t, s); got != "b,c" {
		t.Errorf("order after delete = %s", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := ids(t, s); got != "" {
		t.Errorf("after Clear = %s", got)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := NewMemory()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"get", func() error { _, err := s.Get("x"); return err }},
		{"update", func() error { return s.Update(newMapping(t, "x", "")) }},
		{"delete", func() error { return s.Delete("x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, mapping.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "mappings.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(newMapping(t, "a", "")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(newMapping(t, "b", "Launchkey MK3")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := ids(t, reopened); got != "a,b" {
		t.Fatalf("reopened order = %s", got)
	}

	a, _ := reopened.Get("a")
	b, _ := reopened.Get("b")
	if a.Device() != "" || b.Device() != "Launchkey MK3" {
		t.Errorf("devices = %q, %q", a.Device(), b.Device())
	}
	want := newMapping(t, "a", "")
	if a.String() != want.String() {
		t.Errorf("reloaded %q, want %q", a, want)
	}
	trig := a.Trigger().(mapping.NoteTrigger)
	if trig.VelocityRange == nil || *trig.VelocityRange != (mapping.Range{Min: 10, Max: 100}) {
		t.Errorf("velocity range = %v", trig.VelocityRange)
	}
	if pms := a.ParameterMappings(); len(pms) != 1 || pms[0].Substitution != mapping.SubstVelocityNormalized {
		t.Errorf("parameter mappings = %+v", pms)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"midiDevice": null`) {
		t.Errorf("unbound mapping not written with null device:\n%s", data)
	}
}

func TestOpen_SkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	data := `{"mappings": [
  {"id": "ok", "name": "ok", "trigger": {"type": "cc", "controller": 7, "channel": "all"},
   "command": {"address": "/live/test", "parameters": [1, "x", true]}, "enabled": true, "midiDevice": null},
  {"id": "bad", "name": "bad", "trigger": {"type": "cc", "controller": 300, "channel": 1},
   "command": {"address": "/live/test", "parameters": []}, "enabled": true}
]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := ids(t, s); got != "ok" {
		t.Errorf("loaded %s, want ok", got)
	}
	m, _ := s.Get("ok")
	if got := m.Command().String(); got != "/live/test 1 x true" {
		t.Errorf("command = %q", got)
	}
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, mapping.ErrRepository) {
		t.Errorf("err = %v, want ErrRepository", err)
	}
}

func TestStore_WriteFailureKeepsTable(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be makes every write fail
	path := filepath.Join(dir, "mappings.json")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	s := &Store{path: path}

	err := s.Save(newMapping(t, "a", ""))
	if !errors.Is(err, mapping.ErrRepository) {
		t.Fatalf("err = %v, want ErrRepository", err)
	}
	if got := ids(t, s); got != "" {
		t.Errorf("table changed to %s after failed write", got)
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	src := NewMemory()
	for _, m := range []mapping.Mapping{newMapping(t, "a", ""), newMapping(t, "b", "Pads")} {
		if err := src.Save(m); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := src.ExportYAML(&buf); err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "address: /live/track/set/volume") {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}

	dst := NewMemory()
	n, err := dst.ImportYAML(&buf)
	if err != nil {
		t.Fatalf("ImportYAML: %v", err)
	}
	if n != 2 || ids(t, dst) != "a,b" {
		t.Fatalf("imported %d: %s", n, ids(t, dst))
	}
	for _, id := range []string{"a", "b"} {
		want, _ := src.Get(id)
		got, _ := dst.Get(id)
		if got.String() != want.String() || got.Device() != want.Device() {
			t.Errorf("%s: got %q (%q), want %q (%q)", id, got, got.Device(), want, want.Device())
		}
	}
}

func TestImportYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"generated id", `
mappings:
  - name: Play
    trigger: {type: program_change, program: 0, channel: all}
    command: {address: /live/song/start_playing, parameters: []}
    enabled: true
`, 1, false},
		{"invalid address", `
mappings:
  - id: x
    trigger: {type: note, note: 60, channel: 1}
    command: {address: nope, parameters: []}
`, 0, true},
		{"missing note", `
mappings:
  - id: x
    trigger: {type: note, channel: 1}
    command: {address: /live/test, parameters: []}
`, 0, true},
		{"channel as map", `
mappings:
  - id: x
    trigger: {type: cc, controller: 7, channel: {n: 3}}
    command: {address: /live/test, parameters: []}
`, 0, true},
		{"empty channel", `
mappings:
  - id: x
    trigger:
      type: cc
      controller: 7
      channel:
    command: {address: /live/test, parameters: []}
`, 0, true},
		{"missing channel", `
mappings:
  - id: x
    trigger: {type: cc, controller: 7}
    command: {address: /live/test, parameters: []}
`, 0, true},
		{"hex parameter", `
mappings:
  - id: x
    trigger: {type: cc, controller: 7, channel: 2}
    command: {address: /live/test, parameters: [0x10]}
`, 1, false},
		{"infinite parameter", `
mappings:
  - id: x
    trigger: {type: cc, controller: 7, channel: 2}
    command: {address: /live/test, parameters: [.inf]}
`, 0, true},
		{"not yaml", "mappings: [", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemory()
			n, err := s.ImportYAML(strings.NewReader(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ImportYAML() error = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.want {
				t.Errorf("imported %d, want %d", n, tt.want)
			}
			if all, _ := s.All(); len(all) != tt.want {
				t.Errorf("store holds %d mappings", len(all))
			}
		})
	}
}
