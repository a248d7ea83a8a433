package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"midiosc/engine"
	"midiosc/mapping"
	"midiosc/midi"
	"midiosc/theme"
	"midiosc/widgets"
)

const maxLogLines = 8

// Inputs is the MIDI side the UI watches.
type Inputs interface {
	engine.MessageSource
	OpenDevices() []string
}

// Output is the OSC side the UI can test.
type Output interface {
	Test() error
	Target() string
}

// Deps are the services the UI drives. Devices may be nil.
type Deps struct {
	Service *engine.Service
	Learner *engine.Learner
	Input   Inputs
	Output  Output
	Devices <-chan midi.DeviceEvent
	Theme   *theme.Theme
}

// InputMode for text input
type InputMode int

const (
	InputNone InputMode = iota
	InputLearn
)

type midiEvent struct {
	msg    mapping.Message
	device string
}

type Model struct {
	deps Deps

	midiCh    chan midiEvent
	learnedCh chan string

	mappings []mapping.Mapping
	cursor   int
	log      []string
	status   string
	lastCC   int

	// Input mode (for the learn prompt)
	inputMode   InputMode
	inputBuffer string

	// Confirmation dialog
	confirmMode   bool
	confirmMsg    string
	confirmAction func() error

	quitting bool
}

type MidiMsg midiEvent

type LearnedMsg string

type DeviceEventMsg midi.DeviceEvent

func NewModel(deps Deps) Model {
	if deps.Theme == nil {
		deps.Theme = theme.New(nil)
	}
	m := Model{
		deps:      deps,
		midiCh:    make(chan midiEvent, 64),
		learnedCh: make(chan string, 4),
		lastCC:    -1,
	}

	if deps.Input != nil {
		ch := m.midiCh
		deps.Input.Subscribe(func(msg mapping.Message, device string) {
			select {
			case ch <- midiEvent{msg: msg, device: device}:
			default:
			}
		})
	}
	if deps.Learner != nil {
		ch := m.learnedCh
		deps.Learner.OnComplete(func(id string) {
			select {
			case ch <- id:
			default:
			}
		})
	}

	m.refresh()
	return m
}

func ListenForMidi(ch <-chan midiEvent) tea.Cmd {
	return func() tea.Msg {
		return MidiMsg(<-ch)
	}
}

func ListenForLearned(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return LearnedMsg(<-ch)
	}
}

func ListenForDevices(events <-chan midi.DeviceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		ListenForMidi(m.midiCh),
		ListenForLearned(m.learnedCh),
	}
	if m.deps.Devices != nil {
		cmds = append(cmds, ListenForDevices(m.deps.Devices))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case MidiMsg:
		m.logLine(fmt.Sprintf("%-28s %s", msg.msg, deviceLabel(msg.device)))
		if cc, ok := msg.msg.(mapping.ControlChange); ok {
			m.lastCC = cc.Value()
		}
		return m, ListenForMidi(m.midiCh)

	case LearnedMsg:
		m.refresh()
		for i, mp := range m.mappings {
			if mp.ID() == string(msg) {
				m.cursor = i
				m.status = "Learned: " + mp.Name()
			}
		}
		return m, ListenForLearned(m.learnedCh)

	case DeviceEventMsg:
		m.logLine(fmt.Sprintf("%s %s", msg.Name, msg.Type))
		return m, ListenForDevices(m.deps.Devices)
	}

	return m, nil
}

func (m Model) handleKey(key string) (Model, tea.Cmd) {
	if key == "ctrl+c" {
		return m.quit()
	}

	// Confirmation mode
	if m.confirmMode {
		switch key {
		case "y", "Y":
			if m.confirmAction != nil {
				if err := m.confirmAction(); err != nil {
					m.status = err.Error()
				}
			}
			m.confirmMode = false
			m.confirmAction = nil
			m.refresh()
		case "n", "N", "esc", "q":
			m.confirmMode = false
			m.confirmAction = nil
		}
		return m, nil
	}

	// Input mode
	if m.inputMode != InputNone {
		switch key {
		case "enter":
			m.commitInput()
		case "esc":
			m.inputMode = InputNone
			m.inputBuffer = ""
		case "backspace":
			if len(m.inputBuffer) > 0 {
				m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
			}
		default:
			// Only accept printable characters
			if key == "space" {
				key = " "
			}
			if len(key) == 1 && key[0] >= 32 && key[0] < 127 {
				m.inputBuffer += key
			}
		}
		return m, nil
	}

	switch key {
	case "q":
		return m.quit()

	case "j", "down":
		if m.cursor < len(m.mappings)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case " ", "space":
		if sel, ok := m.selected(); ok {
			if err := m.deps.Service.SetEnabled(sel.ID(), !sel.Enabled()); err != nil {
				m.status = err.Error()
			}
			m.refresh()
		}

	case "d":
		if sel, ok := m.selected(); ok {
			id := sel.ID()
			m.confirmMode = true
			m.confirmMsg = fmt.Sprintf("Delete %q?", sel.Name())
			m.confirmAction = func() error {
				return m.deps.Service.Delete(id)
			}
		}

	case "l":
		if m.deps.Learner != nil && !m.deps.Learner.Active() {
			m.inputMode = InputLearn
			m.inputBuffer = ""
		}

	case "esc":
		if m.deps.Learner != nil && m.deps.Learner.Active() {
			m.deps.Learner.Cancel()
			m.status = "Learn cancelled"
		}

	case "t":
		if m.deps.Output == nil {
			break
		}
		if err := m.deps.Output.Test(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "Sent /live/test to " + m.deps.Output.Target()
		}

	case "r":
		m.refresh()
	}

	return m, nil
}

func (m *Model) commitInput() {
	spec, err := ParseLearnInput(m.inputBuffer)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.inputMode = InputNone
	m.inputBuffer = ""

	if err := m.deps.Learner.Start(spec); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "Waiting for MIDI for " + spec.Address
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	if m.deps.Learner != nil {
		m.deps.Learner.Cancel()
	}
	return m, tea.Quit
}

func (m *Model) refresh() {
	if m.deps.Service == nil {
		return
	}
	all, err := m.deps.Service.All()
	if err != nil {
		m.status = err.Error()
		return
	}
	m.mappings = all
	if m.cursor >= len(m.mappings) {
		m.cursor = max(0, len(m.mappings)-1)
	}
}

func (m Model) selected() (mapping.Mapping, bool) {
	if m.deps.Service == nil || m.cursor >= len(m.mappings) {
		return mapping.Mapping{}, false
	}
	return m.mappings[m.cursor], true
}

func (m *Model) logLine(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func deviceLabel(device string) string {
	if device == "" {
		return "-"
	}
	return device
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.deps.Theme
	sym := th.Symbols

	// Styles
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor())
	learnStyle := lipgloss.NewStyle().Foreground(th.Warning())
	statusStyle := lipgloss.NewStyle().Foreground(th.Success())

	var out strings.Builder

	// Header with connection status
	target := "OSC: off"
	if m.deps.Output != nil && m.deps.Output.Target() != "" {
		target = "OSC: " + m.deps.Output.Target()
	}
	inputs := "MIDI: none"
	if m.deps.Input != nil {
		if open := m.deps.Input.OpenDevices(); len(open) > 0 {
			inputs = "MIDI: " + strings.Join(open, ", ")
		}
	}
	out.WriteString(headerStyle.Render(fmt.Sprintf("midiosc  %s  %s", target, inputs)))
	out.WriteString("\n\n")

	// Confirmation dialog takes over
	if m.confirmMode {
		out.WriteString(fmt.Sprintf("%s\n\n  [y] Yes    [n] No\n", m.confirmMsg))
		return out.String()
	}

	// Learn prompt takes over
	if m.inputMode == InputLearn {
		out.WriteString("OSC command to learn (address, params, $vel $norm $track:Name)\n\n")
		out.WriteString(fmt.Sprintf("> %s_\n\n", m.inputBuffer))
		out.WriteString(dimStyle.Render("[enter] wait for MIDI  [esc] cancel"))
		if m.status != "" {
			out.WriteString("\n" + statusStyle.Render(m.status))
		}
		return out.String()
	}

	if m.deps.Learner != nil {
		if spec, ok := m.deps.Learner.Pending(); ok {
			out.WriteString(learnStyle.Render(fmt.Sprintf("%c LEARN  move a control to map it to %s  [esc] cancel", sym.Learning, spec.Address)))
			out.WriteString("\n\n")
		}
	}

	// Mapping list
	if len(m.mappings) == 0 {
		out.WriteString(dimStyle.Render("No mappings. Press l to learn one."))
		out.WriteString("\n")
	}
	for i, mp := range m.mappings {
		cur := ' '
		if i == m.cursor {
			cur = sym.Cursor
		}
		state := sym.Disabled
		if mp.Enabled() {
			state = sym.Enabled
		}
		line := fmt.Sprintf("%c %c %s", cur, state, mp)
		if mp.Device() != "" {
			line += fmt.Sprintf("  %c %s", sym.Bound, mp.Device())
		}
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case !mp.Enabled():
			line = dimStyle.Render(line)
		}
		out.WriteString(line + "\n")
	}

	// Event log
	out.WriteString("\n" + dimStyle.Render("MIDI in") + "\n")
	for _, l := range m.log {
		out.WriteString("  " + l + "\n")
	}
	if m.lastCC >= 0 {
		out.WriteString("  " + widgets.RenderMeter(m.lastCC, 32, sym.MeterOn, sym.MeterOff, th.Active()) + "\n")
	}

	if m.status != "" {
		out.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}

	// Help line
	help := widgets.RenderKeyLine([]widgets.KeyBinding{
		{Key: "j/k", Desc: "select"},
		{Key: "space", Desc: "toggle"},
		{Key: "d", Desc: "delete"},
		{Key: "l", Desc: "learn"},
		{Key: "t", Desc: "test osc"},
		{Key: "q", Desc: "quit"},
	})
	out.WriteString("\n" + dimStyle.Render(help))

	return out.String()
}
