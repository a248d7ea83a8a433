package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderMeter draws value (0-127) as a bar width cells wide, colored by
// color for the filled part.
func RenderMeter(value, width int, on, off rune, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	value = max(0, min(127, value))
	filled := (value*width + 63) / 127

	fill := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(string(on), filled))
	return fill + strings.Repeat(string(off), width-filled)
}

// RenderKeyLine formats key bindings on a single line: "k:desc  k:desc"
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
