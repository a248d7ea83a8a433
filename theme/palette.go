package theme

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

// Blend mixes c towards o by t (0 = c, 1 = o).
func (c RGB) Blend(o RGB, t float64) RGB {
	var out RGB
	for i := range out {
		out[i] = uint8(math.Round(float64(c[i]) + (float64(o[i])-float64(c[i]))*t))
	}
	return out
}

// Palette is an ordered gradient of colors. The UI picks colors by position
// along it.
type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette, used when no .gpl file is given
func Plasma() *Palette {
	return &Palette{
		Name: "plasma",
		Colors: []RGB{
			{13, 8, 135},
			{84, 2, 163},
			{139, 10, 165},
			{185, 50, 137},
			{219, 92, 104},
			{244, 136, 73},
			{254, 188, 43},
			{240, 249, 33},
		},
	}
}

// LoadGPL reads a GIMP palette file.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL reads GIMP palette text: an optional header, then one
// "R G B [name]" row per color. Rows that are out of range or not numeric
// are rejected rather than skipped.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", line[0] == '#', line == "GIMP Palette", strings.HasPrefix(line, "Columns:"):
			continue
		case strings.HasPrefix(line, "Name:"):
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: want R G B, got %q", n, line)
		}
		var c RGB
		for i := range c {
			v, err := strconv.ParseUint(fields[i], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad color component %q", n, fields[i])
			}
			c[i] = uint8(v)
		}
		p.Colors = append(p.Colors, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found")
	}
	return p, nil
}

// Lookup returns the color at position norm (0-1) along the gradient.
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	pos := max(0, min(1, norm)) * float64(last)
	i := min(int(pos), last-1)
	if i < 0 {
		return p.Colors[0]
	}
	return p.Colors[i].Blend(p.Colors[i+1], pos-float64(i))
}
