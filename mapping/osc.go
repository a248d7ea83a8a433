package mapping

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var addressChars = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)

// Address is a validated OSC address such as /live/song/get/tempo.
type Address struct {
	path string
}

func ParseAddress(path string) (Address, error) {
	if !strings.HasPrefix(path, "/") {
		return Address{}, fmt.Errorf("%w: invalid OSC address %q, must start with '/'", ErrValidation, path)
	}
	if strings.Contains(path, "//") {
		return Address{}, fmt.Errorf("%w: invalid OSC address %q, cannot contain '//'", ErrValidation, path)
	}
	if !addressChars.MatchString(path) {
		return Address{}, fmt.Errorf("%w: invalid OSC address %q, only alphanumerics, '/', '_' and '-' are allowed", ErrValidation, path)
	}
	return Address{path: path}, nil
}

func (a Address) Path() string   { return a.path }
func (a Address) String() string { return a.path }

// MatchesPattern matches the address against a pattern where '*' stands
// for one path segment and '?' for any single character.
func (a Address) MatchesPattern(pattern string) bool {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString("[^/]+")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(a.path)
}

func (a Address) segments() []string {
	var parts []string
	for _, p := range strings.Split(a.path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Category returns the second path segment ("song" in /live/song/get/tempo).
func (a Address) Category() (string, bool) {
	parts := a.segments()
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

// Action returns the third path segment ("get" in /live/song/get/tempo).
func (a Address) Action() (string, bool) {
	parts := a.segments()
	if len(parts) < 3 {
		return "", false
	}
	return parts[2], true
}

// ValueKind identifies what a Value holds.
type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueString
	ValueBool
)

// Value is a single OSC argument: a number, a string or a boolean.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

func Number(f float64) Value { return Value{kind: ValueNumber, num: f} }
func String(s string) Value  { return Value{kind: ValueString, str: s} }
func Bool(b bool) Value      { return Value{kind: ValueBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Float() (float64, bool) { return v.num, v.kind == ValueNumber }
func (v Value) Str() (string, bool)    { return v.str, v.kind == ValueString }
func (v Value) Boolean() (bool, bool)  { return v.b, v.kind == ValueBool }

// IsInteger reports whether the value is a number with no fractional part.
func (v Value) IsInteger() bool {
	return v.kind == ValueNumber && v.num == float64(int64(v.num))
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueBool:
		return strconv.FormatBool(v.b)
	default:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
}

// ParseValue reads a command-line style argument: true/false become
// booleans, finite numeric text becomes a number, anything else a string.
func ParseValue(s string) Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Number(f)
	}
	return String(s)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.num)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = Number(t)
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("%w: unsupported OSC parameter %s", ErrValidation, data)
	}
	return nil
}

func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case ValueString:
		return v.str, nil
	case ValueBool:
		return v.b, nil
	default:
		return v.num, nil
	}
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: OSC parameter must be a scalar (line %d)", ErrValidation, node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("%w: OSC parameter must be finite (line %d)", ErrValidation, node.Line)
		}
		*v = Number(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		*v = String(node.Value)
	}
	return nil
}

// Command is an OSC message ready to send: an address plus ordered
// parameters. Commands are never modified in place.
type Command struct {
	address Address
	params  []Value
}

// NewCommand parses the address and copies params.
func NewCommand(address string, params ...Value) (Command, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return Command{}, err
	}
	return CommandFor(addr, params...), nil
}

func CommandFor(addr Address, params ...Value) Command {
	return Command{address: addr, params: append([]Value(nil), params...)}
}

func (c Command) Address() Address { return c.address }

// Parameters returns a copy of the parameter list.
func (c Command) Parameters() []Value {
	return append([]Value(nil), c.params...)
}

func (c Command) Len() int { return len(c.params) }

// WithParameter returns a copy with parameter i replaced. Only existing
// slots can be rewritten.
func (c Command) WithParameter(i int, v Value) (Command, error) {
	if i < 0 || i >= len(c.params) {
		return Command{}, fmt.Errorf("%w: parameter index %d out of bounds for %s (%d parameters)", ErrValidation, i, c.address, len(c.params))
	}
	params := c.Parameters()
	params[i] = v
	return Command{address: c.address, params: params}, nil
}

func (c Command) WithParameters(params ...Value) Command {
	return CommandFor(c.address, params...)
}

func (c Command) Equal(o Command) bool {
	if c.address != o.address || len(c.params) != len(o.params) {
		return false
	}
	for i := range c.params {
		if c.params[i] != o.params[i] {
			return false
		}
	}
	return true
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.address.path)
	for _, p := range c.params {
		b.WriteByte(' ')
		b.WriteString(p.String())
	}
	return b.String()
}
