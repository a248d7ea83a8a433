package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

const allChannelsTag = "all"

// Channel is either a single MIDI channel (1-16) or the "all" wildcard.
// The zero value is the wildcard.
type Channel struct {
	n int // 0 = all
}

// AllChannels returns the wildcard channel.
func AllChannels() Channel {
	return Channel{}
}

// NewChannel returns a specific channel, 1-16.
func NewChannel(n int) (Channel, error) {
	if err := checkChannel(n); err != nil {
		return Channel{}, err
	}
	return Channel{n: n}, nil
}

// ParseChannel accepts "all" or a channel number.
func ParseChannel(s string) (Channel, error) {
	if s == allChannelsTag {
		return AllChannels(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Channel{}, fmt.Errorf("%w: invalid MIDI channel %q", ErrValidation, s)
	}
	return NewChannel(n)
}

func (c Channel) IsAll() bool { return c.n == 0 }

// Number returns the channel number, or 0 for the wildcard.
func (c Channel) Number() int { return c.n }

// Matches reports whether a message on channel ch passes this channel.
func (c Channel) Matches(ch int) bool {
	return c.n == 0 || c.n == ch
}

func (c Channel) String() string {
	if c.IsAll() {
		return "All Channels"
	}
	return fmt.Sprintf("Channel %d", c.n)
}

func (c Channel) MarshalJSON() ([]byte, error) {
	if c.IsAll() {
		return json.Marshal(allChannelsTag)
	}
	return json.Marshal(c.n)
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ch, err := ParseChannel(s)
		if err != nil {
			return err
		}
		*c = ch
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: channel must be a number or %q", ErrValidation, allChannelsTag)
	}
	ch, err := NewChannel(n)
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

func (c Channel) MarshalYAML() (interface{}, error) {
	if c.IsAll() {
		return allChannelsTag, nil
	}
	return c.n, nil
}

func (c *Channel) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return fmt.Errorf("%w: channel must be a number or %q (line %d)", ErrValidation, allChannelsTag, node.Line)
	}
	ch, err := ParseChannel(node.Value)
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

func checkChannel(n int) error {
	if n < 1 || n > 16 {
		return fmt.Errorf("%w: invalid MIDI channel %d, must be between 1 and 16", ErrValidation, n)
	}
	return nil
}

func checkData(what string, v int) error {
	if v < 0 || v > 127 {
		return fmt.Errorf("%w: invalid %s %d, must be between 0 and 127", ErrValidation, what, v)
	}
	return nil
}
