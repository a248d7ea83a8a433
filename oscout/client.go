// Package oscout sends OSC commands to Live over UDP.
package oscout

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/hypebeast/go-osc/osc"

	"midiosc/debug"
	"midiosc/mapping"
)

// TestAddress is sent by Test to check the output path.
const TestAddress = "/live/test"

// Client is a one-way OSC output. It is safe for concurrent use.
type Client struct {
	mu     sync.RWMutex
	client *osc.Client
	host   string
	port   int
}

func NewClient() *Client {
	return &Client{}
}

// Connect targets host:port. Nothing is sent, so an unreachable host is
// only noticed on Send.
func (c *Client) Connect(host string, port int) error {
	if host == "" {
		return fmt.Errorf("%w: OSC host cannot be empty", mapping.ErrValidation)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: invalid OSC port %d", mapping.ErrValidation, port)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	if _, err := net.ResolveUDPAddr("udp", addr); err != nil {
		return fmt.Errorf("%w: failed to connect to OSC: %v", mapping.ErrTransport, err)
	}

	c.mu.Lock()
	c.client = osc.NewClient(host, port)
	c.host, c.port = host, port
	c.mu.Unlock()

	debug.Log("osc", "connected to %s", addr)
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	was := c.client != nil
	c.client = nil
	c.mu.Unlock()

	if was {
		debug.Log("osc", "disconnected")
	}
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// Target returns host:port, empty when disconnected.
func (c *Client) Target() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return ""
	}
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Send encodes cmd and sends it. Whole numbers go out as int32, other
// numbers as float32 and booleans as 1 or 0.
func (c *Client) Send(cmd mapping.Command) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("%w: OSC client not connected", mapping.ErrTransport)
	}
	if err := client.Send(Encode(cmd)); err != nil {
		return fmt.Errorf("%w: failed to send OSC message %s: %v", mapping.ErrTransport, cmd.Address(), err)
	}
	debug.Log("osc", "-> %s", cmd)
	return nil
}

// Test sends TestAddress with no arguments. Without a reply channel a
// successful send is all that can be checked.
func (c *Client) Test() error {
	cmd, err := mapping.NewCommand(TestAddress)
	if err != nil {
		return err
	}
	if err := c.Send(cmd); err != nil {
		return fmt.Errorf("OSC test failed: %w", err)
	}
	return nil
}

// Encode builds the OSC message for cmd.
func Encode(cmd mapping.Command) *osc.Message {
	msg := osc.NewMessage(cmd.Address().Path())
	for _, p := range cmd.Parameters() {
		msg.Append(argument(p))
	}
	return msg
}

func argument(v mapping.Value) interface{} {
	switch v.Kind() {
	case mapping.ValueString:
		s, _ := v.Str()
		return s
	case mapping.ValueBool:
		if b, _ := v.Boolean(); b {
			return int32(1)
		}
		return int32(0)
	default:
		f, _ := v.Float()
		if v.IsInteger() {
			return int32(f)
		}
		return float32(f)
	}
}
