package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"midiosc/mapping"
	"midiosc/tracks"
)

// Setting keys accepted by Get and Set
const (
	KeySelectedMidiDevice  = "selectedMidiDevice"
	KeySelectedMidiChannel = "selectedMidiChannel"
	KeyOscHost             = "oscHost"
	KeyOscPort             = "oscPort"
	KeyAutoReconnect       = "autoReconnect"
	KeyLastOpened          = "lastOpened"
	KeyTrackCacheTTL       = "trackCacheTtl"
)

// Keys lists the settings in display order.
var Keys = []string{
	KeySelectedMidiDevice,
	KeySelectedMidiChannel,
	KeyOscHost,
	KeyOscPort,
	KeyAutoReconnect,
	KeyLastOpened,
	KeyTrackCacheTTL,
}

// Config is the main configuration structure
type Config struct {
	SelectedMidiDevice  string          `json:"selectedMidiDevice,omitempty"`
	SelectedMidiChannel mapping.Channel `json:"selectedMidiChannel"`
	OscHost             string          `json:"oscHost"`
	OscPort             int             `json:"oscPort"`
	AutoReconnect       bool            `json:"autoReconnect"`
	LastOpened          time.Time       `json:"lastOpened"`
	TrackCacheTTL       string          `json:"trackCacheTtl"`

	// Tracks is the manually configured track table
	Tracks []tracks.Info `json:"tracks,omitempty"`

	path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SelectedMidiChannel: mapping.AllChannels(),
		OscHost:             "127.0.0.1",
		OscPort:             11000,
		AutoReconnect:       true,
		TrackCacheTTL:       tracks.DefaultTTL.String(),
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiosc"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing keys keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Save writes the config back to where it was loaded from
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Path is the file Save writes to, empty until loaded or saved
func (c *Config) Path() string { return c.path }

// OscAddr returns host:port for the OSC output
func (c *Config) OscAddr() string {
	return fmt.Sprintf("%s:%d", c.OscHost, c.OscPort)
}

// Get returns a setting as text
func (c *Config) Get(key string) (string, error) {
	switch key {
	case KeySelectedMidiDevice:
		return c.SelectedMidiDevice, nil
	case KeySelectedMidiChannel:
		if c.SelectedMidiChannel.IsAll() {
			return "all", nil
		}
		return strconv.Itoa(c.SelectedMidiChannel.Number()), nil
	case KeyOscHost:
		return c.OscHost, nil
	case KeyOscPort:
		return strconv.Itoa(c.OscPort), nil
	case KeyAutoReconnect:
		return strconv.FormatBool(c.AutoReconnect), nil
	case KeyLastOpened:
		if c.LastOpened.IsZero() {
			return "", nil
		}
		return c.LastOpened.Format(time.RFC3339), nil
	case KeyTrackCacheTTL:
		return c.TrackCacheTTL, nil
	}
	return "", fmt.Errorf("%w: unknown config key %q", mapping.ErrNotFound, key)
}

// Set parses value and stores it under key. It does not save.
func (c *Config) Set(key, value string) error {
	switch key {
	case KeySelectedMidiDevice:
		c.SelectedMidiDevice = value
	case KeySelectedMidiChannel:
		ch, err := mapping.ParseChannel(value)
		if err != nil {
			return err
		}
		c.SelectedMidiChannel = ch
	case KeyOscHost:
		if value == "" {
			return fmt.Errorf("%w: OSC host cannot be empty", mapping.ErrValidation)
		}
		c.OscHost = value
	case KeyOscPort:
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: invalid OSC port %q", mapping.ErrValidation, value)
		}
		c.OscPort = port
	case KeyAutoReconnect:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: invalid boolean %q", mapping.ErrValidation, value)
		}
		c.AutoReconnect = b
	case KeyLastOpened:
		if value == "" {
			c.LastOpened = time.Time{}
			return nil
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("%w: invalid time %q", mapping.ErrValidation, value)
		}
		c.LastOpened = t
	case KeyTrackCacheTTL:
		if _, err := parseTTL(value); err != nil {
			return err
		}
		c.TrackCacheTTL = value
	default:
		return fmt.Errorf("%w: unknown config key %q", mapping.ErrNotFound, key)
	}
	return nil
}

// TrackTTL is how long a manually entered track table counts as fresh.
// An unreadable value falls back to tracks.DefaultTTL.
func (c *Config) TrackTTL() time.Duration {
	ttl, err := parseTTL(c.TrackCacheTTL)
	if err != nil {
		return tracks.DefaultTTL
	}
	return ttl
}

func parseTTL(s string) (time.Duration, error) {
	ttl, err := time.ParseDuration(s)
	if err != nil || ttl <= 0 {
		return 0, fmt.Errorf("%w: invalid track cache TTL %q", mapping.ErrValidation, s)
	}
	return ttl, nil
}

// Touch records now as the last time the bridge was opened
func (c *Config) Touch(now time.Time) {
	c.LastOpened = now.UTC().Truncate(time.Second)
}
