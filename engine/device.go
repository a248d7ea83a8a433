package engine

import (
	"fmt"

	"midiosc/debug"
	"midiosc/mapping"
)

// SelectedDeviceKey is the settings key holding the chosen MIDI input.
const SelectedDeviceKey = "selectedMidiDevice"

// DeviceInput opens and closes MIDI input ports by name, or "all".
type DeviceInput interface {
	Open(name string) error
	CloseAll()
}

// Settings is the key/value config the bridge persists its choices in.
type Settings interface {
	Set(key, value string) error
	Save() error
}

// SelectDevice switches the MIDI input to name and remembers the choice.
// The previous inputs are closed even when opening name fails.
func SelectDevice(in DeviceInput, settings Settings, name string) error {
	if name == "" {
		return fmt.Errorf("%w: device name cannot be empty", mapping.ErrValidation)
	}

	in.CloseAll()
	if err := in.Open(name); err != nil {
		return fmt.Errorf("failed to select device %q: %w", name, err)
	}
	debug.Log("midi", "selected input %q", name)

	if settings == nil {
		return nil
	}
	if err := settings.Set(SelectedDeviceKey, name); err != nil {
		return fmt.Errorf("failed to select device %q: %w", name, err)
	}
	if err := settings.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
