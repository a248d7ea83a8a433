package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"midiosc/config"
	"midiosc/debug"
	"midiosc/engine"
	"midiosc/midi"
	"midiosc/oscout"
	"midiosc/store"
	"midiosc/theme"
	"midiosc/tracks"
	"midiosc/tui"
)

func main() {
	var (
		debugLog   = flag.Bool("debug", false, "write a debug log to ~/.config/midiosc/debug.log")
		headless   = flag.Bool("headless", false, "run without the terminal UI")
		configPath = flag.String("config", "", "config file (default ~/.config/midiosc/config.json)")
		device     = flag.String("device", "", "select a MIDI input port (or \"all\") and remember it")
		palette    = flag.String("palette", "", "GIMP .gpl palette for the UI")
	)
	flag.Parse()

	if err := run(*debugLog, *headless, *configPath, *device, *palette); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(debugLog, headless bool, configPath, device, palette string) error {
	if debugLog {
		if err := debug.Enable(""); err != nil {
			return err
		}
		defer debug.Disable()
	}

	// Settings
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	cfg.Touch(time.Now())
	if err := cfg.Save(); err != nil {
		debug.Log("config", "save failed: %v", err)
	}

	// Mappings
	path, err := store.DefaultPath()
	if err != nil {
		return err
	}
	mappings, err := store.Open(path)
	if err != nil {
		return err
	}

	// OSC output
	out := oscout.NewClient()
	if cfg.AutoReconnect {
		if err := out.Connect(cfg.OscHost, cfg.OscPort); err != nil {
			debug.Log("osc", "connect %s failed: %v", cfg.OscAddr(), err)
		}
	}
	defer out.Disconnect()

	// Track names, persisted with the settings
	resolver := tracks.NewResolver(out)
	resolver.SetTTL(cfg.TrackTTL())
	if err := resolver.Set(cfg.Tracks); err != nil {
		debug.Log("tracks", "ignoring saved tracks: %v", err)
	}
	resolver.OnChange(func(infos []tracks.Info) {
		cfg.Tracks = infos
		if err := cfg.Save(); err != nil {
			debug.Log("config", "save failed: %v", err)
		}
	})

	// MIDI input
	in := midi.NewInput()
	defer in.CloseAll()
	if device != "" {
		if err := engine.SelectDevice(in, cfg, device); err != nil {
			return err
		}
	} else if cfg.SelectedMidiDevice != "" {
		if err := in.Open(cfg.SelectedMidiDevice); err != nil {
			debug.Log("midi", "open %q failed: %v", cfg.SelectedMidiDevice, err)
		}
	}

	service := engine.NewService(mappings)
	dispatcher := engine.NewDispatcher(mappings, out, resolver)
	in.Subscribe(dispatcher.Handle)
	learner := engine.NewLearner(in, service)

	// Hot-plug watcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var watcher *midi.Watcher
	if cfg.AutoReconnect {
		watcher = midi.NewWatcher(in, cfg.SelectedMidiDevice)
		go watcher.Run(ctx)
	}

	if headless {
		all, err := service.All()
		if err != nil {
			return err
		}
		fmt.Printf("midiosc: %d mappings, OSC %s, MIDI %v\n", len(all), out.Target(), in.OpenDevices())
		fmt.Println("Ctrl+C to exit.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		return nil
	}

	th := theme.New(nil)
	if palette != "" {
		p, err := theme.LoadGPL(palette)
		if err != nil {
			return err
		}
		th = theme.New(p)
	}

	deps := tui.Deps{
		Service: service,
		Learner: learner,
		Input:   in,
		Output:  out,
		Theme:   th,
	}
	if watcher != nil {
		deps.Devices = watcher.Events()
	}

	p := tea.NewProgram(tui.NewModel(deps), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
