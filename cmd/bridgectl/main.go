package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"midiosc/config"
	"midiosc/engine"
	"midiosc/mapping"
	"midiosc/midi"
	"midiosc/oscout"
	"midiosc/store"
	"midiosc/tracks"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "monitor":
		err = monitor(args)
	case "select":
		err = selectDevice(args)
	case "watch":
		err = watch()
	case "mappings":
		err = listMappings()
	case "enable", "disable":
		err = setEnabled(args, os.Args[1] == "enable")
	case "delete":
		err = deleteMapping(args)
	case "export":
		err = exportMappings(args)
	case "import":
		err = importMappings(args)
	case "config":
		err = configCmd(args)
	case "tracks":
		err = tracksCmd(args)
	case "osc":
		err = oscCmd(args)
	default:
		usage()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("midiosc bridge control")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                      - List MIDI input ports")
	fmt.Println("  monitor [port|all]        - Print decoded MIDI events")
	fmt.Println("  select <port|all>         - Check and remember the input port")
	fmt.Println("  watch                     - Report ports as they come and go")
	fmt.Println("  mappings                  - List mappings")
	fmt.Println("  enable|disable <id>       - Toggle a mapping")
	fmt.Println("  delete <id>               - Delete a mapping")
	fmt.Println("  export [file]             - Write mappings as YAML")
	fmt.Println("  import <file>             - Read mappings from YAML")
	fmt.Println("  config get [key]          - Show settings")
	fmt.Println("  config set <key> <value>  - Change a setting")
	fmt.Println("  tracks list|add|remove    - Manage the track table")
	fmt.Println("  tracks fetch              - Ask Live for its track names")
	fmt.Println("  osc test                  - Send /live/test")
	fmt.Println("  osc send <addr> [args]    - Send one OSC message")
}

func listPorts() error {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.ListTimeout)

	devices, err := midi.NewInput().Devices()
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for _, d := range devices {
		fmt.Printf("  %s: %s\n", d.ID, d.Name)
	}
	return nil
}

func monitor(args []string) error {
	name := midi.AllDevices
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}

	in := midi.NewInput()
	in.Subscribe(func(msg mapping.Message, device string) {
		fmt.Printf("[%s] %-14s %s\n", time.Now().Format("15:04:05.000"), device, msg)
	})
	if err := in.Open(name); err != nil {
		return err
	}
	defer in.CloseAll()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", strings.Join(in.OpenDevices(), ", "))
	waitForInterrupt()
	return nil
}

func watch() error {
	fmt.Println("Watching for device changes...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := midi.NewWatcher(midi.NewInput(), "")
	go w.Run(ctx)
	for ev := range w.Events() {
		fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), ev.Name, ev.Type)
	}
	return nil
}

func selectDevice(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: select <port|all>")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	in := midi.NewInput()
	defer in.CloseAll()
	if err := engine.SelectDevice(in, cfg, strings.Join(args, " ")); err != nil {
		return err
	}
	fmt.Printf("Selected %s\n", cfg.SelectedMidiDevice)
	return nil
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

func openStore() (*store.Store, error) {
	path, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

func listMappings() error {
	s, err := openStore()
	if err != nil {
		return err
	}
	all, err := s.All()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No mappings")
		return nil
	}
	for _, m := range all {
		state := "on "
		if !m.Enabled() {
			state = "off"
		}
		device := "any device"
		if m.Device() != "" {
			device = m.Device()
		}
		fmt.Printf("%s  [%s]  %s  (%s)\n", m.ID(), state, m, device)
	}
	return nil
}

func setEnabled(args []string, enabled bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: enable|disable <id>")
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	return engine.NewService(s).SetEnabled(args[0], enabled)
}

func deleteMapping(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	return engine.NewService(s).Delete(args[0])
}

func exportMappings(args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return s.ExportYAML(os.Stdout)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	if err := s.ExportYAML(f); err != nil {
		return err
	}
	fmt.Printf("Exported mappings to %s\n", args[0])
	return nil
}

func importMappings(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: import <file>")
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := s.ImportYAML(f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d mappings\n", n)
	return nil
}

func configCmd(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch {
	case len(args) >= 1 && args[0] == "get":
		keys := config.Keys
		if len(args) > 1 {
			keys = args[1:]
		}
		for _, k := range keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", k, v)
		}
		return nil

	case len(args) == 3 && args[0] == "set":
		if err := cfg.Set(args[1], args[2]); err != nil {
			return err
		}
		return cfg.Save()
	}
	return fmt.Errorf("usage: config get [key] | config set <key> <value>")
}

func tracksCmd(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	r := tracks.NewResolver(nil)
	r.SetTTL(cfg.TrackTTL())
	if err := r.Set(cfg.Tracks); err != nil {
		return err
	}
	r.OnChange(func(infos []tracks.Info) {
		cfg.Tracks = infos
	})

	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		if !r.HasCached() {
			fmt.Println("No tracks configured")
			return nil
		}
		infos, _, err := engine.NewTrackLookup(r).Tracks(false)
		if err != nil {
			return err
		}
		for _, t := range infos {
			fmt.Println(t)
		}
		return nil

	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: tracks add <index> <name>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid track index %q", args[1])
		}
		if err := r.Add(tracks.Info{Index: idx, Name: strings.Join(args[2:], " ")}); err != nil {
			return err
		}

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: tracks remove <index>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid track index %q", args[1])
		}
		if err := r.Remove(idx); err != nil {
			return err
		}

	case "clear":
		r.Clear()

	case "fetch":
		c := oscout.NewClient()
		if err := c.Connect(cfg.OscHost, cfg.OscPort); err != nil {
			return err
		}
		defer c.Disconnect()
		remote := tracks.NewResolver(c)
		remote.SetTTL(cfg.TrackTTL())
		infos, age, err := engine.NewTrackLookup(remote).Tracks(true)
		if err != nil {
			return err
		}
		fmt.Printf("%d tracks (%s old)\n", len(infos), age)
		return nil

	default:
		return fmt.Errorf("usage: tracks list|add|remove|clear|fetch")
	}
	return cfg.Save()
}

func oscCmd(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c := oscout.NewClient()
	if err := c.Connect(cfg.OscHost, cfg.OscPort); err != nil {
		return err
	}
	defer c.Disconnect()

	switch {
	case len(args) == 1 && args[0] == "test":
		if err := c.Test(); err != nil {
			return err
		}
		fmt.Printf("Sent %s to %s\n", oscout.TestAddress, c.Target())
		return nil

	case len(args) >= 2 && args[0] == "send":
		var params []mapping.Value
		for _, a := range args[2:] {
			params = append(params, mapping.ParseValue(a))
		}
		cmd, err := mapping.NewCommand(args[1], params...)
		if err != nil {
			return err
		}
		if err := c.Send(cmd); err != nil {
			return err
		}
		fmt.Printf("Sent %s to %s\n", cmd, c.Target())
		return nil
	}
	return fmt.Errorf("usage: osc test | osc send <addr> [args]")
}
