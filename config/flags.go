package config

import (
	"flag"
	"fmt"
)

const (
	CommandRun    = "run"
	CommandStatus = "status"
)

// Flags are the command line options.
type Flags struct {
	ConfigPath string
	Setup      bool
	Debug      bool
	Command    string
}

// ParseFlags parses args (without the program name). The only positional argument is the
// command, run by default.
func ParseFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("ladder", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to yaml config")
	setup := fs.Bool("setup", false, "run the interactive configuration wizard")
	debug := fs.Bool("debug", false, "enable development logging")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	f := Flags{
		ConfigPath: *configPath,
		Setup:      *setup,
		Debug:      *debug,
		Command:    CommandRun,
	}

	switch fs.NArg() {
	case 0:
	case 1:
		f.Command = fs.Arg(0)
	default:
		return Flags{}, fmt.Errorf("expected at most one command, got %v", fs.Args())
	}

	if f.Command != CommandRun && f.Command != CommandStatus {
		return Flags{}, fmt.Errorf("unknown command %q, use %q or %q", f.Command, CommandRun, CommandStatus)
	}
	return f, nil
}
