// Package cli parses autojs-host command lines.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandAttach   Command = "attach"
	CommandConnect  Command = "connect"
	CommandRun      Command = "run"
	CommandStop     Command = "stop"
	CommandUpload   Command = "upload"
	CommandSnapshot Command = "snapshot"
	CommandStatus   Command = "status"
	CommandHistory  Command = "history"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandAttach:   {},
	CommandConnect:  {},
	CommandRun:      {},
	CommandStop:     {},
	CommandUpload:   {},
	CommandSnapshot: {},
	CommandStatus:   {},
	CommandHistory:  {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// Parsed is one fully validated invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Verbose    bool

	// Address is the connect target, or the attach --addr override.
	Address string
	// Name is the status project; empty means the current project.
	Name      string
	OutPath   string
	Clipboard bool
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.SetInterspersed(false)
	return flags
}

// Parse reads global flags, the command, then command-specific arguments.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	global := newFlagSet("autojs-host")
	global.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	global.BoolVarP(&parsed.Verbose, "verbose", "v", false, "log debug records")
	help := global.BoolP("help", "h", false, "show help")
	showVersion := global.Bool("version", false, "show version")

	if err := global.Parse(args); err != nil {
		return Parsed{}, err
	}
	if *help {
		return parsed, nil
	}
	if *showVersion {
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
		return parsed, nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		return parsed, nil
	}

	cmd := Command(rest[0])
	if _, ok := validCommands[cmd]; !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
	}
	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp

	if err := parseCommandArgs(&parsed, rest[1:]); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func parseCommandArgs(parsed *Parsed, args []string) error {
	flags := newFlagSet(string(parsed.Command))
	switch parsed.Command {
	case CommandAttach:
		flags.StringVar(&parsed.Address, "addr", "", "device address")
	case CommandSnapshot:
		flags.StringVar(&parsed.OutPath, "out", "", "output PNG path")
		flags.BoolVar(&parsed.Clipboard, "clipboard", false, "copy to clipboard instead of writing a file")
	}
	flags.SetInterspersed(true)

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", parsed.Command, err)
	}
	positional := flags.Args()

	switch parsed.Command {
	case CommandConnect:
		if len(positional) != 1 {
			return fmt.Errorf("connect requires exactly one address")
		}
		parsed.Address = positional[0]
		return nil
	case CommandStatus:
		if len(positional) > 1 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		if len(positional) == 1 {
			parsed.Name = positional[0]
		}
		return nil
	case CommandSnapshot:
		if parsed.Clipboard && parsed.OutPath != "" {
			return fmt.Errorf("snapshot: --out and --clipboard are mutually exclusive")
		}
	}

	if len(positional) > 0 {
		return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [-v] <command> [args]

Commands:
  attach [--addr A]    Hold the device session and serve forwarded commands
  connect <addr>       Verify connectivity and remember the device address
  run                  Stop, replace, and start the current project on the device
  stop                 Stop the current project
  upload               Replace the workspace projects on the device
  snapshot [--out PATH | --clipboard]
                       Capture the device screen as PNG
  status [name]        Print a project's state (default: current project)
  history              List known device addresses, most recent last
  doctor               Run configuration, workspace, and device checks
  version              Print version information
  help                 Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/autojs-host/config.jsonc)
  -v, --verbose   Log debug records
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
