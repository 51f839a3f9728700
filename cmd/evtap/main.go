package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/dpetran/evtap/internal/cli"
	"github.com/dpetran/evtap/internal/config"
)

const quickStart = `evtap - live diagnostic event traces from running processes

Quick start:
  evtap profiles                        List provider profiles
  evtap collect -p PID                  Trace with the default profile
  evtap collect -p PID --providers "Runtime:0x1:4" --duration 00:00:00:30

For help:
  evtap --help                          All commands and flags
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing; CLI flags override these
	vars := kong.Vars{
		"config_profile":    cfg.Defaults.Profile,
		"config_buffersize": strconv.Itoa(cfg.Defaults.BufferSizeMB),
	}

	ctx := kong.Parse(&c,
		kong.Name("evtap"),
		kong.Description("evtap: stream a live diagnostic event trace from a running process"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	os.Exit(cli.ExitCode(err))
}
