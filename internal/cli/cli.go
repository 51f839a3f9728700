package cli

import (
	"io"
	"os"

	"github.com/dpetran/evtap/internal/config"
)

// CLI is the top-level command structure parsed by kong.
type CLI struct {
	Quiet   bool `help:"Suppress informational output"`
	Verbose bool `help:"Enable verbose debug logging"`

	Collect  CollectCmd  `cmd:"" help:"Collect a live diagnostic event trace from a running process"`
	Profiles ProfilesCmd `cmd:"" help:"List the predefined provider profiles"`
	Config   ConfigCmd   `cmd:"" help:"Inspect tool configuration"`
}

// Globals carries cross-command state into every Run method.
type Globals struct {
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Config  *config.Config
}

// NewGlobalsWithConfig builds Globals from parsed flags, falling back to
// config file values where no flag was given.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	return &Globals{
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Config:  cfg,
	}
}
