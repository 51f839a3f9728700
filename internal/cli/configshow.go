package cli

import "fmt"

// ConfigCmd groups the configuration subcommands.
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Show the effective configuration"`
}

// ConfigShowCmd prints the effective configuration after file and
// environment resolution.
type ConfigShowCmd struct{}

// Run executes the config show command.
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintf(globals.Stdout, "  quiet: %v\n", cfg.Quiet)
	fmt.Fprintf(globals.Stdout, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(globals.Stdout, "Defaults:")
	fmt.Fprintf(globals.Stdout, "  profile: %s\n", cfg.Defaults.Profile)
	fmt.Fprintf(globals.Stdout, "  buffer_size_mb: %d\n", cfg.Defaults.BufferSizeMB)
	if cfg.Defaults.Duration != "" {
		fmt.Fprintf(globals.Stdout, "  duration: %s\n", cfg.Defaults.Duration)
	}
	if len(cfg.Defaults.Manifests) > 0 {
		fmt.Fprintf(globals.Stdout, "  manifests: %v\n", cfg.Defaults.Manifests)
	}
	if cfg.Defaults.SocketDir != "" {
		fmt.Fprintf(globals.Stdout, "  socket_dir: %s\n", cfg.Defaults.SocketDir)
	}
	return nil
}
