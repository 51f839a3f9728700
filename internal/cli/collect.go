package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mattn/go-isatty"

	"github.com/dpetran/evtap/internal/codec"
	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/filter"
	"github.com/dpetran/evtap/internal/ipc"
	"github.com/dpetran/evtap/internal/output"
	"github.com/dpetran/evtap/internal/provider"
	"github.com/dpetran/evtap/internal/trace"
)

// CollectCmd streams a live event trace from a running process.
type CollectCmd struct {
	ProcessID  int      `short:"p" required:"" help:"Target process id"`
	Providers  string   `help:"Comma-separated providers: Name[:Keywords[:Level[:key=value;key=value]]]"`
	Profile    string   `default:"${config_profile}" help:"Named provider profile merged beneath --providers"`
	BufferSize int      `name:"buffersize" default:"${config_buffersize}" help:"Remote circular buffer size in megabytes"`
	Duration   string   `help:"Stop automatically after DD:HH:MM:SS (default: trace until stopped)"`
	Manifest   []string `help:"Provider manifest descriptor path (can be repeated)"`
	Pattern    string   `help:"Only print events whose name or message matches this regex"`
	Exclude    string   `short:"x" help:"Drop events whose name or message matches this regex"`
}

// Run executes the collect command.
func (c *CollectCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM become the external cancellation trigger
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	explicit, err := provider.Parse(c.Providers)
	if err != nil {
		return outputError(globals, err)
	}

	var duration time.Duration
	window := c.Duration
	if window == "" {
		window = globals.Config.Defaults.Duration
	}
	if window != "" {
		duration, err = ParseWindow(window)
		if err != nil {
			return outputError(globals, err)
		}
	}

	manifestPaths := c.Manifest
	if len(manifestPaths) == 0 {
		manifestPaths = globals.Config.Defaults.Manifests
	}
	manifests, err := codec.LoadManifests(manifestPaths)
	if err != nil {
		return outputError(globals, &domain.ConfigError{Reason: "loading manifests", Err: err})
	}

	var ipcOpts []ipc.Option
	if dir := globals.Config.Defaults.SocketDir; dir != "" {
		ipcOpts = append(ipcOpts, ipc.WithSocketDir(dir))
	}

	pipeline, err := filter.New(c.Pattern, c.Exclude)
	if err != nil {
		return outputError(globals, err)
	}

	log := newDebugLogger(globals, c.ProcessID)
	sink := output.NewTextWriter(globals.Stdout)

	interactive := false
	if f, ok := globals.Stdin.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	collector := &trace.Collector{
		Dialer: ipc.NewClient(ipcOpts...),
		NewDecoder: func(stream io.Reader) trace.Decoder {
			return codec.NewDecoder(stream, manifests)
		},
		Sink:        pipeline.Wrap(sink),
		Clock:       clock.New(),
		Keys:        globals.Stdin,
		Out:         globals.Stdout,
		Interactive: interactive && !globals.Quiet,
		Debugf:      log.Debug,
	}

	outcome, err := collector.Run(ctx, trace.Options{
		PID:          c.ProcessID,
		Explicit:     explicit,
		Profile:      c.Profile,
		BufferSizeMB: c.BufferSize,
		Duration:     duration,
		Format:       codec.FormatTag,
	})
	if err != nil {
		return outputError(globals, err)
	}

	log.Debug("trace stopped: reason=%s dispatched=%d suppressed=%d",
		outcome.Reason, outcome.Dispatched, outcome.Suppressed)
	return nil
}
