package trace

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/provider"
)

// Options configures a single trace run.
type Options struct {
	// PID is the target process id. Must be positive.
	PID int
	// Explicit is the provider set given on the command line. May be empty
	// when a profile supplies everything.
	Explicit provider.Set
	// Profile names a catalog profile merged beneath the explicit set.
	// Empty means no profile.
	Profile string
	// BufferSizeMB sizes the remote circular buffer.
	BufferSizeMB int
	// Format tags the serialization format requested from the remote side,
	// normally codec.FormatTag.
	Format string
	// Duration, when nonzero, stops the run that long after streaming
	// begins. Zero means run until stopped interactively.
	Duration time.Duration
}

// Outcome is the per-run record of how a trace ended. Written once by the
// Collector after the decode loop has been joined.
type Outcome struct {
	Reason     domain.StopReason
	Dispatched int
	Suppressed int
}

// Collector drives a trace run through its states: validate inputs, open the
// session, stream events until a stop trigger fires, stop the remote session
// at most once, join the decode loop, and report the outcome.
type Collector struct {
	Dialer     Dialer
	NewDecoder DecoderFactory
	Sink       EventSink
	// Clock supplies the duration timer. Tests inject clock.Mock.
	Clock clock.Clock
	// Keys, when non-nil, is watched for an Enter keypress that stops the
	// run. Normally os.Stdin.
	Keys io.Reader
	// Out receives the stop prompt and the completion notice.
	Out io.Writer
	// Interactive gates the stop prompt; set when Keys is a terminal.
	Interactive bool
	// Debugf, when non-nil, receives verbose progress lines.
	Debugf func(format string, args ...interface{})
}

// Stats is implemented by sinks that count dispatched and suppressed events.
type Stats interface {
	Stats() (dispatched, suppressed int)
}

// Run executes one trace run to completion. The returned error, if any, is
// one of the domain error types; the Outcome is valid either way once a
// session was opened.
func (c *Collector) Run(ctx context.Context, opts Options) (Outcome, error) {
	set, err := c.validate(opts)
	if err != nil {
		return Outcome{}, err
	}

	cfg := SessionConfig{
		BufferSizeMB: opts.BufferSizeMB,
		Format:       opts.Format,
		Providers:    set,
	}

	c.debugf("opening session against pid %d with providers %v", opts.PID, set.Names())
	sess, err := c.Dialer.Open(ctx, opts.PID, cfg)
	if err != nil {
		return Outcome{}, err
	}
	closeStream := sync.OnceFunc(func() { sess.Stream.Close() })
	defer closeStream()
	c.debugf("session %d open", sess.ID)

	signal := NewStopSignal()

	// loopExited is set by the decode loop before it trips the signal, so
	// the foreground can tell stream-driven stops from external ones.
	var loopExited atomic.Bool
	loopDone := make(chan error, 1)
	go c.decodeLoop(sess.Stream, signal, &loopExited, loopDone)

	var timer *clock.Timer
	if opts.Duration > 0 {
		timer = c.Clock.AfterFunc(opts.Duration, func() {
			signal.Trip(domain.StopDurationElapsed)
		})
		defer timer.Stop()
	}

	if c.Keys != nil {
		go c.watchKeys(signal)
	}

	if c.Interactive {
		fmt.Fprintln(c.Out, "Press <Enter> to stop tracing...")
	}

	// Streaming: block until any trigger fires.
	select {
	case <-ctx.Done():
		signal.Trip(domain.StopCancelled)
	case <-signal.Done():
	}

	// Stopping: ask the remote side to end the session, but only when the
	// stop came from outside the decode loop. A loop that already reached
	// its terminal outcome means the remote session is gone.
	if !loopExited.Load() {
		if timer != nil {
			timer.Stop()
		}
		c.debugf("stopping remote session %d (%s)", sess.ID, signal.Reason())
		if err := c.Dialer.Stop(context.WithoutCancel(ctx), sess.ID); err != nil {
			// without a remote stop the stream never ends on its own;
			// tear it down locally so the decode loop can terminate
			c.debugf("remote stop failed, closing stream: %v", err)
			closeStream()
		}
	}

	// Closed: join the loop; its terminal outcome decides success.
	loopErr := <-loopDone

	outcome := Outcome{Reason: signal.Reason()}
	if s, ok := c.Sink.(Stats); ok {
		outcome.Dispatched, outcome.Suppressed = s.Stats()
	}

	if c.Out != nil {
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, "Trace session stopped.")
	}

	if loopErr != nil {
		return outcome, loopErr
	}
	return outcome, nil
}

// validate covers the whole Validating state: pid, profile resolution, and
// the merged provider set. Any failure returns before a session is opened.
func (c *Collector) validate(opts Options) (provider.Set, error) {
	if opts.PID <= 0 {
		return nil, domain.Configf("process id must be positive, got %d", opts.PID)
	}
	if opts.BufferSizeMB <= 0 {
		return nil, domain.Configf("buffer size must be positive, got %d MB", opts.BufferSizeMB)
	}

	var prof *provider.Profile
	if opts.Profile != "" {
		var err error
		prof, err = provider.LookupProfile(opts.Profile)
		if err != nil {
			return nil, err
		}
	}
	return provider.Merge(opts.Explicit, prof)
}

// decodeLoop is the run's second thread of control: it pulls events off the
// stream and dispatches each to the sink, in order, until the stream ends or
// decoding fails. It writes its terminal outcome exactly once and trips the
// stop signal so the foreground notices stream-driven stops.
func (c *Collector) decodeLoop(stream io.Reader, signal *StopSignal, loopExited *atomic.Bool, loopDone chan<- error) {
	dec := c.NewDecoder(stream)
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			loopExited.Store(true)
			loopDone <- nil
			signal.Trip(domain.StopStreamEnded)
			return
		}
		if err != nil {
			loopExited.Store(true)
			if signal.Stopped() {
				// the stream was torn down by a stop already in flight;
				// the read error is self-inflicted, not a decode failure
				loopDone <- nil
				return
			}
			loopDone <- &domain.DecodeError{Err: err}
			signal.Trip(domain.StopDecodeFailed)
			return
		}
		if err := c.Sink.Dispatch(ev); err != nil {
			loopExited.Store(true)
			loopDone <- &domain.DecodeError{Err: fmt.Errorf("dispatching event: %w", err)}
			signal.Trip(domain.StopDecodeFailed)
			return
		}
	}
}

// watchKeys trips the signal on the first Enter keypress. The read blocks
// until input arrives; when the run ends first the goroutine is abandoned,
// which is harmless for a process-lifetime stdin reader.
func (c *Collector) watchKeys(signal *StopSignal) {
	r := bufio.NewReader(c.Keys)
	if _, err := r.ReadString('\n'); err != nil {
		return
	}
	signal.Trip(domain.StopUserRequested)
}

func (c *Collector) debugf(format string, args ...interface{}) {
	if c.Debugf != nil {
		c.Debugf(format, args...)
	}
}
