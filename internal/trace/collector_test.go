package trace

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/provider"
)

// fakeDecoder replays scripted events, then either ends the stream or fails.
// With a release channel set it blocks before its terminal outcome, the way
// a real decoder blocks on stream reads until the remote session stops.
type fakeDecoder struct {
	mu      sync.Mutex
	events  []domain.Event
	err     error
	release chan struct{}
}

func (d *fakeDecoder) Next() (domain.Event, error) {
	d.mu.Lock()
	if len(d.events) > 0 {
		ev := d.events[0]
		d.events = d.events[1:]
		d.mu.Unlock()
		return ev, nil
	}
	d.mu.Unlock()

	if d.release != nil {
		<-d.release
	}
	if d.err != nil {
		return domain.Event{}, d.err
	}
	return domain.Event{}, io.EOF
}

// fakeDialer counts opens and stops. Stopping releases the decoder, the way
// a remote stop ends the real stream; with stopErr set the stop fails and
// nothing is released.
type fakeDialer struct {
	opens   atomic.Int32
	stops   atomic.Int32
	openErr error
	stopErr error

	releaseOnce sync.Once
	release     chan struct{}
}

func (f *fakeDialer) Open(ctx context.Context, pid int, cfg SessionConfig) (*Session, error) {
	f.opens.Add(1)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &Session{ID: 42, Stream: &fakeStream{dialer: f}}, nil
}

func (f *fakeDialer) Stop(ctx context.Context, id uint64) error {
	f.stops.Add(1)
	if f.stopErr != nil {
		return f.stopErr
	}
	f.doRelease()
	return nil
}

func (f *fakeDialer) doRelease() {
	if f.release != nil {
		f.releaseOnce.Do(func() { close(f.release) })
	}
}

// fakeStream stands in for the session stream: closing it releases a pending
// decoder read, the way closing a socket unblocks a blocked read.
type fakeStream struct {
	dialer *fakeDialer
}

func (s *fakeStream) Read([]byte) (int, error) { return 0, io.EOF }

func (s *fakeStream) Close() error {
	s.dialer.doRelease()
	return nil
}

type recordSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordSink) Dispatch(ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Name
	}
	return out
}

func newTestCollector(d Dialer, dec Decoder, sink EventSink) *Collector {
	return &Collector{
		Dialer:     d,
		NewDecoder: func(io.Reader) Decoder { return dec },
		Sink:       sink,
		Clock:      clock.New(),
		Out:        &bytes.Buffer{},
	}
}

func baseOptions() Options {
	return Options{
		PID:          1234,
		Explicit:     provider.Set{{Name: "Runtime", Keywords: 0x1, Level: 5}},
		BufferSizeMB: 256,
		Format:       "evtap-frame-v1",
	}
}

func TestCollectorValidation(t *testing.T) {
	t.Run("negative pid fails before any session opens", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestCollector(dialer, &fakeDecoder{}, &recordSink{})

		opts := baseOptions()
		opts.PID = -5
		_, err := c.Run(context.Background(), opts)

		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Zero(t, dialer.opens.Load())
	})

	t.Run("unknown profile names the offender", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestCollector(dialer, &fakeDecoder{}, &recordSink{})

		opts := baseOptions()
		opts.Explicit = nil
		opts.Profile = "bogus"
		_, err := c.Run(context.Background(), opts)

		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, err.Error(), "bogus")
		assert.Zero(t, dialer.opens.Load())
	})

	t.Run("empty merged provider set fails", func(t *testing.T) {
		dialer := &fakeDialer{}
		c := newTestCollector(dialer, &fakeDecoder{}, &recordSink{})

		opts := baseOptions()
		opts.Explicit = nil
		_, err := c.Run(context.Background(), opts)

		var cfgErr *domain.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Zero(t, dialer.opens.Load())
	})

	t.Run("non-positive buffer size fails", func(t *testing.T) {
		c := newTestCollector(&fakeDialer{}, &fakeDecoder{}, &recordSink{})

		opts := baseOptions()
		opts.BufferSizeMB = 0
		_, err := c.Run(context.Background(), opts)

		var cfgErr *domain.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestCollectorOpenFailure(t *testing.T) {
	dialer := &fakeDialer{openErr: &domain.SessionOpenError{PID: 1234, Err: errors.New("refused")}}
	c := newTestCollector(dialer, &fakeDecoder{}, &recordSink{})

	_, err := c.Run(context.Background(), baseOptions())

	var openErr *domain.SessionOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Zero(t, dialer.stops.Load())
}

func TestCollectorStreamEndsNaturally(t *testing.T) {
	dialer := &fakeDialer{}
	dec := &fakeDecoder{events: []domain.Event{
		{TimestampMS: 1, Name: "GCStart", ID: 1},
		{TimestampMS: 2, Name: "GCEnd", ID: 2},
	}}
	sink := &recordSink{}
	c := newTestCollector(dialer, dec, sink)

	outcome, err := c.Run(context.Background(), baseOptions())
	require.NoError(t, err)

	assert.Equal(t, domain.StopStreamEnded, outcome.Reason)
	assert.Equal(t, []string{"GCStart", "GCEnd"}, sink.names())
	// the loop ended on its own, so the remote session is never stopped
	assert.Zero(t, dialer.stops.Load())
}

func TestCollectorDecodeFailure(t *testing.T) {
	dialer := &fakeDialer{}
	dec := &fakeDecoder{
		events: []domain.Event{{TimestampMS: 1, Name: "GCStart", ID: 1}},
		err:    errors.New("torn frame"),
	}
	sink := &recordSink{}
	c := newTestCollector(dialer, dec, sink)

	outcome, err := c.Run(context.Background(), baseOptions())

	var decErr *domain.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, domain.StopDecodeFailed, outcome.Reason)
	assert.Equal(t, []string{"GCStart"}, sink.names())
	assert.Zero(t, dialer.stops.Load())
}

func TestCollectorKeypressStops(t *testing.T) {
	dialer := &fakeDialer{release: make(chan struct{})}
	dec := &fakeDecoder{release: dialer.release}
	c := newTestCollector(dialer, dec, &recordSink{})
	c.Keys = strings.NewReader("\n")

	outcome, err := c.Run(context.Background(), baseOptions())
	require.NoError(t, err)

	assert.Equal(t, domain.StopUserRequested, outcome.Reason)
	assert.Equal(t, int32(1), dialer.stops.Load())
}

// TestCollectorStopFailureStillTerminates covers the run where the remote
// stop itself fails: the stream is torn down locally so the blocked decode
// loop can end, and the run still finishes with the triggering reason.
func TestCollectorStopFailureStillTerminates(t *testing.T) {
	dialer := &fakeDialer{
		release: make(chan struct{}),
		stopErr: errors.New("session endpoint gone"),
	}
	dec := &fakeDecoder{
		release: dialer.release,
		err:     errors.New("read on closed stream"),
	}
	c := newTestCollector(dialer, dec, &recordSink{})
	c.Keys = strings.NewReader("\n")

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := c.Run(context.Background(), baseOptions())
		done <- result{outcome, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, domain.StopUserRequested, res.outcome.Reason)
		assert.Equal(t, int32(1), dialer.stops.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("run did not end after the remote stop failed")
	}
}

func TestCollectorCancellationStops(t *testing.T) {
	dialer := &fakeDialer{release: make(chan struct{})}
	dec := &fakeDecoder{release: dialer.release}
	c := newTestCollector(dialer, dec, &recordSink{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcome, err := c.Run(ctx, baseOptions())
	require.NoError(t, err)

	assert.Equal(t, domain.StopCancelled, outcome.Reason)
	assert.Equal(t, int32(1), dialer.stops.Load())
}

func TestCollectorDurationStops(t *testing.T) {
	dialer := &fakeDialer{release: make(chan struct{})}
	dec := &fakeDecoder{release: dialer.release}
	c := newTestCollector(dialer, dec, &recordSink{})

	mock := clock.NewMock()
	c.Clock = mock

	opts := baseOptions()
	opts.Duration = 2 * time.Second

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := c.Run(context.Background(), opts)
		done <- result{outcome, err}
	}()

	// let the run reach its streaming state before advancing the clock
	require.Eventually(t, func() bool { return dialer.opens.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	mock.Add(2 * time.Second)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, domain.StopDurationElapsed, res.outcome.Reason)
		assert.Equal(t, int32(1), dialer.stops.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after the duration elapsed")
	}
}

// TestCollectorRemoteStopAtMostOnce races keypress, timer, cancellation, and
// stream end against each other and verifies the remote stop primitive is
// never invoked more than once, whichever trigger wins.
func TestCollectorRemoteStopAtMostOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(0x5e55))

	for i := 0; i < 100; i++ {
		dialer := &fakeDialer{release: make(chan struct{})}
		dec := &fakeDecoder{release: dialer.release}

		keyR, keyW := io.Pipe()
		c := newTestCollector(dialer, dec, &recordSink{})
		c.Keys = keyR

		ctx, cancel := context.WithCancel(context.Background())

		jitter := func() time.Duration {
			return time.Duration(rng.Intn(3)) * time.Millisecond
		}
		go func(d time.Duration) {
			time.Sleep(d)
			keyW.Write([]byte("\n"))
		}(jitter())
		go func(d time.Duration) {
			time.Sleep(d)
			cancel()
		}(jitter())
		go func(d time.Duration) {
			// the decoder ends the stream on its own
			time.Sleep(d)
			dialer.doRelease()
		}(jitter())

		opts := baseOptions()
		opts.Duration = jitter() + time.Millisecond

		outcome, err := c.Run(ctx, opts)
		require.NoError(t, err, "iteration %d", i)
		assert.LessOrEqual(t, dialer.stops.Load(), int32(1), "iteration %d: remote stop invoked more than once", i)
		assert.NotEqual(t, domain.StopNone, outcome.Reason, "iteration %d", i)

		cancel()
		keyW.Close()
	}
}

func TestCollectorReportsSinkStats(t *testing.T) {
	dialer := &fakeDialer{}
	dec := &fakeDecoder{events: []domain.Event{
		{TimestampMS: 1, Name: "GCStart", ID: 1},
	}}
	sink := &statSink{}
	c := newTestCollector(dialer, dec, sink)

	outcome, err := c.Run(context.Background(), baseOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Dispatched)
}

type statSink struct {
	dispatched int
}

func (s *statSink) Dispatch(domain.Event) error {
	s.dispatched++
	return nil
}

func (s *statSink) Stats() (int, int) { return s.dispatched, 0 }
