package trace

import (
	"context"
	"io"

	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/provider"
)

// SessionConfig is handed to the remote endpoint once, when a session is
// opened. Immutable afterward.
type SessionConfig struct {
	// BufferSizeMB sizes the remote circular event buffer, in megabytes.
	BufferSizeMB int
	// Format tags the serialization format the caller can decode.
	Format string
	// Providers is the final merged provider set. Never empty by the time a
	// session opens.
	Providers provider.Set
}

// Session is an open streaming session against a target process. Owned
// exclusively by the Collector, which releases it exactly once.
type Session struct {
	// ID is the remote session identifier. Nonzero on a successful open.
	ID uint64
	// Stream carries framed events until the remote side ends it.
	Stream io.ReadCloser
}

// Dialer opens and stops remote trace sessions. The concrete implementation
// lives in internal/ipc; tests substitute their own.
type Dialer interface {
	// Open starts a session against pid. Fails with
	// domain.TargetNotFoundError when the process has no diagnostic
	// endpoint, or domain.SessionOpenError when the endpoint refuses.
	Open(ctx context.Context, pid int, cfg SessionConfig) (*Session, error)
	// Stop asks the remote side to end the session, which in turn ends the
	// stream. The Collector calls this at most once per session.
	Stop(ctx context.Context, id uint64) error
}

// Decoder turns a session stream into events. Next returns io.EOF at a
// clean end of stream; any other error is unrecoverable.
type Decoder interface {
	Next() (domain.Event, error)
}

// DecoderFactory builds a Decoder over an open stream. Manifest descriptors
// must be bound inside the factory, before decoding starts.
type DecoderFactory func(stream io.Reader) Decoder

// EventSink receives every decoded event, in stream order.
type EventSink interface {
	Dispatch(ev domain.Event) error
}
