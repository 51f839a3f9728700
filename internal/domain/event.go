package domain

// Event is a single decoded trace event. Events are ephemeral: the decode
// loop hands each one to the sink and never buffers past the current
// dispatch.
type Event struct {
	// TimestampMS is milliseconds since the session started. Monotonic
	// non-decreasing within a session.
	TimestampMS int64
	Name        string
	ID          uint32
	Message     string
	// Provider is the name of the provider (category) that emitted the event.
	Provider string
}

// StopReason records which trigger ended a trace run. Exactly one reason is
// recorded per run; the first trigger to fire wins.
type StopReason int

const (
	StopNone StopReason = iota
	StopUserRequested
	StopDurationElapsed
	StopCancelled
	StopStreamEnded
	StopDecodeFailed
)

func (r StopReason) String() string {
	switch r {
	case StopUserRequested:
		return "user_requested"
	case StopDurationElapsed:
		return "duration_elapsed"
	case StopCancelled:
		return "cancelled"
	case StopStreamEnded:
		return "stream_ended"
	case StopDecodeFailed:
		return "decode_failed"
	default:
		return "none"
	}
}
