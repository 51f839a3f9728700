package trace

import (
	"sync"

	"github.com/dpetran/evtap/internal/domain"
)

// StopSignal is a one-shot broadcast shared by every trigger that can end a
// trace run: keypress, duration timer, cancellation, and the decode loop's
// own completion. The first trigger to fire records its StopReason; later
// triggers are no-ops.
type StopSignal struct {
	mu     sync.Mutex
	reason domain.StopReason
	done   chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Trip moves the signal to its stopped state. Returns true if this call won
// the race and its reason was recorded.
func (s *StopSignal) Trip(reason domain.StopReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != domain.StopNone {
		return false
	}
	s.reason = reason
	close(s.done)
	return true
}

// Done returns a channel closed once the signal has been tripped.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Reason returns the recorded stop reason, or domain.StopNone while armed.
func (s *StopSignal) Reason() domain.StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Stopped reports whether the signal has been tripped.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
