package trace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpetran/evtap/internal/domain"
)

func TestStopSignalFirstTripWins(t *testing.T) {
	s := NewStopSignal()

	assert.False(t, s.Stopped())
	assert.Equal(t, domain.StopNone, s.Reason())

	assert.True(t, s.Trip(domain.StopCancelled))
	assert.True(t, s.Stopped())
	assert.Equal(t, domain.StopCancelled, s.Reason())

	// the timer firing after cancellation must not overwrite the reason
	assert.False(t, s.Trip(domain.StopDurationElapsed))
	assert.Equal(t, domain.StopCancelled, s.Reason())
}

func TestStopSignalDoneCloses(t *testing.T) {
	s := NewStopSignal()

	select {
	case <-s.Done():
		t.Fatal("done channel closed before trip")
	default:
	}

	s.Trip(domain.StopUserRequested)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel still open after trip")
	}
}

func TestStopSignalConcurrentTrips(t *testing.T) {
	s := NewStopSignal()

	reasons := []domain.StopReason{
		domain.StopUserRequested,
		domain.StopDurationElapsed,
		domain.StopCancelled,
		domain.StopStreamEnded,
	}

	var wg sync.WaitGroup
	wins := make(chan domain.StopReason, len(reasons)*25)
	for i := 0; i < 100; i++ {
		reason := reasons[i%len(reasons)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trip(reason) {
				wins <- reason
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []domain.StopReason
	for r := range wins {
		winners = append(winners, r)
	}
	require.Len(t, winners, 1, "exactly one trip may win")
	assert.Equal(t, winners[0], s.Reason())
}
