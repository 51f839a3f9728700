package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dpetran/evtap/internal/domain"
)

// TextWriter prints decoded events one per line:
//
//	<timestamp, zero-padded to 7 digits> <name> <id>: <message>
//
// Two noisy categories never reach the output: events named exactly
// "EventWriteString" and events whose name contains "Rundown". Both carry
// bookkeeping the runtime emits for file-based trace consumers; in an
// interactive viewer they drown out everything else.
type TextWriter struct {
	w          io.Writer
	dispatched int
	suppressed int
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Dispatch formats and writes one event, or drops it when suppressed.
// Called only from the decode loop, so no locking.
func (t *TextWriter) Dispatch(ev domain.Event) error {
	if Suppressed(ev.Name) {
		t.suppressed++
		return nil
	}
	t.dispatched++
	_, err := fmt.Fprintf(t.w, "%07d %s %d: %s\n", ev.TimestampMS, ev.Name, ev.ID, ev.Message)
	return err
}

// Stats returns how many events were printed and how many were dropped by
// the suppression filter. Valid once the decode loop has been joined.
func (t *TextWriter) Stats() (dispatched, suppressed int) {
	return t.dispatched, t.suppressed
}

// Suppressed reports whether an event name belongs to one of the filtered
// diagnostic-noise categories.
func Suppressed(name string) bool {
	return name == "EventWriteString" || strings.Contains(name, "Rundown")
}
