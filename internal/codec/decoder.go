package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dpetran/evtap/internal/domain"
)

// FormatTag names the serialization format this decoder understands. Sent to
// the remote endpoint when opening a session.
const FormatTag = "evtap-frame-v1"

// maxFrameSize bounds a single event frame. A larger length prefix means the
// stream is corrupt, not that the event is big.
const maxFrameSize = 1 << 20

// Decoder reads framed trace events off a session stream. Manifests are
// fixed at construction; registering descriptors after decoding has started
// is not supported, which makes the ordering constraint unviolable.
type Decoder struct {
	r         *bufio.Reader
	manifests map[string]*Manifest
	lastTS    int64
}

// NewDecoder wraps a session stream. The manifests, if any, are consulted to
// name events the wire frame leaves anonymous.
func NewDecoder(r io.Reader, manifests []*Manifest) *Decoder {
	byProvider := make(map[string]*Manifest, len(manifests))
	for _, m := range manifests {
		byProvider[m.Provider] = m
	}
	return &Decoder{
		r:         bufio.NewReader(r),
		manifests: byProvider,
	}
}

// Next decodes the next event from the stream. Returns io.EOF at a clean end
// of stream; any other error is unrecoverable.
//
// Frame layout, all little-endian:
//
//	u32 payload length
//	u64 timestamp (relative ms)
//	u32 event id
//	u16 name length, name bytes
//	u16 provider length, provider bytes
//	u32 message length, message bytes
func (d *Decoder) Next() (domain.Event, error) {
	var frameLen uint32
	if err := binary.Read(d.r, binary.LittleEndian, &frameLen); err != nil {
		if err == io.EOF {
			return domain.Event{}, io.EOF
		}
		return domain.Event{}, fmt.Errorf("reading frame header: %w", err)
	}
	if frameLen > maxFrameSize {
		return domain.Event{}, fmt.Errorf("frame length %d exceeds limit", frameLen)
	}

	payload := make([]byte, frameLen)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		// a header without its payload is a torn stream, not a clean end
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return domain.Event{}, fmt.Errorf("reading frame payload: %w", err)
	}

	ev, err := d.parse(payload)
	if err != nil {
		return domain.Event{}, err
	}

	if ev.TimestampMS < d.lastTS {
		return domain.Event{}, fmt.Errorf("timestamp went backwards: %d after %d", ev.TimestampMS, d.lastTS)
	}
	d.lastTS = ev.TimestampMS

	return ev, nil
}

var errTruncatedFrame = errors.New("truncated event frame")

func (d *Decoder) parse(payload []byte) (domain.Event, error) {
	cur := payload
	take := func(n int) ([]byte, error) {
		if len(cur) < n {
			return nil, errTruncatedFrame
		}
		b := cur[:n]
		cur = cur[n:]
		return b, nil
	}

	fixed, err := take(12)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{
		TimestampMS: int64(binary.LittleEndian.Uint64(fixed[0:8])),
		ID:          binary.LittleEndian.Uint32(fixed[8:12]),
	}

	readString16 := func() (string, error) {
		lb, err := take(2)
		if err != nil {
			return "", err
		}
		b, err := take(int(binary.LittleEndian.Uint16(lb)))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if ev.Name, err = readString16(); err != nil {
		return domain.Event{}, err
	}
	if ev.Provider, err = readString16(); err != nil {
		return domain.Event{}, err
	}

	lb, err := take(4)
	if err != nil {
		return domain.Event{}, err
	}
	msg, err := take(int(binary.LittleEndian.Uint32(lb)))
	if err != nil {
		return domain.Event{}, err
	}
	ev.Message = string(msg)

	// anonymous events get their name from the provider's manifest
	if ev.Name == "" {
		if m := d.manifests[ev.Provider]; m != nil {
			ev.Name = m.EventName(ev.ID)
		}
		if ev.Name == "" {
			ev.Name = fmt.Sprintf("Event%d", ev.ID)
		}
	}

	return ev, nil
}
