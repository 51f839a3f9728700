// Package ipc speaks the diagnostics endpoint protocol: a unix socket the
// target process listens on, advertised at a well-known per-pid path. One
// connection carries the open request and then becomes the event stream; a
// second, short-lived connection carries the stop request.
package ipc

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/dpetran/evtap/internal/domain"
	"github.com/dpetran/evtap/internal/trace"
)

var magic = [4]byte{'E', 'V', 'T', 'P'}

const (
	cmdOpenSession = uint8(1)
	cmdStopSession = uint8(2)
)

// Client implements trace.Dialer over the diagnostics socket.
type Client struct {
	dir  string
	dial func(ctx context.Context, addr string) (net.Conn, error)

	mu   sync.Mutex
	addr string // socket of the last opened session, used by Stop
}

// Option tweaks a Client.
type Option func(*Client)

// WithSocketDir overrides where diagnostic sockets are looked up.
func WithSocketDir(dir string) Option {
	return func(c *Client) { c.dir = dir }
}

// NewClient builds a Client that discovers sockets under the OS temp
// directory unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dir: os.TempDir(),
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", addr)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SocketPath returns where pid's diagnostic socket is expected.
func (c *Client) SocketPath(pid int) string {
	return filepath.Join(c.dir, fmt.Sprintf("evtap-diag-%d.sock", pid))
}

// Open connects to pid's diagnostic socket, sends the session request, and
// reads back the session id. The same connection then carries the event
// stream until the remote side ends it.
func (c *Client) Open(ctx context.Context, pid int, cfg trace.SessionConfig) (*trace.Session, error) {
	addr := c.SocketPath(pid)
	if _, err := os.Stat(addr); err != nil {
		return nil, &domain.TargetNotFoundError{PID: pid, Err: err}
	}

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, &domain.TargetNotFoundError{PID: pid, Err: err}
	}

	if _, err := conn.Write(encodeOpenRequest(cfg)); err != nil {
		conn.Close()
		return nil, &domain.SessionOpenError{PID: pid, Err: err}
	}

	var id uint64
	if err := binary.Read(conn, binary.LittleEndian, &id); err != nil {
		conn.Close()
		return nil, &domain.SessionOpenError{PID: pid, Err: fmt.Errorf("reading session id: %w", err)}
	}
	if id == 0 {
		conn.Close()
		return nil, &domain.SessionOpenError{PID: pid, Err: errors.New("endpoint returned session id 0")}
	}

	c.mu.Lock()
	c.addr = addr
	c.mu.Unlock()

	return &trace.Session{ID: id, Stream: conn}, nil
}

// Stop opens a fresh control connection and asks the endpoint to end the
// session. The event stream then ends from the remote side.
func (c *Client) Stop(ctx context.Context, id uint64) error {
	c.mu.Lock()
	addr := c.addr
	c.mu.Unlock()
	if addr == "" {
		return errors.New("no session has been opened")
	}

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connecting for stop: %w", err)
	}
	defer conn.Close()

	var req bytes.Buffer
	req.Write(magic[:])
	req.WriteByte(cmdStopSession)
	binary.Write(&req, binary.LittleEndian, id)
	if _, err := conn.Write(req.Bytes()); err != nil {
		return fmt.Errorf("sending stop request: %w", err)
	}
	return nil
}

// encodeOpenRequest serializes a session request:
//
//	magic "EVTP", u8 command
//	u32 buffer size MB
//	u16 format length, format bytes
//	u16 provider count, then per provider:
//	  u16 name length, name bytes
//	  u64 keywords, u8 level
//	  u16 arg count, then per arg u16-prefixed key and value
func encodeOpenRequest(cfg trace.SessionConfig) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(cmdOpenSession)
	binary.Write(&buf, binary.LittleEndian, uint32(cfg.BufferSizeMB))
	writeString16(&buf, cfg.Format)
	binary.Write(&buf, binary.LittleEndian, uint16(len(cfg.Providers)))
	for _, p := range cfg.Providers {
		writeString16(&buf, p.Name)
		binary.Write(&buf, binary.LittleEndian, p.Keywords)
		buf.WriteByte(p.Level)
		binary.Write(&buf, binary.LittleEndian, uint16(len(p.Args)))
		for k, v := range p.Args {
			writeString16(&buf, k)
			writeString16(&buf, v)
		}
	}
	return buf.Bytes()
}

func writeString16(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}
