// Package client implements the complementary side of durusd's wire
// protocol: connect, open/close/destroy databases, load and commit
// records, and allocate OIDs from a locally pooled batch.
package client

import (
	"fmt"
	"net"

	"github.com/kdurus/durusd/internal/wire"
)

// Client is a connection to one durusd server. It is not safe for
// concurrent use by multiple goroutines; callers needing concurrency
// should open one Client per goroutine.
type Client struct {
	conn net.Conn
	r    *wire.Reader
	w    *wire.Writer

	pools  map[string][]wire.OID
	issued map[string][]wire.OID
}

// Connect dials addr and performs the mandatory V handshake before any
// other command may be issued, matching the original client's
// always-handshake-first behavior.
func Connect(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		r:      wire.NewReader(conn),
		w:      wire.NewWriter(conn),
		pools:  make(map[string][]wire.OID),
		issued: make(map[string][]wire.OID),
	}
	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake() error {
	if err := c.w.WriteByte(wire.CmdVersion); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	got, err := c.r.ReadUint32()
	if err != nil {
		return err
	}
	if got != wire.Protocol {
		return fmt.Errorf("%w: got %d, want %d", ErrProtocolMismatch, got, wire.Protocol)
	}
	return nil
}

// EnumerateAll returns every database name known to exist on disk.
func (c *Client) EnumerateAll() ([]string, error) {
	return c.readNameVector(wire.CmdEnumerateAll)
}

// EnumerateOpen returns every currently open database name.
func (c *Client) EnumerateOpen() ([]string, error) {
	return c.readNameVector(wire.CmdEnumerateOpen)
}

func (c *Client) readNameVector(cmd byte) ([]string, error) {
	if err := c.w.WriteByte(cmd); err != nil {
		return nil, err
	}
	if err := c.w.Flush(); err != nil {
		return nil, err
	}
	n, err := c.r.ReadUint32()
	if err != nil {
		return nil, err
	}
	names := make([]string, n)
	for i := range names {
		b, err := c.r.ReadCountedString()
		if err != nil {
			return nil, err
		}
		names[i] = string(b)
	}
	return names, nil
}

// Open opens db on the server; idempotent.
func (c *Client) Open(db string) error {
	return c.sendDBCommand(wire.CmdOpen, db)
}

// CloseDB closes db on the server.
func (c *Client) CloseDB(db string) error {
	return c.sendDBCommand(wire.CmdClose, db)
}

// Destroy destroys db on the server; silently refused while open.
func (c *Client) Destroy(db string) error {
	return c.sendDBCommand(wire.CmdDestroy, db)
}

func (c *Client) sendDBCommand(cmd byte, db string) error {
	if err := c.w.WriteByte(cmd); err != nil {
		return err
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return err
	}
	return c.w.Flush()
}

// Shutdown asks the server to quit (closing every open storage) and
// then closes the local connection. It is distinct from Close, which
// only disconnects this client.
func (c *Client) Shutdown() error {
	if err := c.w.WriteByte(wire.CmdQuit); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	return c.conn.Close()
}

// Close disconnects this client without affecting server state.
func (c *Client) Close() error {
	c.w.WriteByte(wire.CmdDisconnect)
	c.w.Flush()
	return c.conn.Close()
}
