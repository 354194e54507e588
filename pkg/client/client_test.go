package client

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdurus/durusd/internal/wire"
)

// fakeServerConn returns one end of a net.Pipe with the other end
// wrapped in wire helpers, for driving Client against scripted replies
// without a real coordinator.
func fakeServerConn(t *testing.T) (client net.Conn, serverR *wire.Reader, serverW *wire.Writer) {
	t.Helper()
	c, s := net.Pipe()
	t.Cleanup(func() { c.Close(); s.Close() })
	return c, wire.NewReader(s), wire.NewWriter(s)
}

func TestConnectRejectsProtocolMismatch(t *testing.T) {
	clientConn, sr, sw := fakeServerConn(t)

	go func() {
		cmd, err := sr.ReadByte()
		if err != nil || cmd != wire.CmdVersion {
			return
		}
		sw.WriteUint32(999)
		sw.Flush()
	}()

	_, err := connectOverConn(clientConn)
	assert.ErrorIs(t, err, ErrProtocolMismatch)
}

func TestNewOIDPoolRefillsAndPopsLIFO(t *testing.T) {
	clientConn, sr, sw := fakeServerConn(t)

	go func() {
		cmd, _ := sr.ReadByte()
		if cmd != wire.CmdVersion {
			return
		}
		sw.WriteUint32(wire.Protocol)
		sw.Flush()

		for {
			cmd, err := sr.ReadByte()
			if err != nil {
				return
			}
			if cmd != wire.CmdNewOIDs {
				return
			}
			db, err := sr.ReadCountedString()
			if err != nil || string(db) != "a" {
				return
			}
			count, err := sr.ReadByte()
			if err != nil {
				return
			}
			for i := 0; i < int(count); i++ {
				sw.WriteOID(wire.OIDFromUint64(uint64(i + 1)))
			}
			sw.Flush()
		}
	}()

	c, err := connectOverConn(clientConn)
	require.NoError(t, err)

	first, err := c.NewOID("a")
	require.NoError(t, err)
	assert.Equal(t, wire.OIDFromUint64(DefaultPoolBatch), first, "LIFO pop returns the last refilled oid first")

	second, err := c.NewOID("a")
	require.NoError(t, err)
	assert.Equal(t, wire.OIDFromUint64(DefaultPoolBatch-1), second)
}

// connectOverConn performs the Connect handshake over an
// already-established connection, for tests that supply a fake peer.
func connectOverConn(conn net.Conn) (*Client, error) {
	c := &Client{
		conn:   conn,
		r:      wire.NewReader(conn),
		w:      wire.NewWriter(conn),
		pools:  make(map[string][]wire.OID),
		issued: make(map[string][]wire.OID),
	}
	if err := c.handshake(); err != nil {
		return nil, err
	}
	return c, nil
}

var _ io.Closer = (*Client)(nil)
