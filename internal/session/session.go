package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/kdurus/durusd/internal/metrics"
	"github.com/kdurus/durusd/internal/wire"
)

// ErrUnknownCommand terminates a session on an unrecognized command byte.
var ErrUnknownCommand = errors.New("session: unknown command byte")

// Coordinator is the set of handlers a transaction coordinator exposes
// to a session's dispatch loop. It is an interface, rather than a
// concrete type import, so this package never needs to know about the
// coordinator's own state or the storage registry it wraps.
type Coordinator interface {
	Version(c *Client) error
	EnumerateAll(c *Client) error
	EnumerateOpen(c *Client) error
	Quit(c *Client) error

	Open(c *Client, db string) error
	Close(c *Client, db string) error
	Destroy(c *Client, db string) error
	Load(c *Client, db string) error
	BulkRead(c *Client, db string) error
	NewOID(c *Client, db string) error
	NewOIDs(c *Client, db string) error
	Commit(c *Client, db string) error
	Sync(c *Client, db string) error
	Pack(c *Client, db string) error
}

var serverCommands = map[byte]func(Coordinator, *Client) error{
	wire.CmdEnumerateAll:  Coordinator.EnumerateAll,
	wire.CmdEnumerateOpen: Coordinator.EnumerateOpen,
	wire.CmdVersion:       Coordinator.Version,
	wire.CmdQuit:          Coordinator.Quit,
}

var dbCommands = map[byte]func(Coordinator, *Client, string) error{
	wire.CmdOpen:     Coordinator.Open,
	wire.CmdClose:    Coordinator.Close,
	wire.CmdDestroy:  Coordinator.Destroy,
	wire.CmdLoad:     Coordinator.Load,
	wire.CmdBulkRead: Coordinator.BulkRead,
	wire.CmdNewOIDs:  Coordinator.NewOIDs,
	wire.CmdNewOID:   Coordinator.NewOID,
	wire.CmdCommit:   Coordinator.Commit,
	wire.CmdSync:     Coordinator.Sync,
	wire.CmdPack:     Coordinator.Pack,
}

// Serve runs c's command loop: read one command byte, dispatch by
// table, flush, repeat. It returns nil on a clean disconnect ('.'),
// quit ('Q'), or the peer closing the connection between commands
// (EOF), and a non-nil error for any other read/protocol/handler
// failure, including the peer resetting the connection.
func Serve(c *Client, coord Coordinator) error {
	for {
		cmd, err := c.R.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("session: read command: %w", err)
		}

		if cmd == wire.CmdDisconnect {
			return nil
		}

		metrics.CommandsTotal.WithLabelValues(string(cmd)).Inc()

		var handlerErr error
		if fn, ok := serverCommands[cmd]; ok {
			handlerErr = fn(coord, c)
		} else if fn, ok := dbCommands[cmd]; ok {
			name, err := c.R.ReadCountedString()
			if err != nil {
				return fmt.Errorf("session: read database name: %w", err)
			}
			handlerErr = fn(coord, c, string(name))
		} else {
			return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
		}

		if handlerErr != nil {
			return fmt.Errorf("session: command %q: %w", string(cmd), handlerErr)
		}
		if err := c.W.Flush(); err != nil {
			return fmt.Errorf("session: flush: %w", err)
		}

		if cmd == wire.CmdQuit {
			return nil
		}
	}
}
