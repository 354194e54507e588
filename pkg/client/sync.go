package client

import (
	"fmt"

	"github.com/kdurus/durusd/internal/wire"
)

// Sync asks the server for OIDs invalidated by concurrent commits
// since this client's last Sync/Commit on db.
func (c *Client) Sync(db string) ([]wire.OID, error) {
	if err := c.w.WriteByte(wire.CmdSync); err != nil {
		return nil, err
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return nil, err
	}
	if err := c.w.Flush(); err != nil {
		return nil, err
	}
	return c.r.ReadOIDVector()
}

// Pack requests a garbage-collection pass on db.
func (c *Client) Pack(db string) error {
	if err := c.sendDBCommand(wire.CmdPack, db); err != nil {
		return err
	}
	status, err := c.r.ReadByte()
	if err != nil {
		return err
	}
	if wire.Status(status) != wire.StatusOkay {
		return fmt.Errorf("client: unexpected pack status %q", status)
	}
	return nil
}
