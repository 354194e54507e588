package client

import (
	"fmt"

	"github.com/kdurus/durusd/internal/wire"
)

// InvalidationFunc is invoked with the server's pre-commit invalidation
// list before any payload is sent. Returning an error aborts the
// commit (tdata_len=0 is sent) and is reported wrapped in ErrAborted.
type InvalidationFunc func(invalid []wire.OID) error

// Commit sends records (oid -> record bytes) as one transaction
// against db.
func (c *Client) Commit(db string, records map[wire.OID][]byte, onInvalidations InvalidationFunc) error {
	defer delete(c.issued, db)

	if err := c.w.WriteByte(wire.CmdCommit); err != nil {
		return err
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	invalid, err := c.r.ReadOIDVector()
	if err != nil {
		return err
	}

	if onInvalidations != nil {
		if cbErr := onInvalidations(invalid); cbErr != nil {
			c.reclaimIssued(db)
			if err := c.abort(); err != nil {
				return err
			}
			return fmt.Errorf("%w: %v", ErrAborted, cbErr)
		}
	}

	if len(records) == 0 {
		return c.abort()
	}

	var tdataLen uint32
	for _, record := range records {
		tdataLen += 4 + wire.OIDSize + uint32(len(record))
	}
	if err := c.w.WriteUint32(tdataLen); err != nil {
		return err
	}
	for oid, record := range records {
		rlen := wire.OIDSize + uint32(len(record))
		if err := c.w.WriteUint32(rlen); err != nil {
			return err
		}
		if err := c.w.WriteOID(oid); err != nil {
			return err
		}
		if err := c.w.WriteRaw(record); err != nil {
			return err
		}
	}
	if err := c.w.Flush(); err != nil {
		return err
	}

	status, err := c.r.ReadByte()
	if err != nil {
		return err
	}
	if wire.Status(status) == wire.StatusInvalid {
		return ErrWriteConflict
	}
	return nil
}

// abort sends tdata_len=0, the wire signal for "client chose not to
// commit", and expects no further reply.
func (c *Client) abort() error {
	if err := c.w.WriteUint32(0); err != nil {
		return err
	}
	return c.w.Flush()
}
