package client

import (
	"errors"
	"fmt"

	"github.com/kdurus/durusd/internal/wire"
)

// Load fetches oid's record from db. Returns ErrKeyError if absent,
// ErrReadConflict if the client must sync first.
func (c *Client) Load(db string, oid wire.OID) ([]byte, error) {
	if err := c.w.WriteByte(wire.CmdLoad); err != nil {
		return nil, err
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return nil, err
	}
	if err := c.w.WriteOID(oid); err != nil {
		return nil, err
	}
	if err := c.w.Flush(); err != nil {
		return nil, err
	}
	return c.readStatusRecord()
}

// BulkRead fetches records for oids, in order. The returned error
// slice carries ErrKeyError/ErrReadConflict per entry as appropriate;
// a nil entry means success. A genuine I/O failure aborts the
// remainder of the batch (the stream can no longer be trusted) and is
// reported in the corresponding and all subsequent slots.
func (c *Client) BulkRead(db string, oids []wire.OID) ([][]byte, []error) {
	records := make([][]byte, len(oids))
	errs := make([]error, len(oids))

	if err := c.w.WriteByte(wire.CmdBulkRead); err != nil {
		return records, fillErr(errs, err)
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return records, fillErr(errs, err)
	}
	if err := c.w.WriteOIDVector(oids); err != nil {
		return records, fillErr(errs, err)
	}
	if err := c.w.Flush(); err != nil {
		return records, fillErr(errs, err)
	}

	for i := range oids {
		rec, err := c.readStatusRecord()
		records[i] = rec
		errs[i] = err
		if err != nil && !errors.Is(err, ErrKeyError) && !errors.Is(err, ErrReadConflict) {
			fillErr(errs[i+1:], err)
			break
		}
	}
	return records, errs
}

func fillErr(errs []error, err error) []error {
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func (c *Client) readStatusRecord() ([]byte, error) {
	status, err := c.r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch wire.Status(status) {
	case wire.StatusOkay:
		return c.r.ReadCountedString()
	case wire.StatusKeyError:
		return nil, ErrKeyError
	case wire.StatusInvalid:
		return nil, ErrReadConflict
	default:
		return nil, fmt.Errorf("client: unexpected status byte %q", status)
	}
}
