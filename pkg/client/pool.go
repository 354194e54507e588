package client

import "github.com/kdurus/durusd/internal/wire"

// DefaultPoolBatch is the number of OIDs requested per refill.
const DefaultPoolBatch = 32

// NewOID returns one fresh OID for db from the local pool, refilling
// via a batched M request when empty. Pool contents are unique and
// match the server's unused[db] set for this client until the next
// commit subtracts the ones actually written. The drawn OID is also
// remembered in issued[db] so an aborted Commit can return it to the
// pool.
func (c *Client) NewOID(db string) (wire.OID, error) {
	pool := c.pools[db]
	if len(pool) == 0 {
		refilled, err := c.refill(db, DefaultPoolBatch)
		if err != nil {
			return wire.OID{}, err
		}
		pool = refilled
	}
	oid := pool[len(pool)-1]
	c.pools[db] = pool[:len(pool)-1]
	c.issued[db] = append(c.issued[db], oid)
	return oid, nil
}

// reclaimIssued returns every OID drawn via NewOID for db since the
// last Commit attempt back onto the pool, reversed so the next draw
// reuses them in the same order they were originally issued — the
// same LIFO restoration original_source/xdserver/client.py's
// Connection.commit performs on a conflict from the invalidation
// callback.
func (c *Client) reclaimIssued(db string) {
	issued := c.issued[db]
	if len(issued) == 0 {
		return
	}
	reversed := make([]wire.OID, len(issued))
	for i, oid := range issued {
		reversed[len(issued)-1-i] = oid
	}
	c.pools[db] = append(c.pools[db], reversed...)
	delete(c.issued, db)
}

func (c *Client) refill(db string, count int) ([]wire.OID, error) {
	if err := c.w.WriteByte(wire.CmdNewOIDs); err != nil {
		return nil, err
	}
	if err := c.w.WriteCountedString([]byte(db)); err != nil {
		return nil, err
	}
	if err := c.w.WriteByte(byte(count)); err != nil {
		return nil, err
	}
	if err := c.w.Flush(); err != nil {
		return nil, err
	}

	oids := make([]wire.OID, count)
	for i := range oids {
		oid, err := c.r.ReadOID()
		if err != nil {
			return nil, err
		}
		oids[i] = oid
	}
	return oids, nil
}
