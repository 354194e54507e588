// Package session owns per-connection state and the command loop: the
// connected-client record, its per-database invalidation and
// unused-OID sets, and the server/database dispatch tables described
// in spec.md §4.2.
package session

import (
	"net"

	"github.com/kdurus/durusd/internal/wire"
)

// OIDSet is a per-(client, database) membership set.
type OIDSet map[wire.OID]struct{}

// Client is a connected session's server-side state: its owned stream
// and, for each open database, an invalid set and an unused set.
type Client struct {
	Conn       net.Conn
	R          *wire.Reader
	W          *wire.Writer
	RemoteAddr string

	Invalid map[string]OIDSet
	Unused  map[string]OIDSet
}

// New wraps an accepted connection in a Client with empty bookkeeping.
func New(conn net.Conn) *Client {
	return &Client{
		Conn:       conn,
		R:          wire.NewReader(conn),
		W:          wire.NewWriter(conn),
		RemoteAddr: conn.RemoteAddr().String(),
		Invalid:    make(map[string]OIDSet),
		Unused:     make(map[string]OIDSet),
	}
}

// EnsureDB installs empty invalid/unused sets for name if absent. Safe
// to call repeatedly; idempotent.
func (c *Client) EnsureDB(name string) {
	if _, ok := c.Invalid[name]; !ok {
		c.Invalid[name] = make(OIDSet)
	}
	if _, ok := c.Unused[name]; !ok {
		c.Unused[name] = make(OIDSet)
	}
}

// DropDB removes name's invalid/unused sets entirely, per invariant 3:
// when a database is closed, every client's entries for it evaporate.
func (c *Client) DropDB(name string) {
	delete(c.Invalid, name)
	delete(c.Unused, name)
}

// IsInvalid reports whether oid is in this client's invalid set for db.
func (c *Client) IsInvalid(db string, oid wire.OID) bool {
	_, bad := c.Invalid[db][oid]
	return bad
}

// MarkInvalid adds oids to this client's invalid set for db.
func (c *Client) MarkInvalid(db string, oids []wire.OID) {
	set := c.Invalid[db]
	for _, o := range oids {
		set[o] = struct{}{}
	}
}

// ClearInvalid returns the current invalid set for db as a slice and
// empties it, used by Sync and the Commit pre-flush.
func (c *Client) ClearInvalid(db string) []wire.OID {
	set := c.Invalid[db]
	oids := make([]wire.OID, 0, len(set))
	for o := range set {
		oids = append(oids, o)
	}
	for o := range set {
		delete(set, o)
	}
	return oids
}

// AddUnused records oids as allocated-but-not-yet-committed for db.
func (c *Client) AddUnused(db string, oids []wire.OID) {
	set := c.Unused[db]
	for _, o := range oids {
		set[o] = struct{}{}
	}
}

// SubtractUnused removes oids from this client's unused set for db,
// called after a successful commit of those OIDs.
func (c *Client) SubtractUnused(db string, oids []wire.OID) {
	set := c.Unused[db]
	for _, o := range oids {
		delete(set, o)
	}
}
