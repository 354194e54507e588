package coordinator

import (
	"fmt"

	"github.com/kdurus/durusd/internal/engine"
	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// Load implements the L handler: a conflict check against the
// caller's own invalid set, then an engine load. The OID is read off
// the peer before the lock is taken, so a slow peer only stalls its
// own session.
func (s *Server) Load(c *session.Client, db string) error {
	oid, err := c.R.ReadOID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storage, ok := s.Registry.Get(db)
	if !ok {
		return fmt.Errorf("coordinator: load against unopened database %q", db)
	}
	return s.sendLoadResponse(c, storage, db, oid)
}

// BulkRead implements the B handler: a status+record frame per OID,
// in order, with no framing around the batch as a whole. The OID
// vector is read off the peer before the lock is taken.
func (s *Server) BulkRead(c *session.Client, db string) error {
	oids, err := c.R.ReadOIDVector()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storage, ok := s.Registry.Get(db)
	if !ok {
		return fmt.Errorf("coordinator: bulk read against unopened database %q", db)
	}
	for _, oid := range oids {
		if err := s.sendLoadResponse(c, storage, db, oid); err != nil {
			return err
		}
	}
	return nil
}

// sendLoadResponse writes the status+record reply for a single OID per
// the Load contract: INVALID if the caller has it marked invalid,
// otherwise whatever the engine reports. Callers hold s.mu.
func (s *Server) sendLoadResponse(c *session.Client, storage *engine.Storage, db string, oid wire.OID) error {
	if c.IsInvalid(db, oid) {
		return c.W.WriteByte(byte(wire.StatusInvalid))
	}

	record, err := storage.Load(oid)
	if err == nil {
		return c.W.WriteStatusRecord(wire.StatusOkay, record)
	}
	if status, ok := classifyLoadErr(err); ok {
		return c.W.WriteByte(byte(status))
	}
	return err
}
