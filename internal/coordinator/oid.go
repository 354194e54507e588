package coordinator

import (
	"fmt"

	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// maxAllocatorAttemptsPerOID bounds the retry loop defensively, per the
// resolution of spec.md §9's allocator open question.
const maxAllocatorAttemptsPerOID = 64

// NewOID implements the N handler: allocate exactly one OID.
func (s *Server) NewOID(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocateLocked(c, db, 1)
}

// NewOIDs implements the M handler: a one-byte count, then that many
// OIDs allocated and reported as a raw, unframed concatenation. The
// count is read off the peer before the lock is taken, so a slow peer
// only stalls its own session.
func (s *Server) NewOIDs(c *session.Client, db string) error {
	count, err := c.R.ReadByte()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocateLocked(c, db, int(count))
}

// allocateLocked requests candidate OIDs from the engine one at a
// time, discarding any that collide with some connected client's
// invalid set for db, until count are accepted. Callers hold s.mu.
func (s *Server) allocateLocked(c *session.Client, db string, count int) error {
	storage, ok := s.Registry.Get(db)
	if !ok {
		return fmt.Errorf("coordinator: allocate against unopened database %q", db)
	}

	maxAttempts := maxAllocatorAttemptsPerOID * count
	if maxAttempts == 0 {
		maxAttempts = maxAllocatorAttemptsPerOID
	}

	oids := make([]wire.OID, 0, count)
	attempts := 0
	for len(oids) < count {
		if attempts >= maxAttempts {
			return fmt.Errorf("coordinator: allocator exceeded %d attempts for %q", maxAttempts, db)
		}
		attempts++

		oid, err := storage.NewOID()
		if err != nil {
			return err
		}
		collided := false
		for cl := range s.clients {
			if cl.IsInvalid(db, oid) {
				collided = true
				break
			}
		}
		if collided {
			continue
		}
		oids = append(oids, oid)
	}

	c.AddUnused(db, oids)

	buf := make([]byte, 0, len(oids)*wire.OIDSize)
	for _, o := range oids {
		buf = append(buf, o[:]...)
	}
	return c.W.WriteRaw(buf)
}
