package coordinator

import (
	"encoding/binary"
	"fmt"

	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/metrics"
	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// Commit implements the five-phase C handler. Only the bookkeeping and
// engine-finalization work spec.md §5 requires to be atomic runs under
// s.mu; the phase-1 flush to the peer and the phase-2 read of the
// transaction payload are paced by that peer's own socket and must not
// hold the lock, or one stalled client freezes every other session.
func (s *Server) Commit(c *session.Client, db string) error {
	s.mu.Lock()
	storage, ok := s.Registry.Get(db)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("coordinator: commit against unopened database %q", db)
	}
	// Phase 1: pre-commit invalidation flush.
	if err := s.flushSyncLocked(storage, db); err != nil {
		s.mu.Unlock()
		return err
	}
	preCommitInvalid := c.ClearInvalid(db)
	s.mu.Unlock()

	if err := c.W.WriteOIDVector(preCommitInvalid); err != nil {
		return err
	}
	if err := c.W.Flush(); err != nil {
		return err
	}

	// Phase 2: transaction payload.
	tdataLen, err := c.R.ReadUint32()
	if err != nil {
		return err
	}
	if tdataLen == 0 {
		return nil
	}
	payload, err := c.R.ReadFull(tdataLen)
	if err != nil {
		return err
	}

	// Phase 3: parse and validate. rlen covers the oid plus the record.
	// Parsing only touches the locally-buffered Txn, so it needs no lock.
	txn := storage.Begin()
	var i uint32
	var committed []wire.OID
	for i < tdataLen {
		if i+4 > tdataLen {
			return fmt.Errorf("coordinator: truncated commit entry in %q", db)
		}
		rlen := binary.BigEndian.Uint32(payload[i : i+4])
		i += 4
		if rlen < wire.OIDSize || i+rlen > tdataLen {
			return fmt.Errorf("coordinator: malformed commit entry in %q", db)
		}

		var oid wire.OID
		copy(oid[:], payload[i:i+wire.OIDSize])
		record := append([]byte(nil), payload[i+wire.OIDSize:i+rlen]...)

		txn.Store(oid, record)
		committed = append(committed, oid)
		i += rlen
	}
	if i != tdataLen {
		return fmt.Errorf("coordinator: commit payload length mismatch in %q", db)
	}

	// Phases 4-5 touch cross-client bookkeeping and must appear atomic
	// with engine finalization, so they run under s.mu. Everything from
	// here on is bounded engine I/O and local map updates, never a wait
	// on this peer's (or any other peer's) own pacing.
	s.mu.Lock()
	defer s.mu.Unlock()

	// Phase 4: cross-client OID integrity check.
	for other := range s.clients {
		if other == c {
			continue
		}
		for _, oid := range committed {
			if _, bad := other.Unused[db][oid]; bad {
				metrics.ClientErrorsTotal.Inc()
				dlog.WithComponent("coordinator").Warn().
					Str("database", db).
					Str("client", c.RemoteAddr).
					Msg("commit referenced an oid issued to another session, dropping session")
				return fmt.Errorf("coordinator: client error: oid issued to another session")
			}
		}
	}

	// Phase 5: engine finalization.
	onInvalidations := func(oids []wire.OID) {
		s.fanOutInvalid(db, nil, oids)
	}
	if err := txn.End(onInvalidations); err != nil {
		metrics.CommitConflictsTotal.Inc()
		return c.W.WriteByte(byte(wire.StatusInvalid))
	}

	if err := c.W.WriteByte(byte(wire.StatusOkay)); err != nil {
		return err
	}
	c.SubtractUnused(db, committed)
	s.fanOutInvalid(db, c, committed)
	storage.BytesSincePack += int64(tdataLen) + 8
	metrics.CommitsTotal.Inc()
	reportLoad(storage)
	return nil
}
