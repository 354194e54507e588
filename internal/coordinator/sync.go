package coordinator

import (
	"fmt"

	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/engine"
	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// Sync implements the S handler: drain the engine's commit backlog,
// fan it out to every client, then hand the caller its own
// (now-updated) invalid set and clear it.
func (s *Server) Sync(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storage, ok := s.Registry.Get(db)
	if !ok {
		return fmt.Errorf("coordinator: sync against unopened database %q", db)
	}
	if err := s.flushSyncLocked(storage, db); err != nil {
		return err
	}
	reportLoad(storage)
	return c.W.WriteOIDVector(c.ClearInvalid(db))
}

// reportLoad flushes a storage's load-record debug counters to the log
// if any were recorded since the last report.
func reportLoad(storage *engine.Storage) {
	counts := storage.ReportLoad()
	if counts == nil {
		return
	}
	dlog.WithComponent("coordinator").Debug().
		Str("database", storage.Name).
		Interface("load_record", counts).
		Msg("load record snapshot")
}

// flushSyncLocked drains storage's commit backlog and fans the result
// out as invalidations to every connected client, including the
// caller — the caller's copy is what Sync and Commit's pre-commit
// flush then hand back on the wire. Callers hold s.mu.
func (s *Server) flushSyncLocked(storage *engine.Storage, db string) error {
	oids, err := storage.Sync()
	if err != nil {
		return err
	}
	if len(oids) > 0 {
		s.fanOutInvalid(db, nil, oids)
	}
	return nil
}

// fanOutInvalid adds oids to invalid[db] for every connected client
// except exclude (nil excludes no one). Callers hold s.mu.
func (s *Server) fanOutInvalid(db string, exclude *session.Client, oids []wire.OID) {
	for cl := range s.clients {
		if cl == exclude {
			continue
		}
		cl.MarkInvalid(db, oids)
	}
}
