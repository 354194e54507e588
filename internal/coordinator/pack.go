package coordinator

import (
	"fmt"

	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/metrics"
	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// Pack implements the P handler: install an incremental packer if the
// engine can produce one, otherwise fall through to a full blocking
// pack. Replies OKAY; if the full pack fails, the error is returned
// without a reply and ends the session.
func (s *Server) Pack(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storage, ok := s.Registry.Get(db)
	if !ok {
		return fmt.Errorf("coordinator: pack against unopened database %q", db)
	}

	if storage.Packer == nil {
		if p := storage.GetPacker(); p != nil {
			storage.Packer = p
		} else {
			dlog.WithComponent("coordinator").Info().
				Str("database", db).
				Msg("no incremental packer available, performing full pack")
			if err := storage.Pack(); err != nil {
				return err
			}
			metrics.PacksTotal.Inc()
		}
	}
	return c.W.WriteByte(byte(wire.StatusOkay))
}
