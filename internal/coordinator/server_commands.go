package coordinator

import (
	"github.com/kdurus/durusd/internal/dlog"
	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// Version writes the 4-byte protocol constant.
func (s *Server) Version(c *session.Client) error {
	return c.W.WriteUint32(wire.Protocol)
}

// EnumerateAll writes every database name present on disk.
func (s *Server) EnumerateAll(c *session.Client) error {
	names, err := s.Registry.NamesOnDisk()
	if err != nil {
		return err
	}
	return writeNameVector(c, names)
}

// EnumerateOpen writes every currently open database name.
func (s *Server) EnumerateOpen(c *session.Client) error {
	return writeNameVector(c, s.Registry.NamesOpen())
}

func writeNameVector(c *session.Client, names []string) error {
	if err := c.W.WriteUint32(uint32(len(names))); err != nil {
		return err
	}
	for _, n := range names {
		if err := c.W.WriteCountedString([]byte(n)); err != nil {
			return err
		}
	}
	return nil
}

// Quit closes every open storage and signals the dispatcher to stop
// accepting new connections. It does not reply on the wire.
func (s *Server) Quit(c *session.Client) error {
	s.mu.Lock()
	s.Registry.CloseAll()
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopped) })
	dlog.WithComponent("coordinator").Info().
		Str("client", c.RemoteAddr).
		Msg("quit received, closing all storages and stopping dispatcher")
	return nil
}
