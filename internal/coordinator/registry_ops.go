package coordinator

import "github.com/kdurus/durusd/internal/session"

// Open delegates to the registry; idempotent, no wire reply.
func (s *Server) Open(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.Registry.Open(db)
	return err
}

// Close delegates to the registry; no-op if not open, no wire reply.
func (s *Server) Close(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Registry.Close(db)
}

// Destroy delegates to the registry: silently refused while open, a
// filesystem error otherwise propagates. No wire reply either way.
func (s *Server) Destroy(c *session.Client, db string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Registry.Destroy(db)
}
