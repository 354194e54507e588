package engine

import (
	"os"

	bolt "go.etcd.io/bbolt"
)

// Packer would drive an incremental garbage-collection pass. bbolt has
// no public incremental-compaction primitive, so GetPacker always
// returns nil and the coordinator falls back to a full blocking Pack,
// per the resolution spec.md §9 recommends for this exact situation.
type Packer struct{}

// Step advances one incremental pack step. Never called in this
// implementation since GetPacker never hands out a live Packer.
func (p *Packer) Step() (done bool, err error) {
	return true, nil
}

// GetPacker always returns nil; see Packer's doc comment.
func (s *Storage) GetPacker() *Packer {
	return nil
}

// Pack performs a full blocking compaction: the live bucket contents
// are copied into a fresh file which then replaces the original, the
// same shape as durus's full-pack fallback.
func (s *Storage) Pack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.db.Path()
	tmpPath := path + ".pack"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return err
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	reopened, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return err
	}
	s.db = reopened
	s.BytesSincePack = 0
	return nil
}
