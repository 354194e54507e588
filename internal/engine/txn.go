package engine

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/kdurus/durusd/internal/wire"
)

// Txn accumulates a batch of pending writes between Begin and End.
type Txn struct {
	storage *Storage
	pending map[wire.OID][]byte
	order   []wire.OID
}

// Begin starts a new pending-write batch.
func (s *Storage) Begin() *Txn {
	return &Txn{
		storage: s,
		pending: make(map[wire.OID][]byte),
	}
}

// Store buffers a write; it is not visible to Load until End succeeds.
func (t *Txn) Store(oid wire.OID, record []byte) {
	if _, seen := t.pending[oid]; !seen {
		t.order = append(t.order, oid)
	}
	t.pending[oid] = record
}

// End finalizes the batch: it drains and reports, via onInvalidations,
// the OIDs of commit-log entries past the storage's watermark (entries
// not written through this handle), then durably writes the pending
// batch as one bbolt transaction, records it in the commit log, and
// moves the watermark past that new entry, so no later Sync or End on
// this handle reports it; announcing the commit to other clients is
// left to the caller. Returns ErrConflict if the underlying commit
// could not be finalized.
func (t *Txn) End(onInvalidations func([]wire.OID)) error {
	s := t.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	backlog, err := s.drainCommitsLocked()
	if err != nil {
		return ErrConflict
	}
	if len(backlog) > 0 && onInvalidations != nil {
		onInvalidations(backlog)
	}

	if len(t.order) == 0 {
		return nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		for _, oid := range t.order {
			if err := records.Put(oid[:], t.pending[oid]); err != nil {
				return err
			}
		}
		commits := tx.Bucket(bucketCommits)
		seq, err := commits.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		if err := commits.Put(key[:], joinOIDs(t.order)); err != nil {
			return err
		}
		s.watermark = seq
		return nil
	})
	if err != nil {
		return ErrConflict
	}
	return nil
}

// Committed reports the OIDs this transaction wrote, in commit order.
// The coordinator uses this after a successful End to update client
// invalidation/unused sets.
func (t *Txn) Committed() []wire.OID {
	return t.order
}
