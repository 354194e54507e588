package engine

import "errors"

// ErrNotFound is returned by Load when the requested OID has no record.
var ErrNotFound = errors.New("engine: no such oid")

// ErrReadConflict is returned by Load when the engine itself detects
// that the requested OID belongs to a snapshot the caller hasn't seen
// yet. The bbolt-backed engine never produces this on its own — bbolt's
// MVCC reads are always internally consistent — but the coordinator
// still checks a client's invalid set before calling Load, and the
// sentinel is kept so a future engine swap can report it without an
// API change.
var ErrReadConflict = errors.New("engine: read conflict")

// ErrConflict is returned by (*Txn).End when the underlying commit
// could not be finalized.
var ErrConflict = errors.New("engine: commit conflict")
