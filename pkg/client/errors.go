package client

import "errors"

// ErrProtocolMismatch is returned by Connect when the server's reply
// to V does not match the protocol constant this client speaks.
var ErrProtocolMismatch = errors.New("client: protocol version mismatch")

// ErrKeyError mirrors the server's KEYERROR status: the OID has no
// record, or was deleted.
var ErrKeyError = errors.New("client: no such oid")

// ErrReadConflict mirrors the server's INVALID status on a load: the
// caller must Sync before retrying.
var ErrReadConflict = errors.New("client: read conflict, sync required")

// ErrWriteConflict mirrors the server's INVALID status on a commit:
// the caller must abort and retry using the invalidation list it was
// just handed.
var ErrWriteConflict = errors.New("client: write conflict, commit rejected")

// ErrAborted is returned by Commit when the caller's invalidation
// callback chose not to proceed.
var ErrAborted = errors.New("client: commit aborted by invalidation callback")
