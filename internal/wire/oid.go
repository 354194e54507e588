// Package wire implements the framed binary protocol spoken between
// durusd and its clients: fixed-width big-endian integers, counted byte
// strings, OID vectors, and status+record frames.
package wire

import "encoding/binary"

// OIDSize is the width of an object identifier in bytes.
const OIDSize = 8

// OID is an opaque 8-byte object identifier, unique within a database.
// It carries no ordering semantics beyond equality.
type OID [OIDSize]byte

// Uint64 returns the OID's big-endian integer interpretation, the
// inverse of OIDFromUint64.
func (o OID) Uint64() uint64 {
	return binary.BigEndian.Uint64(o[:])
}

// OIDFromUint64 encodes n as a big-endian OID.
func OIDFromUint64(n uint64) OID {
	var o OID
	binary.BigEndian.PutUint64(o[:], n)
	return o
}
