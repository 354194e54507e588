package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPackerAlwaysNil(t *testing.T) {
	s := openTemp(t)
	assert.Nil(t, s.GetPacker())
}

func TestPackPreservesRecords(t *testing.T) {
	s := openTemp(t)

	oid, err := s.NewOID()
	require.NoError(t, err)
	txn := s.Begin()
	txn.Store(oid, []byte("durable"))
	require.NoError(t, txn.End(nil))

	require.NoError(t, s.Pack())

	record, err := s.Load(oid)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), record)
	assert.Zero(t, s.BytesSincePack)
}
