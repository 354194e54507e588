package server_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdurus/durusd/internal/coordinator"
	"github.com/kdurus/durusd/internal/server"
	"github.com/kdurus/durusd/internal/wire"
	"github.com/kdurus/durusd/pkg/client"
)

// startServer boots a coordinator and dispatcher against a fresh temp
// root and returns its bound address plus a teardown func.
func startServer(t *testing.T) (addr string, root string) {
	t.Helper()
	root = t.TempDir()

	coord, err := coordinator.NewServer(root)
	require.NoError(t, err)

	d, err := server.Listen("127.0.0.1:0", coord)
	require.NoError(t, err)

	go d.Serve()
	t.Cleanup(func() { d.Close() })

	return d.Addr().String(), root
}

func TestVersionHandshake(t *testing.T) {
	addr, _ := startServer(t)
	c, err := client.Connect(addr)
	require.NoError(t, err)
	defer c.Close()
}

func TestOpenEnumerateClose(t *testing.T) {
	addr, root := startServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.durus"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.durus"), nil, 0600))

	c, err := client.Connect(addr)
	require.NoError(t, err)
	defer c.Close()

	all, err := c.EnumerateAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, all)

	open, err := c.EnumerateOpen()
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, c.Open("a"))
	open, err = c.EnumerateOpen()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, open)

	require.NoError(t, c.CloseDB("a"))
	open, err = c.EnumerateOpen()
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRoundTripStoreLoad(t *testing.T) {
	addr, _ := startServer(t)
	c, err := client.Connect(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Open("a"))

	oid := wire.OIDFromUint64(1)
	err = c.Commit("a", map[wire.OID][]byte{oid: []byte("hello")}, nil)
	require.NoError(t, err)

	record, err := c.Load("a", oid)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), record)
}

func TestCrossClientInvalidation(t *testing.T) {
	addr, _ := startServer(t)

	c1, err := client.Connect(addr)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := client.Connect(addr)
	require.NoError(t, err)
	defer c2.Close()

	require.NoError(t, c1.Open("a"))
	require.NoError(t, c2.Open("a"))

	oid := wire.OIDFromUint64(2)
	require.NoError(t, c1.Commit("a", map[wire.OID][]byte{oid: []byte("x")}, nil))

	// c2 hasn't synced yet: it must see a read conflict.
	_, err = c2.Load("a", oid)
	assert.ErrorIs(t, err, client.ErrReadConflict)

	invalid, err := c2.Sync("a")
	require.NoError(t, err)
	assert.Contains(t, invalid, oid)
}

func TestUnusedOIDProtection(t *testing.T) {
	addr, _ := startServer(t)

	c1, err := client.Connect(addr)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := client.Connect(addr)
	require.NoError(t, err)
	defer c2.Close()

	require.NoError(t, c1.Open("a"))
	require.NoError(t, c2.Open("a"))

	issued, err := c1.NewOID("a")
	require.NoError(t, err)

	err = c2.Commit("a", map[wire.OID][]byte{issued: []byte("evil")}, nil)
	assert.Error(t, err, "committing another session's unused oid must fail")

	// c1's own state is unaffected: it can still allocate.
	_, err = c1.NewOID("a")
	assert.NoError(t, err)
}

func TestDestroyWhileOpen(t *testing.T) {
	addr, _ := startServer(t)

	holder, err := client.Connect(addr)
	require.NoError(t, err)
	defer holder.Close()
	other, err := client.Connect(addr)
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, holder.Open("a"))
	// Round trip on holder's own connection before acting from another
	// connection, so the Open above is guaranteed to have landed.
	opened, err := holder.EnumerateOpen()
	require.NoError(t, err)
	require.Contains(t, opened, "a")

	require.NoError(t, other.Destroy("a"))

	names, err := holder.EnumerateAll()
	require.NoError(t, err)
	assert.Contains(t, names, "a")

	require.NoError(t, holder.CloseDB("a"))
	// A session's commands execute strictly in order on one connection,
	// so this round trip guarantees the Close above has already been
	// handled before Destroy runs.
	open, err := holder.EnumerateOpen()
	require.NoError(t, err)
	require.NotContains(t, open, "a")

	require.NoError(t, other.Destroy("a"))

	names, err = holder.EnumerateAll()
	require.NoError(t, err)
	assert.NotContains(t, names, "a")
}
