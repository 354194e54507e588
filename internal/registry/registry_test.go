package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestNamesOnDiskFindsDurusFiles(t *testing.T) {
	r := newTestRegistry(t)
	dir := r.root

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.durus"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.durus"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), nil, 0600))

	names, err := r.NamesOnDisk()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestOpenIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	s1, err := r.Open("a")
	require.NoError(t, err)
	s2, err := r.Open("a")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, []string{"a"}, r.NamesOpen())
}

func TestCloseRemovesFromOpenSet(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Open("a")
	require.NoError(t, err)
	require.NoError(t, r.Close("a"))

	assert.Empty(t, r.NamesOpen())
}

func TestDestroyIsSilentNoOpWhileOpen(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Open("a")
	require.NoError(t, err)
	require.NoError(t, r.Destroy("a"))

	path := filepath.Join(r.root, "a.durus")
	_, err = os.Stat(path)
	assert.NoError(t, err, "file should still exist while storage is open")
}

func TestDestroyUnlinksWhenClosed(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Open("a")
	require.NoError(t, err)
	require.NoError(t, r.Close("a"))
	require.NoError(t, r.Destroy("a"))

	path := filepath.Join(r.root, "a.durus")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRejectsPathEscape(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Open("../escape")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestOpenCloseHooksFireOnlyOnTransition(t *testing.T) {
	r := newTestRegistry(t)
	var opens, closes int
	r.OnOpen = func(string) { opens++ }
	r.OnClose = func(string) { closes++ }

	_, err := r.Open("a")
	require.NoError(t, err)
	_, err = r.Open("a")
	require.NoError(t, err)
	assert.Equal(t, 1, opens)

	require.NoError(t, r.Close("a"))
	require.NoError(t, r.Close("a"))
	assert.Equal(t, 1, closes)
}
