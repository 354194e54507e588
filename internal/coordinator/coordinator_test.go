package coordinator

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdurus/durusd/internal/session"
	"github.com/kdurus/durusd/internal/wire"
)

// newTestClient builds a session.Client over one end of a net.Pipe,
// leaving the other end for a test goroutine to drive or drain.
func newTestClient(t *testing.T) (*session.Client, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return session.New(a), b
}

func newTestServer(t *testing.T, db string) *Server {
	t.Helper()
	s, err := NewServer(t.TempDir())
	require.NoError(t, err)
	_, err = s.Registry.Open(db)
	require.NoError(t, err)
	return s
}

func TestAllocateLockedSkipsInvalidatedCandidates(t *testing.T) {
	s := newTestServer(t, "a")

	requester, requesterPeer := newTestClient(t)
	s.clients[requester] = struct{}{}
	requester.EnsureDB("a")

	blocker, blockerPeer := newTestClient(t)
	s.clients[blocker] = struct{}{}
	blocker.EnsureDB("a")
	// The allocator's first two candidates (sequence 1 and 2) are
	// already known-invalid to another connected client, so they must
	// be skipped in favor of sequence 3.
	blocker.MarkInvalid("a", []wire.OID{wire.OIDFromUint64(1), wire.OIDFromUint64(2)})

	done := make(chan struct{})
	var got wire.OID
	go func() {
		defer close(done)
		buf := make([]byte, wire.OIDSize)
		n, _ := requesterPeer.Read(buf)
		if n == wire.OIDSize {
			copy(got[:], buf)
		}
	}()

	s.mu.Lock()
	err := s.allocateLocked(requester, "a", 1)
	require.NoError(t, requester.W.Flush())
	s.mu.Unlock()
	require.NoError(t, err)
	<-done

	assert.Equal(t, wire.OIDFromUint64(3), got)
	assert.Contains(t, requester.Unused["a"], got)

	_ = blockerPeer
}

func TestAllocateLockedFailsAgainstUnopenedDatabase(t *testing.T) {
	s := newTestServer(t, "a")
	requester, _ := newTestClient(t)
	s.clients[requester] = struct{}{}

	s.mu.Lock()
	err := s.allocateLocked(requester, "no-such-db", 1)
	s.mu.Unlock()
	assert.Error(t, err)
}

func TestCommitRejectsOIDIssuedToAnotherSession(t *testing.T) {
	s := newTestServer(t, "a")

	writer, writerPeer := newTestClient(t)
	s.clients[writer] = struct{}{}
	writer.EnsureDB("a")

	other, otherPeer := newTestClient(t)
	s.clients[other] = struct{}{}
	other.EnsureDB("a")
	stolen := wire.OIDFromUint64(1)
	other.AddUnused("a", []wire.OID{stolen})

	// Drive writer's side of the pipe: drain the pre-commit invalid
	// vector the coordinator writes, then supply a commit payload that
	// references the OID issued (but not yet committed) to other.
	driveErr := make(chan error, 1)
	go func() {
		r := wire.NewReader(writerPeer)
		w := wire.NewWriter(writerPeer)
		if _, err := r.ReadOIDVector(); err != nil {
			driveErr <- err
			return
		}

		record := []byte("stolen-write")
		entryLen := uint32(wire.OIDSize + len(record))
		tdataLen := 4 + entryLen
		if err := w.WriteUint32(tdataLen); err != nil {
			driveErr <- err
			return
		}
		if err := w.WriteUint32(entryLen); err != nil {
			driveErr <- err
			return
		}
		if err := w.WriteOID(stolen); err != nil {
			driveErr <- err
			return
		}
		if err := w.WriteRaw(record); err != nil {
			driveErr <- err
			return
		}
		driveErr <- w.Flush()
	}()

	err := s.Commit(writer, "a")
	require.NoError(t, <-driveErr)
	assert.Error(t, err, "committing an OID unused by another session must fail the session")

	_ = otherPeer
}

func TestLoadDoesNotBlockOnAStalledPeer(t *testing.T) {
	s := newTestServer(t, "a")

	storage, ok := s.Registry.Get("a")
	require.True(t, ok)
	txn := storage.Begin()
	stored := wire.OIDFromUint64(1)
	txn.Store(stored, []byte("hello"))
	require.NoError(t, txn.End(nil))

	stalled, _ := newTestClient(t)
	s.clients[stalled] = struct{}{}
	stalled.EnsureDB("a")

	// Never write the command byte let alone the oid on the stalled
	// peer's side, so Load's read of it never returns. If s.mu were
	// held across that read, every other session would wedge behind
	// it.
	stalledDone := make(chan struct{})
	go func() {
		defer close(stalledDone)
		s.Load(stalled, "a")
	}()

	fast, fastPeer := newTestClient(t)
	s.clients[fast] = struct{}{}
	fast.EnsureDB("a")

	fastDone := make(chan error, 1)
	go func() {
		fastDone <- s.Load(fast, "a")
	}()

	require.NoError(t, fastPeer.SetWriteDeadline(time.Now().Add(time.Second)))
	_, err := fastPeer.Write(stored[:])
	require.NoError(t, err)

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Load on one session blocked behind a stalled peer on another")
	}

	select {
	case <-stalledDone:
		t.Fatal("stalled session's Load should still be blocked on its own read")
	default:
	}
}

func TestCommitEmptyPayloadIsNoOp(t *testing.T) {
	s := newTestServer(t, "a")
	c, peer := newTestClient(t)
	s.clients[c] = struct{}{}
	c.EnsureDB("a")

	driveErr := make(chan error, 1)
	go func() {
		r := wire.NewReader(peer)
		w := wire.NewWriter(peer)
		if _, err := r.ReadOIDVector(); err != nil {
			driveErr <- err
			return
		}
		if err := w.WriteUint32(0); err != nil {
			driveErr <- err
			return
		}
		driveErr <- w.Flush()
	}()

	err := s.Commit(c, "a")
	require.NoError(t, <-driveErr)
	assert.NoError(t, err)
}
