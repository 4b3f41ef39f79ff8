package session_test

import (
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/protocol/frame"
	"parley/internal/protocol/secure"
	"parley/internal/session"
	"parley/internal/store"
	"parley/internal/transfer"
)

const waitFor = 5 * time.Second

func makeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func peerOf(name string, id domain.Identity) domain.PeerIdentity {
	return domain.PeerIdentity{
		Name:        name,
		XPub:        id.XPub,
		EdPub:       id.EdPub,
		Fingerprint: domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice())),
	}
}

func trustOnly(p domain.PeerIdentity) secure.PeerLookup {
	return func(pub domain.Ed25519Public) (domain.PeerIdentity, bool) {
		if pub == p.EdPub {
			return p, true
		}
		return domain.PeerIdentity{}, false
	}
}

type pair struct {
	a, b           *session.Session
	aSink, bSink   chan domain.Message
	aNotes, bNotes chan domain.TransferState
	aStore, bStore domain.TransferStore
	bDownloads     string
	rawA, rawB     net.Conn
}

// newPair establishes two connected sessions over an in-memory pipe, with
// tweak applied to both configs before the handshake.
func newPair(t *testing.T, tweak func(a, b *session.Config)) *pair {
	t.Helper()
	idA := makeIdentity(t)
	idB := makeIdentity(t)
	peerA := peerOf("a", idA)
	peerB := peerOf("b", idB)

	p := &pair{
		aSink:      make(chan domain.Message, 16),
		bSink:      make(chan domain.Message, 16),
		aNotes:     make(chan domain.TransferState, 64),
		bNotes:     make(chan domain.TransferState, 64),
		aStore:     store.NewTransferFileStore(t.TempDir()),
		bStore:     store.NewTransferFileStore(t.TempDir()),
		bDownloads: t.TempDir(),
	}
	p.rawA, p.rawB = net.Pipe()

	cfgA := session.Config{
		Identity:  idA,
		Peer:      &peerB,
		Sink:      func(m domain.Message) { p.aSink <- m },
		Transfers: p.aStore,
		ChunkSize: 1024,
		Notify:    func(st domain.TransferState) { p.aNotes <- st },
	}
	cfgB := session.Config{
		Identity:    idB,
		Lookup:      trustOnly(peerA),
		Sink:        func(m domain.Message) { p.bSink <- m },
		Transfers:   p.bStore,
		DownloadDir: p.bDownloads,
		ChunkSize:   1024,
		Notify:      func(st domain.TransferState) { p.bNotes <- st },
	}
	if tweak != nil {
		tweak(&cfgA, &cfgB)
	}

	type respResult struct {
		sess *session.Session
		err  error
	}
	respCh := make(chan respResult, 1)
	go func() {
		sess, err := session.Respond(p.rawB, cfgB)
		respCh <- respResult{sess, err}
	}()

	a, err := session.Initiate(p.rawA, cfgA)
	require.NoError(t, err)
	r := <-respCh
	require.NoError(t, r.err)

	p.a, p.b = a, r.sess
	require.Equal(t, "b", p.a.Peer().Name)
	require.Equal(t, "a", p.b.Peer().Name)

	t.Cleanup(func() {
		p.a.Close()
		p.b.Close()
	})
	return p
}

func waitClosed(t *testing.T, s *session.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not close in time")
	}
}

func recvMessage(t *testing.T, ch chan domain.Message) domain.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(waitFor):
		t.Fatal("no message received in time")
		return domain.Message{}
	}
}

// waitStatus drains notifications until the transfer reaches want.
func waitStatus(t *testing.T, ch chan domain.TransferState, id string, want domain.TransferStatus) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case st := <-ch:
			if st.ID == id && st.Status == want {
				return
			}
			if st.ID == id && st.Status == domain.TransferFailed {
				t.Fatalf("transfer failed while waiting for %s", want)
			}
		case <-deadline:
			t.Fatalf("transfer never reached %s", want)
		}
	}
}

func TestSession_Chat_BothDirections(t *testing.T) {
	p := newPair(t, nil)

	require.NoError(t, p.a.SendChat("hello from a"))
	require.NoError(t, p.b.SendChat("hello from b"))

	m := recvMessage(t, p.bSink)
	require.Equal(t, "a", m.From)
	require.Equal(t, "hello from a", string(m.Plaintext))

	m = recvMessage(t, p.aSink)
	require.Equal(t, "b", m.From)
	require.Equal(t, "hello from b", string(m.Plaintext))
}

func TestSession_CleanClose(t *testing.T) {
	p := newPair(t, nil)

	require.NoError(t, p.a.SendChat("bye"))
	recvMessage(t, p.bSink)

	require.NoError(t, p.a.Close())
	waitClosed(t, p.a)
	waitClosed(t, p.b)

	require.NoError(t, p.a.Err())
	require.NoError(t, p.b.Err())
	require.Equal(t, session.StateClosed, p.a.State())
	require.Equal(t, session.StateClosed, p.b.State())

	require.ErrorIs(t, p.a.SendChat("late"), session.ErrClosed)
}

func TestSession_FileTransfer(t *testing.T) {
	p := newPair(t, nil)

	src := filepath.Join(t.TempDir(), "photo.raw")
	data := make([]byte, 5*1024+100)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o600))

	st, err := p.a.SendFile(src)
	require.NoError(t, err)

	waitStatus(t, p.aNotes, st.ID, domain.TransferCompleted)
	waitStatus(t, p.bNotes, st.ID, domain.TransferCompleted)

	got, err := os.ReadFile(filepath.Join(p.bDownloads, "photo.raw"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestSession_ConnectionLoss_PausesTransfers(t *testing.T) {
	p := newPair(t, nil)

	src := filepath.Join(t.TempDir(), "large.raw")
	data := make([]byte, 1<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o600))

	st, err := p.a.SendFile(src)
	require.NoError(t, err)

	// The wire goes away mid-transfer.
	p.rawA.Close()

	waitClosed(t, p.a)
	waitClosed(t, p.b)
	require.Error(t, p.a.Err())
	require.Error(t, p.b.Err())

	saved, ok, err := p.aStore.LoadTransfer(st.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.TransferPaused, saved.Status)
}

func TestSession_OversizedChunkSize_ScopedToTransfer(t *testing.T) {
	// A chunk size beyond what one frame can carry must never tear the
	// session down; it is clamped from config and rejected on direct use.
	p := newPair(t, func(a, b *session.Config) {
		a.ChunkSize = 4 << 20
	})

	src := filepath.Join(t.TempDir(), "clamped.bin")
	data := make([]byte, 3*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o600))

	st, err := p.a.SendFile(src)
	require.NoError(t, err)
	require.LessOrEqual(t, st.ChunkSize, transfer.MaxChunkSize)
	waitStatus(t, p.aNotes, st.ID, domain.TransferCompleted)
	waitStatus(t, p.bNotes, st.ID, domain.TransferCompleted)

	// Announcing with an unframeable chunk size fails that transfer only.
	_, err = p.a.Transfers().Announce(src, transfer.MaxChunkSize+1)
	require.ErrorIs(t, err, transfer.ErrChunkTooLarge)

	require.Equal(t, session.StateEstablished, p.a.State())
	require.NoError(t, p.a.SendChat("still here"))
	m := recvMessage(t, p.bSink)
	require.Equal(t, "still here", string(m.Plaintext))
}

func TestSession_IdleTimeout_ClosesCleanly(t *testing.T) {
	p := newPair(t, func(a, b *session.Config) {
		a.IdleTimeout = 100 * time.Millisecond
		b.IdleTimeout = 100 * time.Millisecond
		a.CloseTimeout = time.Second
		b.CloseTimeout = time.Second
	})

	waitClosed(t, p.a)
	waitClosed(t, p.b)
	require.NoError(t, p.a.Err())
	require.NoError(t, p.b.Err())
}

func TestSession_UntrustedInitiator_Rejected(t *testing.T) {
	idA := makeIdentity(t)
	idB := makeIdentity(t)
	stranger := makeIdentity(t)

	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	respCh := make(chan error, 1)
	go func() {
		_, err := session.Respond(c2, session.Config{
			Identity: idB,
			// Only trusts someone who is not dialing.
			Lookup:    trustOnly(peerOf("stranger", stranger)),
			Transfers: store.NewTransferFileStore(t.TempDir()),
		})
		respCh <- err
	}()

	_, err := session.Initiate(c1, session.Config{
		Identity:  idA,
		Peer:      addrOf(peerOf("b", idB)),
		Transfers: store.NewTransferFileStore(t.TempDir()),
	})
	require.Error(t, err)

	respErr := <-respCh
	require.Error(t, respErr)
	require.True(t, secure.IsKind(respErr, secure.KindHandshakeFailed))
}

func addrOf(p domain.PeerIdentity) *domain.PeerIdentity { return &p }

func TestSession_ForgedFrame_TerminatesSession(t *testing.T) {
	idA := makeIdentity(t)
	idB := makeIdentity(t)

	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	respCh := make(chan *session.Session, 1)
	go func() {
		sess, err := session.Respond(c2, session.Config{
			Identity:  idB,
			Lookup:    trustOnly(peerOf("a", idA)),
			Transfers: store.NewTransferFileStore(t.TempDir()),
		})
		if err != nil {
			respCh <- nil
			return
		}
		respCh <- sess
	}()

	// Run the handshake by hand so we control the frames that follow.
	keys, err := secure.Initiate(c1, idA, peerOf("b", idB))
	require.NoError(t, err)
	defer keys.Close()

	sess := <-respCh
	require.NotNil(t, sess)
	t.Cleanup(func() { sess.Close() })

	// Ciphertext that was never sealed with the session keys.
	forged := domain.Frame{Type: domain.FrameChat, Seq: 0, Payload: []byte("not a real ciphertext, just bytes")}
	require.NoError(t, frame.WriteFrame(c1, forged))

	waitClosed(t, sess)
	require.True(t, secure.IsKind(sess.Err(), secure.KindAuthFailed))
}

func TestSession_UnknownFrameType_Ignored(t *testing.T) {
	idA := makeIdentity(t)
	idB := makeIdentity(t)

	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	sink := make(chan domain.Message, 1)
	respCh := make(chan *session.Session, 1)
	go func() {
		sess, err := session.Respond(c2, session.Config{
			Identity:  idB,
			Lookup:    trustOnly(peerOf("a", idA)),
			Sink:      func(m domain.Message) { sink <- m },
			Transfers: store.NewTransferFileStore(t.TempDir()),
		})
		if err != nil {
			respCh <- nil
			return
		}
		respCh <- sess
	}()

	keys, err := secure.Initiate(c1, idA, peerOf("b", idB))
	require.NoError(t, err)
	defer keys.Close()

	sess := <-respCh
	require.NotNil(t, sess)
	t.Cleanup(func() { sess.Close() })

	// A frame type this version does not know about.
	ct, err := keys.Seal(domain.FrameType(0x7f), 0, []byte("future extension"))
	require.NoError(t, err)
	require.NoError(t, frame.WriteFrame(c1, domain.Frame{Type: 0x7f, Seq: 0, Payload: ct}))

	// The session must still be alive and processing afterwards.
	ct, err = keys.Seal(domain.FrameChat, 1, []byte("still here"))
	require.NoError(t, err)
	require.NoError(t, frame.WriteFrame(c1, domain.Frame{Type: domain.FrameChat, Seq: 1, Payload: ct}))

	m := recvMessage(t, sink)
	require.Equal(t, "still here", string(m.Plaintext))
}
