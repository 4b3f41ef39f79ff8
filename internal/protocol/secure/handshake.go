package secure

import (
	"crypto/sha256"
	"errors"
	"io"
	"net"

	"golang.org/x/crypto/hkdf"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/util/memzero"
)

const (
	pubSize = 32
	sigSize = 64

	// Transcript labels keep the two signatures from being swapped
	// between roles.
	labelInitiator = "parley/hs/initiator"
	labelResponder = "parley/hs/responder"

	// HKDF info labels give each direction its own key.
	infoInitiatorToResponder = "parley/key/i2r"
	infoResponderToInitiator = "parley/key/r2i"
)

// PeerLookup resolves an inbound signing key to a trusted peer.
type PeerLookup func(domain.Ed25519Public) (domain.PeerIdentity, bool)

// Initiate runs the handshake from the dialing side. The remote must prove
// possession of peer's Ed25519 key before any session key is accepted.
func Initiate(rw io.ReadWriter, id domain.Identity, peer domain.PeerIdentity) (*Session, error) {
	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, wrapError(KindHandshakeFailed, "generate ephemeral key", err)
	}
	defer memzero.Zero(ephPriv[:])

	var msg1 [pubSize * 2]byte
	copy(msg1[:pubSize], ephPub[:])
	copy(msg1[pubSize:], id.EdPub[:])
	if err := writeFull(rw, msg1[:]); err != nil {
		return nil, ioError("send hello", err)
	}

	var msg2 [pubSize*2 + sigSize]byte
	if _, err := io.ReadFull(rw, msg2[:]); err != nil {
		return nil, ioError("read responder hello", err)
	}
	peerEph := domain.MustX25519Public(msg2[:pubSize])
	peerEd := domain.MustEd25519Public(msg2[pubSize : pubSize*2])
	peerSig := msg2[pubSize*2:]

	if peerEd != peer.EdPub {
		return nil, newError(KindHandshakeFailed, "responder key does not match trusted peer")
	}
	transcript := transcriptBytes(ephPub, id.EdPub, peerEph, peerEd)
	if !crypto.VerifyEd25519(peer.EdPub, append([]byte(labelResponder), transcript...), peerSig) {
		return nil, newError(KindHandshakeFailed, "responder signature invalid")
	}

	sig := crypto.SignEd25519(id.EdPriv, append([]byte(labelInitiator), transcript...))
	if err := writeFull(rw, sig); err != nil {
		return nil, ioError("send confirmation", err)
	}

	sendKey, recvKey, err := deriveKeys(ephPriv, peerEph, ephPub, peerEph, true)
	if err != nil {
		return nil, err
	}
	return newSession(sendKey, recvKey)
}

// Respond runs the handshake from the accepting side. The initiator's
// signing key must resolve to a trusted peer via lookup; an unknown key
// fails the handshake before any session key exists.
func Respond(rw io.ReadWriter, id domain.Identity, lookup PeerLookup) (*Session, domain.PeerIdentity, error) {
	var msg1 [pubSize * 2]byte
	if _, err := io.ReadFull(rw, msg1[:]); err != nil {
		return nil, domain.PeerIdentity{}, ioError("read initiator hello", err)
	}
	peerEph := domain.MustX25519Public(msg1[:pubSize])
	peerEd := domain.MustEd25519Public(msg1[pubSize:])

	peer, ok := lookup(peerEd)
	if !ok {
		return nil, domain.PeerIdentity{}, newError(KindHandshakeFailed, "initiator key is not trusted")
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, domain.PeerIdentity{}, wrapError(KindHandshakeFailed, "generate ephemeral key", err)
	}
	defer memzero.Zero(ephPriv[:])

	transcript := transcriptBytes(peerEph, peerEd, ephPub, id.EdPub)
	sig := crypto.SignEd25519(id.EdPriv, append([]byte(labelResponder), transcript...))

	msg2 := make([]byte, 0, pubSize*2+sigSize)
	msg2 = append(msg2, ephPub[:]...)
	msg2 = append(msg2, id.EdPub[:]...)
	msg2 = append(msg2, sig...)
	if err := writeFull(rw, msg2); err != nil {
		return nil, domain.PeerIdentity{}, ioError("send responder hello", err)
	}

	peerSig := make([]byte, sigSize)
	if _, err := io.ReadFull(rw, peerSig); err != nil {
		return nil, domain.PeerIdentity{}, ioError("read confirmation", err)
	}
	if !crypto.VerifyEd25519(peer.EdPub, append([]byte(labelInitiator), transcript...), peerSig) {
		return nil, domain.PeerIdentity{}, newError(KindHandshakeFailed, "initiator signature invalid")
	}

	sendKey, recvKey, err := deriveKeys(ephPriv, peerEph, peerEph, ephPub, false)
	if err != nil {
		return nil, domain.PeerIdentity{}, err
	}
	sess, err := newSession(sendKey, recvKey)
	if err != nil {
		return nil, domain.PeerIdentity{}, err
	}
	return sess, peer, nil
}

// transcriptBytes is the byte string both signatures cover: every public
// value exchanged, initiator's first.
func transcriptBytes(initEph domain.X25519Public, initEd domain.Ed25519Public, respEph domain.X25519Public, respEd domain.Ed25519Public) []byte {
	out := make([]byte, 0, pubSize*4)
	out = append(out, initEph[:]...)
	out = append(out, initEd[:]...)
	out = append(out, respEph[:]...)
	out = append(out, respEd[:]...)
	return out
}

// deriveKeys expands the ephemeral DH secret into one key per direction.
// The salt orders the ephemerals initiator-first so both sides expand the
// same transcript.
func deriveKeys(ephPriv domain.X25519Private, peerEph domain.X25519Public, initEph, respEph domain.X25519Public, initiator bool) (sendKey, recvKey []byte, err error) {
	shared, err := crypto.DH(ephPriv, peerEph)
	if err != nil {
		return nil, nil, wrapError(KindHandshakeFailed, "ecdh", err)
	}
	defer memzero.Zero32(&shared)

	salt := make([]byte, 0, pubSize*2)
	salt = append(salt, initEph[:]...)
	salt = append(salt, respEph[:]...)

	i2r, err := expand(shared[:], salt, infoInitiatorToResponder)
	if err != nil {
		return nil, nil, err
	}
	r2i, err := expand(shared[:], salt, infoResponderToInitiator)
	if err != nil {
		memzero.Zero(i2r)
		return nil, nil, err
	}
	if initiator {
		return i2r, r2i, nil
	}
	return r2i, i2r, nil
}

func expand(secret, salt []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(info))
	out := make([]byte, keySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, wrapError(KindHandshakeFailed, "hkdf", err)
	}
	return out, nil
}

// ioError maps transport failures during the handshake, keeping timeouts
// distinguishable from protocol failures.
func ioError(msg string, err error) *Error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return wrapError(KindTimeout, msg, err)
	}
	return wrapError(KindHandshakeFailed, msg, err)
}

func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
