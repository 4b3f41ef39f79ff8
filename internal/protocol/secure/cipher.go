package secure

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"parley/internal/domain"
	"parley/internal/util/memzero"
)

const (
	keySize   = chacha20poly1305.KeySize
	nonceSize = chacha20poly1305.NonceSize
	// Overhead is the AEAD tag appended to every sealed payload.
	Overhead = chacha20poly1305.Overhead
)

// Session holds the directional keys for one established connection.
//
// The send path and receive path may be driven from different goroutines;
// a single mutex keeps Close safe against concurrent Seal/Open. Within one
// direction calls are expected to be sequential, matching the wire's strict
// per-direction ordering.
type Session struct {
	mu       sync.Mutex
	send     cipher.AEAD
	recv     cipher.AEAD
	sendKey  []byte
	recvKey  []byte
	nextRecv uint64
	closed   bool
}

func newSession(sendKey, recvKey []byte) (*Session, error) {
	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, wrapError(KindHandshakeFailed, "init send cipher", err)
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, wrapError(KindHandshakeFailed, "init recv cipher", err)
	}
	return &Session{
		send:    sendAEAD,
		recv:    recvAEAD,
		sendKey: sendKey,
		recvKey: recvKey,
	}, nil
}

// Seal encrypts plaintext for the given frame type and sequence number.
// The sequence selects the nonce and is bound into the associated data
// together with the type, so the receiver cannot accept it elsewhere.
func (s *Session) Seal(t domain.FrameType, seq uint64, plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newError(KindSessionClosed, "seal on closed session")
	}
	nonce := seqNonce(seq)
	return s.send.Seal(nil, nonce[:], plaintext, associatedData(t, seq)), nil
}

// Open decrypts a received payload. seq must be exactly the next expected
// sequence for this direction; anything already accepted or skipped ahead
// is classified as a replay. A tag mismatch is an authentication failure.
func (s *Session) Open(t domain.FrameType, seq uint64, ciphertext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newError(KindSessionClosed, "open on closed session")
	}
	if seq < s.nextRecv {
		return nil, newError(KindReplay, fmt.Sprintf("sequence %d already accepted", seq))
	}
	if seq > s.nextRecv {
		return nil, newError(KindReplay, fmt.Sprintf("sequence gap: got %d, want %d", seq, s.nextRecv))
	}
	nonce := seqNonce(seq)
	pt, err := s.recv.Open(nil, nonce[:], ciphertext, associatedData(t, seq))
	if err != nil {
		return nil, wrapError(KindAuthFailed, "payload authentication", err)
	}
	s.nextRecv++
	return pt, nil
}

// Close wipes the key material. Any later Seal or Open fails with
// KindSessionClosed. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	memzero.Zero(s.sendKey)
	memzero.Zero(s.recvKey)
	s.send = nil
	s.recv = nil
}

func seqNonce(seq uint64) [nonceSize]byte {
	var nonce [nonceSize]byte
	binary.BigEndian.PutUint64(nonce[nonceSize-8:], seq)
	return nonce
}

func associatedData(t domain.FrameType, seq uint64) []byte {
	var ad [9]byte
	ad[0] = byte(t)
	binary.BigEndian.PutUint64(ad[1:], seq)
	return ad[:]
}
