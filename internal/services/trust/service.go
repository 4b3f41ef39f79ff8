// Package trust manages the set of trusted remote peers. Public keys are
// exchanged out of band (in person, over an existing secure channel) and
// recorded here; the handshake only ever succeeds against a recorded key.
package trust

import (
	"fmt"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// Service adds, lists, and resolves trusted peers against a backing store.
type Service struct {
	store domain.PeerStore
}

// New returns a trust service backed by the given store.
func New(s domain.PeerStore) *Service { return &Service{store: s} }

// AddPeer records a peer's public keys under a display name. Keys arrive
// base64-encoded, as printed by the fingerprint command on the peer's side.
func (s *Service) AddPeer(name, xPubB64, edPubB64 string) (domain.PeerIdentity, error) {
	if name == "" {
		return domain.PeerIdentity{}, fmt.Errorf("peer name required")
	}
	xPub, err := crypto.FromB64(xPubB64)
	if err != nil {
		return domain.PeerIdentity{}, fmt.Errorf("decode X25519 key: %w", err)
	}
	if len(xPub) != 32 {
		return domain.PeerIdentity{}, fmt.Errorf("X25519 key: want 32 bytes, got %d", len(xPub))
	}
	edPub, err := crypto.FromB64(edPubB64)
	if err != nil {
		return domain.PeerIdentity{}, fmt.Errorf("decode Ed25519 key: %w", err)
	}
	if len(edPub) != 32 {
		return domain.PeerIdentity{}, fmt.Errorf("Ed25519 key: want 32 bytes, got %d", len(edPub))
	}

	p := domain.PeerIdentity{
		Name:        name,
		XPub:        domain.MustX25519Public(xPub),
		EdPub:       domain.MustEd25519Public(edPub),
		Fingerprint: domain.Fingerprint(crypto.Fingerprint(xPub)),
	}
	if err := s.store.SavePeer(p); err != nil {
		return domain.PeerIdentity{}, err
	}
	return p, nil
}

// ResolvePeer returns the trusted peer for a display name.
func (s *Service) ResolvePeer(name string) (domain.PeerIdentity, error) {
	p, ok, err := s.store.LoadPeer(name)
	if err != nil {
		return domain.PeerIdentity{}, err
	}
	if !ok {
		return domain.PeerIdentity{}, fmt.Errorf("peer %q is not trusted; add it first", name)
	}
	return p, nil
}

// ListPeers returns all trusted peers sorted by name.
func (s *Service) ListPeers() ([]domain.PeerIdentity, error) {
	return s.store.ListPeers()
}

// Lookup adapts the store to the handshake's peer resolution callback.
func (s *Service) Lookup(pub domain.Ed25519Public) (domain.PeerIdentity, bool) {
	p, ok, err := s.store.LookupByEdKey(pub)
	if err != nil || !ok {
		return domain.PeerIdentity{}, false
	}
	return p, true
}

// Compile-time assertion that Service implements domain.TrustService.
var _ domain.TrustService = (*Service)(nil)
