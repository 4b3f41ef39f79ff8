package domain

// Fingerprint is a short hex digest identifying a public key.
type Fingerprint string

// Identity holds the local long-term keys: X25519 for key agreement and
// Ed25519 for authenticating handshakes.
type Identity struct {
	XPub   X25519Public
	XPriv  X25519Private
	EdPub  Ed25519Public
	EdPriv Ed25519Private
}

// PeerIdentity is a trusted remote peer, loaded from the peer store.
// Immutable once loaded; key material is exchanged out of band.
type PeerIdentity struct {
	Name        string
	XPub        X25519Public
	EdPub       Ed25519Public
	Fingerprint Fingerprint
}
