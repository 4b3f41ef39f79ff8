package domain

// IdentityStore persists your long-term identity keys, encrypted at rest.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}

// PeerStore keeps trusted remote public keys by display name.
type PeerStore interface {
	SavePeer(p PeerIdentity) error
	LoadPeer(name string) (PeerIdentity, bool, error)
	// LookupByEdKey resolves an inbound handshake's signing key to a
	// trusted peer.
	LookupByEdKey(pub Ed25519Public) (PeerIdentity, bool, error)
	ListPeers() ([]PeerIdentity, error)
}

// TransferStore persists per-transfer resume state.
type TransferStore interface {
	SaveTransfer(st TransferState) error
	LoadTransfer(id string) (TransferState, bool, error)
	ListTransfers() ([]TransferState, error)
	DeleteTransfer(id string) error
}

// IdentityService manages identity key creation and access.
type IdentityService interface {
	GenerateIdentity(passphrase string) (Identity, Fingerprint, error)
	LoadIdentity(passphrase string) (Identity, error)
	FingerprintIdentity(passphrase string) (Fingerprint, error)
}

// TrustService manages the set of trusted peers.
type TrustService interface {
	AddPeer(name, xPubB64, edPubB64 string) (PeerIdentity, error)
	ResolvePeer(name string) (PeerIdentity, error)
	ListPeers() ([]PeerIdentity, error)
}
