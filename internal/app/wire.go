package app

import (
	"parley/internal/domain"
	identitysvc "parley/internal/services/identity"
	trustsvc "parley/internal/services/trust"
	"parley/internal/store"
)

// Wire bundles all stores and services for the CLI.
type Wire struct {
	Config    Config
	Identity  domain.IdentityService
	Trust     *trustsvc.Service
	Transfers domain.TransferStore
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) *Wire {
	identityStore := store.NewIdentityFileStore(cfg.Home)
	peerStore := store.NewPeerFileStore(cfg.Home)
	transferStore := store.NewTransferFileStore(cfg.Home)

	return &Wire{
		Config:    cfg,
		Identity:  identitysvc.New(identityStore),
		Trust:     trustsvc.New(peerStore),
		Transfers: transferStore,
	}
}
