package store_test

import (
	"reflect"
	"testing"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/store"
)

func testIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func TestIdentityStore_RoundTrip(t *testing.T) {
	s := store.NewIdentityFileStore(t.TempDir())
	id := testIdentity(t)

	if err := s.SaveIdentity("correct horse battery staple", id); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	got, err := s.LoadIdentity("correct horse battery staple")
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if got != id {
		t.Fatal("loaded identity differs from saved")
	}
}

func TestIdentityStore_WrongPassphrase(t *testing.T) {
	s := store.NewIdentityFileStore(t.TempDir())
	if err := s.SaveIdentity("correct horse battery staple", testIdentity(t)); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if _, err := s.LoadIdentity("incorrect horse"); err == nil {
		t.Fatal("expected decryption failure with wrong passphrase")
	}
}

func TestIdentityStore_Missing(t *testing.T) {
	s := store.NewIdentityFileStore(t.TempDir())
	if _, err := s.LoadIdentity("whatever"); err == nil {
		t.Fatal("expected error for missing identity file")
	}
}

func TestPeerStore_RoundTrip(t *testing.T) {
	s := store.NewPeerFileStore(t.TempDir())

	alice := testIdentity(t)
	bob := testIdentity(t)
	pa := domain.PeerIdentity{Name: "alice", XPub: alice.XPub, EdPub: alice.EdPub}
	pb := domain.PeerIdentity{Name: "bob", XPub: bob.XPub, EdPub: bob.EdPub}

	for _, p := range []domain.PeerIdentity{pa, pb} {
		if err := s.SavePeer(p); err != nil {
			t.Fatalf("SavePeer(%s): %v", p.Name, err)
		}
	}

	got, found, err := s.LoadPeer("alice")
	if err != nil || !found {
		t.Fatalf("LoadPeer: found=%v err=%v", found, err)
	}
	if got.XPub != pa.XPub || got.EdPub != pa.EdPub {
		t.Fatal("loaded peer keys differ")
	}
	if got.Fingerprint == "" {
		t.Fatal("fingerprint not derived on load")
	}

	if _, found, err := s.LoadPeer("mallory"); err != nil || found {
		t.Fatalf("LoadPeer(mallory): found=%v err=%v", found, err)
	}

	list, err := s.ListPeers()
	if err != nil {
		t.Fatalf("ListPeers: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alice" || list[1].Name != "bob" {
		t.Fatalf("unexpected peer list: %+v", list)
	}
}

func TestPeerStore_LookupByEdKey(t *testing.T) {
	s := store.NewPeerFileStore(t.TempDir())
	alice := testIdentity(t)
	if err := s.SavePeer(domain.PeerIdentity{Name: "alice", XPub: alice.XPub, EdPub: alice.EdPub}); err != nil {
		t.Fatalf("SavePeer: %v", err)
	}

	got, found, err := s.LookupByEdKey(alice.EdPub)
	if err != nil || !found {
		t.Fatalf("LookupByEdKey: found=%v err=%v", found, err)
	}
	if got.Name != "alice" {
		t.Fatalf("resolved wrong peer %q", got.Name)
	}

	other := testIdentity(t)
	if _, found, _ := s.LookupByEdKey(other.EdPub); found {
		t.Fatal("unknown signing key must not resolve")
	}
}

func TestTransferStore_RoundTrip(t *testing.T) {
	s := store.NewTransferFileStore(t.TempDir())

	st := domain.TransferState{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Name:      "backup.tar",
		Size:      4096,
		ChunkSize: 1024,
		Path:      "/tmp/backup.tar",
		Outgoing:  true,
		Status:    domain.TransferInProgress,
		Done:      domain.NewChunkBitmap(4),
	}
	st.Done.Set(0)
	st.Done.Set(2)

	if err := s.SaveTransfer(st); err != nil {
		t.Fatalf("SaveTransfer: %v", err)
	}
	got, found, err := s.LoadTransfer(st.ID)
	if err != nil || !found {
		t.Fatalf("LoadTransfer: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Fatalf("loaded state differs:\n got %+v\nwant %+v", got, st)
	}
	if want := []uint32{1, 3}; !reflect.DeepEqual(got.Pending(), want) {
		t.Fatalf("pending = %v, want %v", got.Pending(), want)
	}

	list, err := s.ListTransfers()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTransfers: len=%d err=%v", len(list), err)
	}

	if err := s.DeleteTransfer(st.ID); err != nil {
		t.Fatalf("DeleteTransfer: %v", err)
	}
	if _, found, err := s.LoadTransfer(st.ID); err != nil || found {
		t.Fatalf("transfer still present after delete: found=%v err=%v", found, err)
	}
	if err := s.DeleteTransfer(st.ID); err != nil {
		t.Fatalf("DeleteTransfer twice: %v", err)
	}
}
