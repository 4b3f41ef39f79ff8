package trust_test

import (
	"testing"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/services/trust"
	"parley/internal/store"
)

func keysB64(t *testing.T) (xPub, edPub string, edRaw domain.Ed25519Public) {
	t.Helper()
	_, x, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, ed, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return crypto.B64(x.Slice()), crypto.B64(ed.Slice()), ed
}

func TestAddAndResolvePeer(t *testing.T) {
	svc := trust.New(store.NewPeerFileStore(t.TempDir()))
	xPub, edPub, edRaw := keysB64(t)

	added, err := svc.AddPeer("alice", xPub, edPub)
	if err != nil {
		t.Fatalf("AddPeer: %v", err)
	}
	if added.Fingerprint == "" {
		t.Fatal("no fingerprint derived")
	}

	got, err := svc.ResolvePeer("alice")
	if err != nil {
		t.Fatalf("ResolvePeer: %v", err)
	}
	if got.XPub != added.XPub || got.EdPub != added.EdPub {
		t.Fatal("resolved keys differ from added keys")
	}

	if _, err := svc.ResolvePeer("nobody"); err == nil {
		t.Fatal("unknown peer must not resolve")
	}

	p, ok := svc.Lookup(edRaw)
	if !ok || p.Name != "alice" {
		t.Fatalf("Lookup = %+v, %v", p, ok)
	}
	var unknown domain.Ed25519Public
	if _, ok := svc.Lookup(unknown); ok {
		t.Fatal("unknown signing key must not resolve")
	}
}

func TestAddPeer_Validation(t *testing.T) {
	svc := trust.New(store.NewPeerFileStore(t.TempDir()))
	xPub, edPub, _ := keysB64(t)

	cases := []struct {
		name       string
		peer, x, e string
	}{
		{"empty name", "", xPub, edPub},
		{"bad x base64", "p", "!!!", edPub},
		{"bad ed base64", "p", xPub, "!!!"},
		{"short x key", "p", crypto.B64([]byte("short")), edPub},
		{"short ed key", "p", xPub, crypto.B64([]byte("short"))},
	}
	for _, c := range cases {
		if _, err := svc.AddPeer(c.peer, c.x, c.e); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}
