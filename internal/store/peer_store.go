package store

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"parley/internal/crypto"
	"parley/internal/domain"
)

const peersFile = "peers.json"

type peerRecord struct {
	XPub  [32]byte `json:"x_pub"`
	EdPub [32]byte `json:"ed_pub"`
	At    int64    `json:"added_at"`
}

// PeerFileStore keeps trusted peer public keys in a single JSON file.
type PeerFileStore struct {
	dir string
	mu  sync.Mutex
}

func NewPeerFileStore(dir string) *PeerFileStore { return &PeerFileStore{dir: dir} }

func (s *PeerFileStore) SavePeer(p domain.PeerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]peerRecord)
	if _, err := readJSON(s.path(), &m); err != nil {
		return err
	}
	m[p.Name] = peerRecord{XPub: p.XPub, EdPub: p.EdPub, At: time.Now().Unix()}
	return writeJSON(s.path(), m, 0o600)
}

func (s *PeerFileStore) LoadPeer(name string) (domain.PeerIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]peerRecord)
	if _, err := readJSON(s.path(), &m); err != nil {
		return domain.PeerIdentity{}, false, err
	}
	rec, ok := m[name]
	if !ok {
		return domain.PeerIdentity{}, false, nil
	}
	return toIdentity(name, rec), true, nil
}

func (s *PeerFileStore) LookupByEdKey(pub domain.Ed25519Public) (domain.PeerIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]peerRecord)
	if _, err := readJSON(s.path(), &m); err != nil {
		return domain.PeerIdentity{}, false, err
	}
	for name, rec := range m {
		if rec.EdPub == [32]byte(pub) {
			return toIdentity(name, rec), true, nil
		}
	}
	return domain.PeerIdentity{}, false, nil
}

func (s *PeerFileStore) ListPeers() ([]domain.PeerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]peerRecord)
	if _, err := readJSON(s.path(), &m); err != nil {
		return nil, err
	}
	out := make([]domain.PeerIdentity, 0, len(m))
	for name, rec := range m {
		out = append(out, toIdentity(name, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *PeerFileStore) path() string { return filepath.Join(s.dir, peersFile) }

func toIdentity(name string, rec peerRecord) domain.PeerIdentity {
	return domain.PeerIdentity{
		Name:        name,
		XPub:        rec.XPub,
		EdPub:       rec.EdPub,
		Fingerprint: domain.Fingerprint(crypto.Fingerprint(rec.XPub[:])),
	}
}

var _ domain.PeerStore = (*PeerFileStore)(nil)
