package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"parley/internal/domain"
)

const transferDir = "transfers"

// TransferFileStore persists one JSON file per transfer so interrupted
// transfers can resume across sessions and restarts.
type TransferFileStore struct {
	dir string
	mu  sync.Mutex
}

func NewTransferFileStore(dir string) *TransferFileStore {
	return &TransferFileStore{dir: filepath.Join(dir, transferDir)}
}

func (s *TransferFileStore) SaveTransfer(st domain.TransferState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return writeJSON(s.path(st.ID), st, 0o600)
}

func (s *TransferFileStore) LoadTransfer(id string) (domain.TransferState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st domain.TransferState
	found, err := readJSON(s.path(id), &st)
	if err != nil || !found {
		return domain.TransferState{}, false, err
	}
	return st, true, nil
}

func (s *TransferFileStore) ListTransfers() ([]domain.TransferState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.TransferState, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var st domain.TransferState
		if _, err := readJSON(filepath.Join(s.dir, e.Name()), &st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *TransferFileStore) DeleteTransfer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *TransferFileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

var _ domain.TransferStore = (*TransferFileStore)(nil)
