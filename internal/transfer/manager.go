package transfer

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"parley/internal/domain"
)

const (
	// DefaultChunkSize splits files into 1 MiB chunks unless configured
	// otherwise.
	DefaultChunkSize int64 = 1 << 20
	// MaxChunkSize is the largest chunk that still fits a single frame
	// together with the chunk header and AEAD tag.
	MaxChunkSize int64 = 1 << 20
)

var (
	// ErrUnknownTransfer means no state exists for the given id.
	ErrUnknownTransfer = errors.New("transfer: unknown transfer id")
	// ErrChunkTooLarge means the requested chunk size cannot be framed.
	ErrChunkTooLarge = errors.New("transfer: chunk size exceeds frame capacity")
)

// Sender queues one outbound frame for the peer. Implemented by the
// session's send path; blocking here is the transfer backpressure.
type Sender interface {
	Send(t domain.FrameType, payload []byte) error
}

// Config wires a Manager to its session and environment.
type Config struct {
	Store       domain.TransferStore
	Out         Sender
	DownloadDir string
	// Notify, when set, observes every status transition.
	Notify func(domain.TransferState)
	Logger *log.Logger
}

// Manager owns all transfer state for one peer session. Distinct transfers
// progress independently: each has its own lock and open file, so chunk
// writes for different transfers never serialise on each other.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	active map[string]*activeTransfer
}

type activeTransfer struct {
	mu    sync.Mutex
	state domain.TransferState
	file  *os.File
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Manager{cfg: cfg, active: make(map[string]*activeTransfer)}
}

// Announce registers an outgoing file and emits its FileMeta frame. The
// returned state is Announced; call SendPending to stream the chunks.
// A chunk size that cannot be framed is rejected here, before any state
// is created or any frame is sent.
func (m *Manager) Announce(path string, chunkSize int64) (domain.TransferState, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize > MaxChunkSize {
		return domain.TransferState{}, ErrChunkTooLarge
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.TransferState{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return domain.TransferState{}, err
	}
	sum, err := hashFile(f)
	if err != nil {
		f.Close()
		return domain.TransferState{}, err
	}

	st := domain.TransferState{
		ID:        uuid.NewString(),
		Name:      filepath.Base(path),
		Size:      info.Size(),
		ChunkSize: chunkSize,
		SHA256:    sum,
		Path:      path,
		Outgoing:  true,
		Status:    domain.TransferAnnounced,
	}
	st.Done = domain.NewChunkBitmap(st.TotalChunks())

	at := &activeTransfer{state: st, file: f}
	m.mu.Lock()
	m.active[st.ID] = at
	m.mu.Unlock()

	if err := m.persist(at); err != nil {
		return st, err
	}
	if err := m.sendMeta(st); err != nil {
		return st, err
	}
	return st, nil
}

// Resume reloads a paused transfer from the store and, for the sending
// side, re-announces it so the receiver reopens its destination.
func (m *Manager) Resume(id string) (domain.TransferState, error) {
	at, err := m.activate(id)
	if err != nil {
		return domain.TransferState{}, err
	}
	at.mu.Lock()
	st := at.state
	at.mu.Unlock()

	if st.Outgoing {
		if err := m.sendMeta(st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// SendPending streams every unacknowledged chunk in order. It blocks on
// the session's bounded outbound queue, so a slow peer slows the reader
// here rather than growing memory. Safe to call again after a resume.
func (m *Manager) SendPending(id string) error {
	at, err := m.activate(id)
	if err != nil {
		return err
	}
	at.mu.Lock()
	if !at.state.Outgoing {
		at.mu.Unlock()
		return fmt.Errorf("transfer %s: not outgoing", id)
	}
	uid, err := uuid.Parse(at.state.ID)
	if err != nil {
		at.mu.Unlock()
		return err
	}
	pending := at.state.Pending()
	chunkSize := at.state.ChunkSize
	size := at.state.Size
	file := at.file
	if at.state.Status == domain.TransferAnnounced || at.state.Status == domain.TransferPaused {
		at.state.Status = domain.TransferInProgress
	}
	st := at.state
	at.mu.Unlock()

	if err := m.persist(at); err != nil {
		return err
	}
	m.notify(st)

	if len(pending) == 0 {
		return m.maybeCompleteSender(at)
	}

	buf := make([]byte, chunkSize)
	for _, idx := range pending {
		off := int64(idx) * chunkSize
		n := chunkSize
		if off+n > size {
			n = size - off
		}
		if _, err := file.ReadAt(buf[:n], off); err != nil {
			if errors.Is(err, os.ErrClosed) {
				// PauseAll closed the file under us; the transfer is
				// already Paused, not Failed.
				return err
			}
			m.fail(at, fmt.Errorf("read chunk %d: %w", idx, err))
			return err
		}
		if err := m.cfg.Out.Send(domain.FrameFileChunk, encodeChunk(uid, idx, buf[:n])); err != nil {
			return err
		}
	}
	return nil
}

// HandleMeta processes an incoming FileMeta frame. A known id resumes the
// existing destination file and bitmap; a new id creates both.
func (m *Manager) HandleMeta(payload []byte) (domain.TransferState, error) {
	var meta Meta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return domain.TransferState{}, fmt.Errorf("transfer: decode meta: %w", err)
	}
	uid, err := uuid.Parse(meta.ID)
	if err != nil {
		return domain.TransferState{}, fmt.Errorf("transfer: meta id: %w", err)
	}
	// Chunks and acks are keyed by the canonical form; accept urn or
	// uppercase spellings but never store them.
	meta.ID = uid.String()
	if meta.Size < 0 || meta.ChunkSize <= 0 || meta.ChunkSize > MaxChunkSize {
		return domain.TransferState{}, fmt.Errorf("transfer: meta sizes invalid")
	}

	// Known id: resume in place.
	if at, err := m.activate(meta.ID); err == nil {
		at.mu.Lock()
		if at.state.Status == domain.TransferPaused {
			at.state.Status = domain.TransferInProgress
		}
		st := at.state
		at.mu.Unlock()
		if err := m.persist(at); err != nil {
			return st, err
		}
		m.notify(st)
		// Every chunk may already be on disk if the connection died
		// between the last write and verification; finish it now.
		if !st.Outgoing && st.Status == domain.TransferInProgress && st.Complete() {
			return st, m.completeReceiver(at)
		}
		return st, nil
	}

	// A second transfer with the same base name must not clobber the
	// first's partial data, so the destination is created exclusively
	// and falls back to an id-prefixed name on collision.
	base := filepath.Base(meta.Name)
	dest := filepath.Join(m.cfg.DownloadDir, base)
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		dest = filepath.Join(m.cfg.DownloadDir, meta.ID+"-"+base)
		f, err = os.OpenFile(dest, os.O_RDWR|os.O_CREATE, 0o600)
	}
	if err != nil {
		return domain.TransferState{}, err
	}
	if err := f.Truncate(meta.Size); err != nil {
		f.Close()
		return domain.TransferState{}, err
	}

	st := domain.TransferState{
		ID:        meta.ID,
		Name:      meta.Name,
		Size:      meta.Size,
		ChunkSize: meta.ChunkSize,
		SHA256:    meta.SHA256,
		Path:      dest,
		Outgoing:  false,
		Status:    domain.TransferInProgress,
	}
	st.Done = domain.NewChunkBitmap(st.TotalChunks())

	at := &activeTransfer{state: st, file: f}
	m.mu.Lock()
	m.active[st.ID] = at
	m.mu.Unlock()

	if err := m.persist(at); err != nil {
		return st, err
	}
	m.notify(st)

	if st.TotalChunks() == 0 {
		return st, m.completeReceiver(at)
	}
	return st, nil
}

// HandleChunk writes one received chunk at its offset and acknowledges it.
// A chunk already marked done is acknowledged again without touching the
// file, which makes retransmission after a resume safe.
func (m *Manager) HandleChunk(payload []byte) error {
	uid, idx, data, err := decodeChunk(payload)
	if err != nil {
		return err
	}
	at, err := m.activate(uid.String())
	if err != nil {
		return err
	}

	at.mu.Lock()
	st := at.state
	if st.Outgoing {
		at.mu.Unlock()
		return fmt.Errorf("transfer %s: chunk for outgoing transfer", st.ID)
	}
	if idx >= st.TotalChunks() {
		at.mu.Unlock()
		return fmt.Errorf("transfer %s: chunk index %d out of range", st.ID, idx)
	}
	slot := st.ChunkSize
	if rem := st.Size - int64(idx)*st.ChunkSize; rem < slot {
		slot = rem
	}
	if int64(len(data)) != slot {
		at.mu.Unlock()
		return fmt.Errorf("transfer %s: chunk %d length %d, want %d", st.ID, idx, len(data), slot)
	}
	if st.Done.Has(idx) {
		at.mu.Unlock()
		// Duplicate: ack again so the sender converges.
		return m.cfg.Out.Send(domain.FrameAck, encodeAck(uid, idx))
	}
	if _, err := at.file.WriteAt(data, int64(idx)*st.ChunkSize); err != nil {
		at.mu.Unlock()
		m.fail(at, fmt.Errorf("write chunk %d: %w", idx, err))
		return err
	}
	at.state.Done.Set(idx)
	done := at.state.Complete()
	at.mu.Unlock()

	if err := m.persist(at); err != nil {
		return err
	}
	if err := m.cfg.Out.Send(domain.FrameAck, encodeAck(uid, idx)); err != nil {
		return err
	}
	if done {
		return m.completeReceiver(at)
	}
	return nil
}

// HandleAck marks one chunk acknowledged on the sending side.
func (m *Manager) HandleAck(payload []byte) error {
	uid, idx, err := decodeAck(payload)
	if err != nil {
		return err
	}
	at, err := m.activate(uid.String())
	if err != nil {
		return err
	}

	at.mu.Lock()
	if !at.state.Outgoing || idx >= at.state.TotalChunks() {
		at.mu.Unlock()
		return fmt.Errorf("transfer %s: unexpected ack %d", uid, idx)
	}
	at.state.Done.Set(idx)
	at.mu.Unlock()

	if err := m.persist(at); err != nil {
		return err
	}
	return m.maybeCompleteSender(at)
}

// Pending returns the chunk indices not yet done for a transfer, loading
// persisted state if the transfer is not active in this session.
func (m *Manager) Pending(id string) ([]uint32, error) {
	m.mu.Lock()
	at, ok := m.active[id]
	m.mu.Unlock()
	if ok {
		at.mu.Lock()
		defer at.mu.Unlock()
		return at.state.Pending(), nil
	}
	st, found, err := m.cfg.Store.LoadTransfer(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownTransfer
	}
	return st.Pending(), nil
}

// Status reports the current state of a transfer.
func (m *Manager) Status(id string) (domain.TransferState, bool, error) {
	m.mu.Lock()
	at, ok := m.active[id]
	m.mu.Unlock()
	if ok {
		at.mu.Lock()
		defer at.mu.Unlock()
		return at.state, true, nil
	}
	return m.cfg.Store.LoadTransfer(id)
}

// PauseAll moves every non-terminal transfer to Paused and releases its
// file. Called when the session's connection goes away; Paused transfers
// stay resumable, unlike Failed ones.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	actives := make([]*activeTransfer, 0, len(m.active))
	for _, at := range m.active {
		actives = append(actives, at)
	}
	m.active = make(map[string]*activeTransfer)
	m.mu.Unlock()

	for _, at := range actives {
		at.mu.Lock()
		terminal := at.state.Status == domain.TransferCompleted || at.state.Status == domain.TransferFailed
		if !terminal {
			at.state.Status = domain.TransferPaused
		}
		if at.file != nil {
			at.file.Close()
			at.file = nil
		}
		st := at.state
		at.mu.Unlock()

		if !terminal {
			if err := m.persist(at); err != nil {
				m.cfg.Logger.Printf("transfer %s: persist on pause: %v", st.ID, err)
			}
			m.notify(st)
		}
	}
}

// ---- internal ----

// activate returns the running record for id, reviving persisted state and
// reopening the file when needed.
func (m *Manager) activate(id string) (*activeTransfer, error) {
	m.mu.Lock()
	if at, ok := m.active[id]; ok {
		m.mu.Unlock()
		return at, nil
	}
	m.mu.Unlock()

	st, found, err := m.cfg.Store.LoadTransfer(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownTransfer
	}

	flags := os.O_RDWR
	if st.Outgoing {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(st.Path, flags, 0)
	if err != nil {
		return nil, err
	}

	at := &activeTransfer{state: st, file: f}
	m.mu.Lock()
	if existing, ok := m.active[id]; ok {
		m.mu.Unlock()
		f.Close()
		return existing, nil
	}
	m.active[id] = at
	m.mu.Unlock()
	return at, nil
}

func (m *Manager) sendMeta(st domain.TransferState) error {
	body, err := json.Marshal(Meta{
		ID:        st.ID,
		Name:      st.Name,
		Size:      st.Size,
		ChunkSize: st.ChunkSize,
		SHA256:    st.SHA256,
	})
	if err != nil {
		return err
	}
	return m.cfg.Out.Send(domain.FrameFileMeta, body)
}

func (m *Manager) maybeCompleteSender(at *activeTransfer) error {
	at.mu.Lock()
	if !at.state.Complete() || at.state.Status == domain.TransferCompleted {
		at.mu.Unlock()
		return nil
	}
	at.state.Status = domain.TransferCompleted
	if at.file != nil {
		at.file.Close()
		at.file = nil
	}
	st := at.state
	at.mu.Unlock()

	if err := m.persist(at); err != nil {
		return err
	}
	m.notify(st)
	return nil
}

func (m *Manager) completeReceiver(at *activeTransfer) error {
	at.mu.Lock()
	f := at.file
	want := at.state.SHA256
	at.mu.Unlock()
	if f == nil {
		// PauseAll got here first; the transfer stays Paused and a
		// later resume re-runs the verification.
		return nil
	}

	sum, err := hashFile(f)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			return nil
		}
		m.fail(at, fmt.Errorf("hash destination: %w", err))
		return err
	}
	if len(want) > 0 && !bytes.Equal(sum, want) {
		err := fmt.Errorf("transfer: destination hash mismatch")
		m.fail(at, err)
		return err
	}

	at.mu.Lock()
	at.state.Status = domain.TransferCompleted
	if at.file != nil {
		at.file.Close()
		at.file = nil
	}
	st := at.state
	at.mu.Unlock()

	if err := m.persist(at); err != nil {
		return err
	}
	m.notify(st)
	return nil
}

// fail marks one transfer Failed. The session stays up; only this transfer
// is lost.
func (m *Manager) fail(at *activeTransfer, cause error) {
	at.mu.Lock()
	at.state.Status = domain.TransferFailed
	if at.file != nil {
		at.file.Close()
		at.file = nil
	}
	st := at.state
	at.mu.Unlock()

	m.cfg.Logger.Printf("transfer %s failed: %v", st.ID, cause)
	if err := m.persist(at); err != nil {
		m.cfg.Logger.Printf("transfer %s: persist failure state: %v", st.ID, err)
	}
	m.notify(st)
}

func (m *Manager) persist(at *activeTransfer) error {
	at.mu.Lock()
	st := at.state
	at.mu.Unlock()
	return m.cfg.Store.SaveTransfer(st)
}

func (m *Manager) notify(st domain.TransferState) {
	if m.cfg.Notify != nil {
		m.cfg.Notify(st)
	}
}

func hashFile(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
