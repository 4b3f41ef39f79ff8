package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"parley/internal/domain"
	"parley/internal/protocol/frame"
	"parley/internal/protocol/secure"
	"parley/internal/transfer"
)

// State is the session lifecycle position.
type State int32

const (
	StateHandshaking State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by sends on a session that is closing or closed.
var ErrClosed = errors.New("session: closed")

const (
	defaultQueueDepth       = 64
	defaultHandshakeTimeout = 10 * time.Second
	defaultCloseTimeout     = 5 * time.Second
	defaultWriteTimeout     = 30 * time.Second
)

// Config carries everything a session needs beyond its connection.
type Config struct {
	Identity domain.Identity

	// Peer is required on the initiating side.
	Peer *domain.PeerIdentity
	// Lookup is required on the responding side to resolve the inbound
	// signing key to a trusted peer.
	Lookup secure.PeerLookup

	// Sink receives decrypted chat messages. Optional.
	Sink func(domain.Message)

	Transfers   domain.TransferStore
	DownloadDir string
	ChunkSize   int64
	// Notify observes transfer status transitions. Optional.
	Notify func(domain.TransferState)

	QueueDepth       int
	HandshakeTimeout time.Duration
	CloseTimeout     time.Duration
	// WriteTimeout bounds a single frame write on a stalled connection.
	WriteTimeout time.Duration
	// IdleTimeout, when positive, closes an established session that has
	// received nothing for this long.
	IdleTimeout time.Duration

	Logger *log.Logger
}

func (c *Config) fillDefaults() {
	if c.QueueDepth <= 0 {
		c.QueueDepth = defaultQueueDepth
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = defaultCloseTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ChunkSize <= 0 || c.ChunkSize > transfer.MaxChunkSize {
		c.ChunkSize = transfer.DefaultChunkSize
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

type outFrame struct {
	t       domain.FrameType
	payload []byte
}

// Session owns one connection, one set of session keys, and the transfers
// riding on them.
type Session struct {
	cfg  Config
	conn net.Conn
	keys *secure.Session
	peer domain.PeerIdentity
	mgr  *transfer.Manager

	outbound chan outFrame
	sendSeq  uint64 // touched only by the write loop

	state      atomic.Int32
	closing    chan struct{}
	peerClosed chan struct{}
	closed     chan struct{}
	closeOnce  sync.Once
	startOnce  sync.Once
	termOnce   sync.Once
	peerOnce   sync.Once

	errMu sync.Mutex
	err   error
}

// Initiate dials the handshake towards a known peer and returns an
// established session. cfg.Peer must be set.
func Initiate(conn net.Conn, cfg Config) (*Session, error) {
	cfg.fillDefaults()
	if cfg.Peer == nil {
		conn.Close()
		return nil, errors.New("session: initiate requires a peer identity")
	}
	if err := conn.SetDeadline(time.Now().Add(cfg.HandshakeTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	keys, err := secure.Initiate(conn, cfg.Identity, *cfg.Peer)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return establish(conn, cfg, keys, *cfg.Peer)
}

// Respond accepts the handshake on an inbound connection. cfg.Lookup must
// be set; the initiator must resolve to a trusted peer.
func Respond(conn net.Conn, cfg Config) (*Session, error) {
	cfg.fillDefaults()
	if cfg.Lookup == nil {
		conn.Close()
		return nil, errors.New("session: respond requires a peer lookup")
	}
	if err := conn.SetDeadline(time.Now().Add(cfg.HandshakeTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	keys, peer, err := secure.Respond(conn, cfg.Identity, cfg.Lookup)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return establish(conn, cfg, keys, peer)
}

func establish(conn net.Conn, cfg Config, keys *secure.Session, peer domain.PeerIdentity) (*Session, error) {
	if err := conn.SetDeadline(time.Time{}); err != nil {
		keys.Close()
		conn.Close()
		return nil, err
	}
	s := &Session{
		cfg:        cfg,
		conn:       conn,
		keys:       keys,
		peer:       peer,
		outbound:   make(chan outFrame, cfg.QueueDepth),
		closing:    make(chan struct{}),
		peerClosed: make(chan struct{}),
		closed:     make(chan struct{}),
	}
	s.mgr = transfer.NewManager(transfer.Config{
		Store:       cfg.Transfers,
		Out:         s,
		DownloadDir: cfg.DownloadDir,
		Notify:      cfg.Notify,
		Logger:      cfg.Logger,
	})
	s.state.Store(int32(StateEstablished))
	s.startOnce.Do(func() {
		go s.readLoop()
		go s.writeLoop()
	})
	return s, nil
}

// Peer returns the authenticated remote identity.
func (s *Session) Peer() domain.PeerIdentity { return s.peer }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Err reports why the session terminated; nil for a clean close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done is closed once the session reaches Closed.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Send queues one frame for the peer. Blocks when the outbound queue is
// full; fails once the session is closing or closed.
func (s *Session) Send(t domain.FrameType, payload []byte) error {
	select {
	case <-s.closing:
		return ErrClosed
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.outbound <- outFrame{t: t, payload: payload}:
		return nil
	case <-s.closing:
		return ErrClosed
	case <-s.closed:
		return ErrClosed
	}
}

// SendChat encrypts and queues one chat message.
func (s *Session) SendChat(text string) error {
	return s.Send(domain.FrameChat, []byte(text))
}

// SendFile announces path to the peer and streams its chunks in the
// background. The returned state carries the transfer id for later
// status and resume queries.
func (s *Session) SendFile(path string) (domain.TransferState, error) {
	st, err := s.mgr.Announce(path, s.cfg.ChunkSize)
	if err != nil {
		return st, err
	}
	go s.pump(st.ID)
	return st, nil
}

// ResumeTransfer revives a paused transfer in this session. For an
// outgoing transfer the pending chunks are streamed again; an incoming one
// just waits for the sender.
func (s *Session) ResumeTransfer(id string) (domain.TransferState, error) {
	st, err := s.mgr.Resume(id)
	if err != nil {
		return st, err
	}
	if st.Outgoing {
		go s.pump(id)
	}
	return st, nil
}

// Transfers exposes the transfer manager for status and pending queries.
func (s *Session) Transfers() *transfer.Manager { return s.mgr }

func (s *Session) pump(id string) {
	if err := s.mgr.SendPending(id); err != nil && !errors.Is(err, ErrClosed) {
		s.cfg.Logger.Printf("session %s: transfer %s: %v", s.peer.Name, id, err)
	}
}

// Close performs the closing handshake: flush queued frames, emit a Close
// frame, wait a bounded time for the peer's Close, then tear down.
// Always leaves the session Closed with keys wiped and transfers paused.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if State(s.state.Load()) == StateClosed {
			return
		}
		s.state.Store(int32(StateClosing))
		close(s.closing)
		select {
		case <-s.peerClosed:
		case <-s.closed:
		case <-time.After(s.cfg.CloseTimeout):
		}
		s.terminate(nil)
	})
	<-s.closed
	return nil
}

// terminate is the single teardown path: record the cause, release the
// connection, wipe keys, pause transfers.
func (s *Session) terminate(cause error) {
	s.termOnce.Do(func() {
		s.errMu.Lock()
		s.err = cause
		s.errMu.Unlock()
		s.state.Store(int32(StateClosed))
		close(s.closed)
		s.conn.Close()
		s.keys.Close()
		s.mgr.PauseAll()
	})
}

func (s *Session) readLoop() {
	for {
		if s.cfg.IdleTimeout > 0 {
			deadline := s.cfg.IdleTimeout
			if State(s.state.Load()) == StateClosing {
				deadline = s.cfg.CloseTimeout
			}
			_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
		}
		f, err := frame.ReadFrame(s.conn)
		if err != nil {
			s.handleReadError(err)
			return
		}
		pt, err := s.keys.Open(f.Type, f.Seq, f.Payload)
		if err != nil {
			if secure.IsKind(err, secure.KindSessionClosed) {
				return
			}
			// Authenticity is gone; never continue on this connection.
			if secure.IsKind(err, secure.KindAuthFailed) || secure.IsKind(err, secure.KindReplay) {
				s.cfg.Logger.Printf("security: session %s: %v", s.peer.Name, err)
			}
			s.terminate(err)
			return
		}
		s.dispatch(f, pt)
	}
}

func (s *Session) dispatch(f domain.Frame, pt []byte) {
	switch f.Type {
	case domain.FrameChat:
		if s.cfg.Sink != nil {
			s.cfg.Sink(domain.Message{
				From:        s.peer.Name,
				Plaintext:   pt,
				Seq:         f.Seq,
				ReceivedUTC: time.Now().Unix(),
			})
		}
	case domain.FrameFileMeta:
		if _, err := s.mgr.HandleMeta(pt); err != nil {
			s.cfg.Logger.Printf("session %s: file meta: %v", s.peer.Name, err)
		}
	case domain.FrameFileChunk:
		if err := s.mgr.HandleChunk(pt); err != nil && !errors.Is(err, ErrClosed) {
			s.cfg.Logger.Printf("session %s: file chunk: %v", s.peer.Name, err)
		}
	case domain.FrameAck:
		if err := s.mgr.HandleAck(pt); err != nil {
			s.cfg.Logger.Printf("session %s: ack: %v", s.peer.Name, err)
		}
	case domain.FrameClose:
		s.peerOnce.Do(func() { close(s.peerClosed) })
		if State(s.state.Load()) != StateClosing {
			go s.Close()
		}
	default:
		// Unknown frame types are ignored for forward compatibility.
	}
}

func (s *Session) handleReadError(err error) {
	if State(s.state.Load()) == StateClosed {
		return
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if State(s.state.Load()) == StateEstablished {
			// Idle session: start a clean close. The close deadline
			// bounds how long the connection lingers.
			go s.Close()
		} else {
			s.terminate(nil)
		}
		return
	}
	closing := State(s.state.Load()) == StateClosing
	select {
	case <-s.peerClosed:
		closing = true
	default:
	}
	if closing && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)) {
		s.terminate(nil)
		return
	}
	if errors.Is(err, frame.ErrFrameTooLarge) || errors.Is(err, frame.ErrMalformed) {
		s.terminate(fmt.Errorf("session %s: %w", s.peer.Name, err))
		return
	}
	s.terminate(fmt.Errorf("session %s: connection lost: %w", s.peer.Name, err))
}

func (s *Session) writeLoop() {
	for {
		select {
		case f := <-s.outbound:
			if err := s.writeFrame(f); err != nil {
				s.terminate(err)
				return
			}
		case <-s.closing:
			s.flushAndClose()
			return
		case <-s.closed:
			return
		}
	}
}

// flushAndClose drains whatever is already queued, then emits the Close
// frame.
func (s *Session) flushAndClose() {
	for {
		select {
		case f := <-s.outbound:
			if err := s.writeFrame(f); err != nil {
				s.terminate(err)
				return
			}
		default:
			if err := s.writeFrame(outFrame{t: domain.FrameClose}); err != nil {
				s.terminate(err)
			}
			return
		}
	}
}

func (s *Session) writeFrame(f outFrame) error {
	seq := s.sendSeq
	ct, err := s.keys.Seal(f.t, seq, f.payload)
	if err != nil {
		return err
	}
	s.sendSeq++
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return frame.WriteFrame(s.conn, domain.Frame{Type: f.t, Seq: seq, Payload: ct})
}

var _ transfer.Sender = (*Session)(nil)
