// Package transport establishes the raw duplex byte streams a peer session
// runs over. No encryption happens here: the connection may already ride an
// SSH forward or VPN interface, and message-level encryption is applied by
// internal/protocol/secure regardless.
package transport

import (
	"context"
	"errors"
	"net"
	"time"
)

var (
	// ErrUnreachable means the dial failed to reach the address.
	// Recoverable; callers may retry with backoff.
	ErrUnreachable = errors.New("transport: peer unreachable")
	// ErrTimedOut means the dial exceeded its deadline.
	ErrTimedOut = errors.New("transport: dial timed out")
)

// Listener produces inbound raw connections. Restart by calling Listen
// again; a closed listener stays closed.
type Listener struct {
	ln net.Listener
}

// Listen binds addr (TCP).
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Accept waits for the next inbound connection. Cancelling ctx closes the
// listener and unblocks the wait.
func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.ln.Close()
		case <-done:
		}
	}()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

// Close releases the listening socket.
func (l *Listener) Close() error { return l.ln.Close() }

// Dial connects to addr within timeout, mapping network failures onto the
// recoverable error pair callers retry on.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, errors.Join(ErrTimedOut, err)
		}
		return nil, errors.Join(ErrUnreachable, err)
	}
	return conn, nil
}
