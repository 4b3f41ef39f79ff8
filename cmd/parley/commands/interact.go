package commands

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"parley/internal/app"
	"parley/internal/domain"
	"parley/internal/session"
)

// sessionConfig builds the common session wiring for listen and dial.
func sessionConfig(w *app.Wire, id domain.Identity) session.Config {
	return session.Config{
		Identity: id,
		Sink: func(m domain.Message) {
			fmt.Printf("[%s] %s\n", m.From, m.Plaintext)
		},
		Transfers:   w.Transfers,
		DownloadDir: w.Config.DownloadDir,
		ChunkSize:   w.Config.ChunkSize,
		Notify: func(st domain.TransferState) {
			fmt.Printf("(transfer %s %q: %s)\n", shortID(st.ID), st.Name, st.Status)
		},
		QueueDepth:       w.Config.QueueDepth,
		HandshakeTimeout: w.Config.HandshakeTimeout(),
		CloseTimeout:     w.Config.CloseTimeout(),
		IdleTimeout:      w.Config.IdleTimeout(),
		Logger:           log.New(os.Stderr, "parley: ", log.LstdFlags),
	}
}

// interact runs the stdin chat loop until /quit, EOF, or session end.
func interact(s *session.Session) error {
	fmt.Printf("connected to %s (%s)\n", s.Peer().Name, s.Peer().Fingerprint)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-s.Done():
			if err := s.Err(); err != nil {
				return err
			}
			fmt.Println("session closed")
			return nil
		case line, ok := <-lines:
			if !ok {
				return s.Close()
			}
			if err := handleLine(s, line); err != nil {
				if err == errQuit {
					return s.Close()
				}
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleLine(s *session.Session, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case strings.HasPrefix(line, "/send "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/send "))
		st, err := s.SendFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("(sending %q as transfer %s)\n", st.Name, shortID(st.ID))
		return nil
	case strings.HasPrefix(line, "/resume "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/resume "))
		st, err := s.ResumeTransfer(id)
		if err != nil {
			return err
		}
		fmt.Printf("(resuming %q, %d chunks left)\n", st.Name, len(st.Pending()))
		return nil
	case strings.HasPrefix(line, "/"):
		return fmt.Errorf("unknown command %q", strings.Fields(line)[0])
	default:
		return s.SendChat(line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
