package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/domain"
	"parley/internal/session"
	"parley/internal/transport"
)

// send <file>: one-shot file transfer to a trusted peer.
func sendCmd() *cobra.Command {
	var addr, peerName, resumeID string
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Send a file to a trusted peer and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if len(args) == 0 && resumeID == "" {
				return fmt.Errorf("a file argument or --resume is required")
			}
			id, err := appCtx.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			peer, err := appCtx.Trust.ResolvePeer(peerName)
			if err != nil {
				return err
			}

			conn, err := transport.Dial(context.Background(), addr, appCtx.Config.DialTimeout())
			if err != nil {
				return err
			}

			done := make(chan domain.TransferState, 1)
			cfg := sessionConfig(appCtx, id)
			cfg.Peer = &peer
			cfg.Notify = func(st domain.TransferState) {
				switch st.Status {
				case domain.TransferCompleted, domain.TransferFailed, domain.TransferPaused:
					select {
					case done <- st:
					default:
					}
				}
			}
			s, err := session.Initiate(conn, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			var st domain.TransferState
			if resumeID != "" {
				st, err = s.ResumeTransfer(resumeID)
			} else {
				st, err = s.SendFile(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("transfer %s: %q (%d bytes)\n", st.ID, st.Name, st.Size)

			select {
			case final := <-done:
				switch final.Status {
				case domain.TransferCompleted:
					fmt.Println("completed")
					return nil
				case domain.TransferPaused:
					return fmt.Errorf("transfer paused; resume with --resume %s", final.ID)
				default:
					return fmt.Errorf("transfer failed")
				}
			case <-s.Done():
				if err := s.Err(); err != nil {
					return err
				}
				return fmt.Errorf("session closed before transfer finished; resume with --resume %s", st.ID)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "peer address, host:port")
	cmd.Flags().StringVar(&peerName, "peer", "", "trusted peer name")
	cmd.Flags().StringVar(&resumeID, "resume", "", "resume a paused transfer by id")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("peer")
	return cmd
}
