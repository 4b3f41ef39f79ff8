package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/session"
	"parley/internal/transport"
)

// dial: connect to a trusted peer and chat over the session.
func dialCmd() *cobra.Command {
	var addr, peerName string
	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Connect to a trusted peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
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

			cfg := sessionConfig(appCtx, id)
			cfg.Peer = &peer
			s, err := session.Initiate(conn, cfg)
			if err != nil {
				return err
			}
			return interact(s)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "peer address, host:port")
	cmd.Flags().StringVar(&peerName, "peer", "", "trusted peer name")
	_ = cmd.MarkFlagRequired("addr")
	_ = cmd.MarkFlagRequired("peer")
	return cmd
}
