package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/session"
	"parley/internal/transport"
)

// listen: accept one inbound session and chat over it.
func listenCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for a trusted peer to connect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			id, err := appCtx.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = appCtx.Config.ListenAddr
			}

			ln, err := transport.Listen(addr)
			if err != nil {
				return err
			}
			defer ln.Close()
			fmt.Println("listening on", ln.Addr())

			conn, err := ln.Accept(context.Background())
			if err != nil {
				return err
			}

			cfg := sessionConfig(appCtx, id)
			cfg.Lookup = appCtx.Trust.Lookup
			s, err := session.Respond(conn, cfg)
			if err != nil {
				return err
			}
			return interact(s)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
