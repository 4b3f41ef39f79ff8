package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// trust add <name> <x25519-b64> <ed25519-b64> / trust list
func trustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage trusted peers",
	}

	add := &cobra.Command{
		Use:   "add <name> <x25519-b64> <ed25519-b64>",
		Short: "Record a peer's public keys under a display name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := appCtx.Trust.AddPeer(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("trusted %s (%s)\n", p.Name, p.Fingerprint)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List trusted peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := appCtx.Trust.ListPeers()
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Println("no trusted peers")
				return nil
			}
			for _, p := range peers {
				fmt.Printf("%-20s %s\n", p.Name, p.Fingerprint)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
