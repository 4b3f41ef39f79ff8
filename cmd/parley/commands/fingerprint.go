package commands

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"parley/internal/crypto"
)

// fingerprint: show the local identity fingerprint and public keys for
// out-of-band exchange.
func fingerprintCmd() *cobra.Command {
	var showQR bool
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Show the local fingerprint and shareable public keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			id, err := appCtx.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			fp := crypto.Fingerprint(id.XPub.Slice())
			fmt.Println("fingerprint:", fp)
			fmt.Println("x25519:", crypto.B64(id.XPub.Slice()))
			fmt.Println("ed25519:", crypto.B64(id.EdPub.Slice()))
			if showQR {
				// Scannable form for verifying the fingerprint in person.
				qrterminal.GenerateHalfBlock(fp, qrterminal.L, os.Stdout)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showQR, "qr", false, "render the fingerprint as a terminal QR code")
	return cmd
}
