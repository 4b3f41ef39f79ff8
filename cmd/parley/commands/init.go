package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// init: generate and store a new identity.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a new identity key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			_, fp, err := appCtx.Identity.GenerateIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Println("identity created")
			fmt.Println("fingerprint:", fp)
			return nil
		},
	}
}
