package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	home       string
	configPath string
	passphrase string
	appCtx     *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "Peer-to-peer encrypted messaging and file transfer",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".parley")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			cfg, err := app.LoadConfigFile(home, configPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DownloadDir, 0o700); err != nil {
				return err
			}
			appCtx = app.NewWire(cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.parley)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/parley.toml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity keys")

	root.AddCommand(initCmd(), fingerprintCmd(), trustCmd(), listenCmd(), dialCmd(), sendCmd(), transfersCmd())
	return root.Execute()
}
