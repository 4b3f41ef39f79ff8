package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
)

// Config holds runtime wiring options for building the app.
// File values come from <home>/parley.toml; flags override them.
type Config struct {
	Home string `toml:"-"` // config directory, e.g. $HOME/.parley

	ListenAddr  string `toml:"listen_addr"`
	DownloadDir string `toml:"download_dir"`
	ChunkSize   int64  `toml:"chunk_size"`
	QueueDepth  int    `toml:"queue_depth"`

	HandshakeTimeoutSec int `toml:"handshake_timeout_sec"`
	CloseTimeoutSec     int `toml:"close_timeout_sec"`
	IdleTimeoutSec      int `toml:"idle_timeout_sec"`
	DialTimeoutSec      int `toml:"dial_timeout_sec"`
}

const configFile = "parley.toml"

// DefaultConfig returns the baseline configuration for a home directory.
func DefaultConfig(home string) Config {
	return Config{
		Home:                home,
		ListenAddr:          ":7465",
		DownloadDir:         filepath.Join(home, "downloads"),
		ChunkSize:           1 << 20,
		QueueDepth:          64,
		HandshakeTimeoutSec: 10,
		CloseTimeoutSec:     5,
		IdleTimeoutSec:      300,
		DialTimeoutSec:      10,
	}
}

// LoadConfig merges <home>/parley.toml over the defaults. A missing file
// is not an error.
func LoadConfig(home string) (Config, error) {
	return LoadConfigFile(home, "")
}

// LoadConfigFile merges the TOML file at path over the defaults for home.
// An empty path means <home>/parley.toml, which may be absent; a path
// given explicitly must exist.
func LoadConfigFile(home, path string) (Config, error) {
	cfg := DefaultConfig(home)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(home, configFile)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSec) * time.Second
}
func (c Config) CloseTimeout() time.Duration {
	return time.Duration(c.CloseTimeoutSec) * time.Second
}
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}
func (c Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSec) * time.Second
}
