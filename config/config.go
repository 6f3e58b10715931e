// Package config loads the YAML configuration for a node embedding
// the wire codec: listen addresses, the node's own private key, the
// on-disk catalog location, the status API listener, and an initial
// peer seed list.
package config

import (
	_ "embed" // required for embedding the default config file
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed "Config Default.yaml"
var defaultConfig []byte

// PeerSeed is a single bootstrap peer entry: its identity and the
// addresses it may be reached at.
type PeerSeed struct {
	PeerId  string   `yaml:"PeerId"` // hex-encoded 32-byte PeerId
	Address []string `yaml:"Address"`
}

// StatusAPI configures the optional read-only introspection listener.
type StatusAPI struct {
	Listen string `yaml:"Listen"`
}

// Config is the full node configuration.
type Config struct {
	LogFile string `yaml:"LogFile"`

	Listen        []string `yaml:"Listen"`
	ListenWorkers int      `yaml:"ListenWorkers"`

	// PrivateKey is hex encoded so it can be copied and backed up
	// manually; it is the node's 32-byte Ed25519 seed / Curve25519
	// scalar, used directly by the codec for both roles.
	PrivateKey string `yaml:"PrivateKey"`

	CatalogFile string `yaml:"CatalogFile"`

	StatusAPI StatusAPI `yaml:"StatusAPI"`

	SeedList []PeerSeed `yaml:"SeedList"`
}

// Load reads the YAML configuration file at filename. A missing or
// empty file falls back to the embedded default configuration.
func Load(filename string) (cfg Config, err error) {
	var data []byte

	stats, statErr := os.Stat(filename)
	switch {
	case statErr != nil && os.IsNotExist(statErr):
		data = defaultConfig
	case statErr == nil && stats.Size() == 0:
		data = defaultConfig
	case statErr != nil:
		return Config{}, fmt.Errorf("config: stat %s: %w", filename, statErr)
	default:
		if data, err = os.ReadFile(filename); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", filename, err)
		}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return cfg, nil
}

// Save writes cfg back to filename as YAML.
func Save(filename string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

// PrivateKeyBytes decodes the hex-encoded PrivateKey field into its
// raw 32 bytes.
func (c Config) PrivateKeyBytes() ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(c.PrivateKey)
	if err != nil {
		return out, fmt.Errorf("config: decode private key: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("config: private key must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
