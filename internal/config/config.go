// Package config loads the daemon's TOML configuration file, following
// the teacher's own pattern: build defaults first, then decode over
// them, then reject any unrecognised key so typos fail loudly instead
// of being silently ignored.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the top-level daemon configuration.
type Config struct {
	ServerName string `toml:"server_name"`
	MOTDPath   string `toml:"motd_path"`

	Listen struct {
		Addrs    []string `toml:"addrs"`
		TLSAddrs []string `toml:"tls_addrs"`
		CertFile string   `toml:"tls_cert_file"`
		KeyFile  string   `toml:"tls_key_file"`
	} `toml:"listen"`

	Limits struct {
		QueueCapacity       int `toml:"queue_capacity"`
		ReassemblerCapacity int `toml:"reassembler_capacity"`
	} `toml:"limits"`

	LogLevel string `toml:"log_level"`
}

// Defaults returns a Config with every field set to a usable value, so
// a daemon started without -config still runs.
func Defaults() *Config {
	cfg := &Config{
		ServerName: "scandicd",
		LogLevel:   "info",
	}
	cfg.Listen.Addrs = []string{":6667"}
	cfg.Limits.QueueCapacity = 64
	cfg.Limits.ReassemblerCapacity = 512
	return cfg
}

// Load reads and decodes path over Defaults(). An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	for _, k := range meta.Undecoded() {
		return nil, fmt.Errorf("config: unknown key: %v", k)
	}

	if len(cfg.Listen.TLSAddrs) > 0 && (cfg.Listen.CertFile == "" || cfg.Listen.KeyFile == "") {
		return nil, fmt.Errorf("config: tls_addrs configured without tls_cert_file/tls_key_file")
	}

	return cfg, nil
}
