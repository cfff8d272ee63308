// Package config loads the daemon configuration from TOML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config drives the reactord daemon: where the firmware bridge listens and
// where the HTTP API is served.
type Config struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	BridgeAddr  string   `toml:"bridge_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	EventBuffer int      `toml:"event_buffer"`
	NamesFile   string   `toml:"names_file"`
	APIToken    string   `toml:"api_token"`
}

// Load reads path, applies defaults for unset fields, and validates.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "reactord"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9500"
	}
	if cfg.BridgeAddr == "" {
		cfg.BridgeAddr = "127.0.0.1:7777"
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 4096
	}
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if strings.TrimSpace(cfg.BridgeAddr) == "" {
		return fmt.Errorf("config missing bridge_addr")
	}
	if cfg.EventBuffer < 0 {
		return fmt.Errorf("config event_buffer must be positive")
	}
	return nil
}
