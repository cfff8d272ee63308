package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// cliConfig holds rctl's defaults. Flags override the config file, the
// config file overrides the built-ins.
type cliConfig struct {
	Host      string
	Format    string
	NamesFile string
	Token     string
}

type fileConfig struct {
	Host      string `toml:"host"`
	Format    string `toml:"format"`
	NamesFile string `toml:"names_file"`
	Token     string `toml:"token"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Host:   "http://127.0.0.1:9500",
		Format: "text",
	}
}

// loadCLIConfig overlays the file at path onto the defaults. Only keys
// actually present in the file override; a missing file is not an error when
// it is the implicit default path.
func loadCLIConfig(path string, implicit bool) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if implicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cliConfig{}, fmt.Errorf("load rctl config: %w", err)
	}

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Host = host
		}
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("names_file") {
		cfg.NamesFile = strings.TrimSpace(raw.NamesFile)
	}
	if meta.IsDefined("token") {
		cfg.Token = strings.TrimSpace(raw.Token)
	}
	return cfg, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "rctl", "config.toml")
}
