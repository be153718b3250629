package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ClaudeRoot       string `toml:"claude_root"`
	DBPath           string `toml:"db_path"`
	PageSize         int    `toml:"page_size"`
	ExcludeSidechain bool   `toml:"exclude_sidechain"`
	ListenAddr       string `toml:"listen_addr"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ClaudeRoot: filepath.Join(home, ".claude", "projects"),
		DBPath:     filepath.Join(home, ".config", "cchv", "cchv.db"),
		PageSize:   20,
		ListenAddr: "127.0.0.1:8420",
	}

	cfgPath := filepath.Join(home, ".config", "cchv", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	// expand ~ in paths
	cfg.ClaudeRoot = expandHome(cfg.ClaudeRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
