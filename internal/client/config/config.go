package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/timex"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "CTXVAULT_"

// Config holds runtime settings for ctxcli.
type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 30 * time.Second
}

// FileConfig is the on-disk shape; durations accept "30s" or nanoseconds.
type FileConfig struct {
	ServerURL string         `json:"server_url" yaml:"server_url"`
	Token     string         `json:"token" yaml:"token"`
	Timeout   timex.Duration `json:"timeout" yaml:"timeout"`
}

// Load applies defaults, then path (when not empty), then the environment
// read through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.Token != "" {
		cfg.Token = fc.Token
	}
	if fc.Timeout.Duration > 0 {
		cfg.Timeout = fc.Timeout.Duration
	}
	return nil
}

func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "SERVER_URL"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := lookup(EnvPrefix + "TOKEN"); ok && v != "" {
		cfg.Token = v
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Timeout = d
	}
	return nil
}
