package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the optional kata-audit.yaml file. Flags override it, and
// environment variables override the file.
type Config struct {
	Backend  string            `yaml:"backend"`
	Settings map[string]string `yaml:"settings"`
	// Delay between requests in seconds. Nil means the flag default.
	Delay    *float64 `yaml:"delay"`
	LogLevel string   `yaml:"log_level"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if cfg.Settings == nil {
		cfg.Settings = make(map[string]string)
	}
	if cfg.Backend == "" {
		cfg.Backend = "codewars"
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("KATA_AUDIT_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("KATA_AUDIT_BASE_URL"); v != "" {
		c.Settings["base_url"] = v
	}
	if v := os.Getenv("KATA_AUDIT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KATA_AUDIT_DELAY"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("KATA_AUDIT_DELAY: %w", err)
		}
		c.Delay = &d
	}
	return nil
}
