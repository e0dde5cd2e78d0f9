package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Sync struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"sync"`
	Session struct {
		TokenFile string `yaml:"token_file"`
	} `yaml:"session"`
	LogLevel      string `yaml:"log_level"`
	MetricsConfig struct {
		Enabled bool   `yaml:"enabled"`
		Port    int    `yaml:"port"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Load reads configuration from a yaml file, then applies environment
// overrides. A missing file is fine; defaults cover everything. A .env file
// in the working directory is loaded first, if present.
func Load(path string) (*Config, error) {
	// Best effort; most deployments set real env vars instead.
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)
	fillDefaults(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8080/api/v1"
	cfg.API.Timeout = 10 * time.Second
	cfg.Sync.Interval = 3 * time.Second
	cfg.LogLevel = "info"
	cfg.MetricsConfig.Enabled = true
	cfg.MetricsConfig.Port = 9090
	cfg.MetricsConfig.Path = "/metrics"

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg.Session.TokenFile = filepath.Join(home, ".expeditor", "session.json")
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EXPEDITOR_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("EXPEDITOR_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Interval = d
		}
	}
	if v := os.Getenv("EXPEDITOR_TOKEN_FILE"); v != "" {
		cfg.Session.TokenFile = v
	}
	if v := os.Getenv("EXPEDITOR_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.MetricsConfig.Port = p
		}
	}
}

// fillDefaults backfills zero values left by a partial yaml file.
func fillDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080/api/v1"
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = 3 * time.Second
	}
	if cfg.MetricsConfig.Port == 0 {
		cfg.MetricsConfig.Port = 9090
	}
	if cfg.MetricsConfig.Path == "" {
		cfg.MetricsConfig.Path = "/metrics"
	}
}
