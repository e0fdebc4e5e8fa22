// Package config loads and persists client configuration.
//
// Configuration is a single JSON file in the data directory; a .env file in
// the working directory and process environment variables override it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL  = "http://localhost:8000"
	DefaultModel    = "gpt-3.5-turbo"
	configFilename  = "config.json"
	defaultDirName  = ".waddle"
	defaultLogName  = "waddle.log"
	defaultTemp     = 0.7
	defaultMaxOut   = int64(1024)
	EnvBaseURL      = "WADDLEAI_URL"
	EnvAPIKey       = "WADDLEAI_API_KEY"
	EnvDefaultModel = "WADDLEAI_MODEL"
	EnvDebug        = "WADDLEAI_DEBUG"
)

type Config struct {
	BaseURL          string  `json:"base_url"`
	DefaultModel     string  `json:"default_model"`
	MemoryEnabled    bool    `json:"memory_enabled"`
	SecurityScanning bool    `json:"security_scanning"`
	MaxOutputTokens  int64   `json:"max_output_tokens"`
	Temperature      float64 `json:"temperature"`
	Debug            bool    `json:"debug"`

	dataDir string
}

func defaults() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		DefaultModel:     DefaultModel,
		MemoryEnabled:    true,
		SecurityScanning: true,
		MaxOutputTokens:  defaultMaxOut,
		Temperature:      defaultTemp,
	}
}

// Load reads the config file from dataDir (created if missing) and applies
// environment overrides. An empty dataDir selects ~/.waddle.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		dataDir = filepath.Join(home, defaultDirName)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := defaults()
	cfg.dataDir = dataDir

	path := filepath.Join(dataDir, configFilename)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvDefaultModel); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Save writes the config back to its data directory.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(c.dataDir, configFilename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DataDir returns the directory holding config, state and secrets.
func (c *Config) DataDir() string { return c.dataDir }

// LogFile returns the path for the rotated log file.
func (c *Config) LogFile() string { return filepath.Join(c.dataDir, defaultLogName) }
