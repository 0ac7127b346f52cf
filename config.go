/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries the settings needed to stand up a TableCache from the
// command line or a service entry point.
type Config struct {
	Region      string `yaml:"region"`
	CacheDir    string `yaml:"cacheDir"`
	MaxParallel int    `yaml:"maxParallel"`
	BufferSize  int    `yaml:"bufferSize"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Region:      "us-east-1",
		CacheDir:    ".tablecache",
		MaxParallel: 30,
		BufferSize:  32,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path or a
// missing file yields the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.MaxParallel < 1 {
		return Config{}, fmt.Errorf("config %q: maxParallel must be at least 1", path)
	}
	if cfg.BufferSize < 1 {
		return Config{}, fmt.Errorf("config %q: bufferSize must be at least 1", path)
	}
	return cfg, nil
}

// Credentials holds the AWS credentials read from the environment.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// LoadCredentials pulls AWS credentials from the environment, loading a .env
// file first if one exists.
func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()

	creds := Credentials{
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return Credentials{}, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}
