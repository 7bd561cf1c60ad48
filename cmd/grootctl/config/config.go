// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads grootctl's configuration.
//
// Sources, later ones winning:
//
//  1. ~/.groot/grootctl.yaml, created with defaults on first run
//  2. a .env file, which only fills variables not already set
//  3. GROOT_* environment variables
//  4. command-line flags, applied by the caller
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// Config is the grootctl configuration file.
type Config struct {
	Groot     GrootConfig      `yaml:"groot" validate:"required"`
	Loader    LoaderConfig     `yaml:"loader"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// GrootConfig addresses the store.
type GrootConfig struct {
	// Addr is the gRPC target of the frontend.
	Addr string `yaml:"addr" validate:"required"`

	// Gremlin is the traversal endpoint. Empty disables the gremlin command.
	Gremlin string `yaml:"gremlin,omitempty"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Timeout bounds every command except load.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// FlushTimeout is the default wait of the flush command.
	FlushTimeout time.Duration `yaml:"flush_timeout" validate:"gte=0"`

	// ConnectTimeout makes commands fail fast when the store is down.
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`
}

// LoaderConfig holds defaults for the load command.
type LoaderConfig struct {
	BatchSize     int     `yaml:"batch_size" validate:"gte=1"`
	Rate          float64 `yaml:"rate" validate:"gte=0"`
	CheckpointDir string  `yaml:"checkpoint_dir"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	tel := telemetry.DefaultConfig()
	tel.ServiceName = "grootctl"
	return Config{
		Groot: GrootConfig{
			Addr:         "localhost:55556",
			Timeout:      30 * time.Second,
			FlushTimeout: 3 * time.Second,
		},
		Loader: LoaderConfig{
			BatchSize:     500,
			CheckpointDir: "~/.groot/checkpoints",
		},
		Logging:   LoggingConfig{Level: "info"},
		Telemetry: tel,
	}
}

// DefaultPath returns ~/.groot/grootctl.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".groot", "grootctl.yaml"), nil
}

// Load reads the configuration.
//
// Description:
//
//	Reads path, creating it with DefaultConfig first if it does not exist.
//	An empty path means DefaultPath. envFile, if it exists, is loaded into
//	the process environment without overriding variables already set; an
//	empty envFile means ".env". GROOT_* variables are applied last and the
//	result is validated.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil if a file cannot be read or parsed, or validation fails.
func Load(path, envFile string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// applyEnv overlays GROOT_* variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"GROOT_ADDR":      &cfg.Groot.Addr,
		"GROOT_GREMLIN":   &cfg.Groot.Gremlin,
		"GROOT_USERNAME":  &cfg.Groot.Username,
		"GROOT_PASSWORD":  &cfg.Groot.Password,
		"GROOT_LOG_LEVEL": &cfg.Logging.Level,
		"GROOT_LOG_DIR":   &cfg.Logging.Dir,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"GROOT_TIMEOUT":         &cfg.Groot.Timeout,
		"GROOT_FLUSH_TIMEOUT":   &cfg.Groot.FlushTimeout,
		"GROOT_CONNECT_TIMEOUT": &cfg.Groot.ConnectTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv("GROOT_BATCH_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GROOT_BATCH_SIZE: %w", err)
		}
		cfg.Loader.BatchSize = n
	}
	return nil
}
