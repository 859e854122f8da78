// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the callscope YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/callscope/pkg/logging"
	"github.com/AleutianAI/callscope/services/scope/camera"
	"github.com/AleutianAI/callscope/services/scope/telemetry"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Graph     GraphConfig      `yaml:"graph"`
	Camera    camera.Options   `yaml:"camera"`
	Session   SessionConfig    `yaml:"session"`
	Logging   logging.Config   `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8765".
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// GraphConfig locates the graph document.
type GraphConfig struct {
	// Path is the graph document (.json, .yaml or .yml).
	Path string `yaml:"path"`

	// Watch reloads the document when it changes.
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a reload.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// WorkspaceRoot resolves relative node paths for navigation.
	WorkspaceRoot string `yaml:"workspace_root"`
}

// SessionConfig bounds session lifetime and websocket traffic.
type SessionConfig struct {
	// TTL closes sessions idle for longer than this.
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`

	// MaxSessions caps concurrently open sessions.
	MaxSessions int `yaml:"max_sessions" validate:"gt=0"`

	// AutoCenter moves the camera to off-screen selections.
	AutoCenter bool `yaml:"auto_center"`

	// EventsPerSecond and EventBurst rate-limit each websocket.
	EventsPerSecond float64 `yaml:"events_per_second" validate:"gt=0"`
	EventBurst      int     `yaml:"event_burst" validate:"gt=0"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8765",
			ShutdownTimeout: 10 * time.Second,
		},
		Graph: GraphConfig{
			Path:     "callgraph.json",
			Watch:    true,
			Debounce: 200 * time.Millisecond,
		},
		Camera: camera.DefaultOptions(),
		Session: SessionConfig{
			TTL:             30 * time.Minute,
			MaxSessions:     64,
			AutoCenter:      true,
			EventsPerSecond: 120,
			EventBurst:      240,
		},
		Logging:   logging.Config{Level: logging.LevelInfo},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads the config file at path over DefaultConfig.
//
// # Description
//
// Fields absent from the file keep their defaults. A missing file is not
// an error: the defaults are returned. An empty path also returns the
// defaults.
//
// # Outputs
//
//   - Config: The merged, validated configuration.
//   - error: Read, parse or validation failure. Validation errors wrap
//     ErrInvalidConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and the camera zoom range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Camera.Validate(); err != nil {
		return fmt.Errorf("%w: camera: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Write saves cfg as YAML, creating or truncating path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
