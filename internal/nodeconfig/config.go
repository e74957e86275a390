// Copyright (C) 2025 veilnet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package nodeconfig loads node configuration, restated from the teacher's
// config package (YAML-then-JSON fallback, default filling, env overrides)
// around the node config shape this node actually needs.
package nodeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapPeer names one configured introducer this node may dial at
// startup.
type BootstrapPeer struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	PubKey string `yaml:"pubkey" json:"pubkey"`
}

// PresenceConfig tunes the heartbeat/sweep liveness loop.
type PresenceConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	StaleAfter        time.Duration `yaml:"stale_after" json:"stale_after"`
}

// PendingConfig bounds per-user mailbox depth.
type PendingConfig struct {
	MaxQueueLen int `yaml:"max_queue_len" json:"max_queue_len"`
}

// PublicChannelConfig bounds the public channel's history ring buffers.
type PublicChannelConfig struct {
	RingSize int `yaml:"ring_size" json:"ring_size"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// Config is the root node configuration, matching SPEC_FULL.md §6.3.
type Config struct {
	SkipBootstrap    bool                `yaml:"skip_bootstrap" json:"skip_bootstrap"`
	Host             string              `yaml:"host" json:"host"`
	Port             int                 `yaml:"port" json:"port"`
	BootstrapServers []BootstrapPeer     `yaml:"bootstrap_servers" json:"bootstrap_servers"`
	Presence         PresenceConfig      `yaml:"presence" json:"presence"`
	Pending          PendingConfig       `yaml:"pending" json:"pending"`
	PublicChannel    PublicChannelConfig `yaml:"public_channel" json:"public_channel"`
	Logging          LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics          MetricsConfig       `yaml:"metrics" json:"metrics"`
}

// Default returns a Config with every field set to its documented default.
func Default() *Config {
	return &Config{
		SkipBootstrap: false,
		Host:          "0.0.0.0",
		Port:          8080,
		Presence: PresenceConfig{
			HeartbeatInterval: 15 * time.Second,
			StaleAfter:        45 * time.Second,
		},
		Pending: PendingConfig{
			MaxQueueLen: 256,
		},
		PublicChannel: PublicChannelConfig{
			RingSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// LoadFromFile loads configuration from path, trying YAML first and falling
// back to JSON, then layering defaults over anything left zero-valued.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nodeconfig: read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("nodeconfig: parse config file (tried YAML and JSON): %w", err)
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Host == "" {
		cfg.Host = d.Host
	}
	if cfg.Port == 0 {
		cfg.Port = d.Port
	}
	if cfg.Presence.HeartbeatInterval == 0 {
		cfg.Presence.HeartbeatInterval = d.Presence.HeartbeatInterval
	}
	if cfg.Presence.StaleAfter == 0 {
		cfg.Presence.StaleAfter = d.Presence.StaleAfter
	}
	if cfg.Pending.MaxQueueLen == 0 {
		cfg.Pending.MaxQueueLen = d.Pending.MaxQueueLen
	}
	if cfg.PublicChannel.RingSize == 0 {
		cfg.PublicChannel.RingSize = d.PublicChannel.RingSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = d.Metrics.Port
	}
}
