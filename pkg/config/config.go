// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the YAML configuration surface: agent endpoint,
// registry, transport retry policy, auth, and logging. Values support
// environment variable expansion (${VAR}, ${VAR:-default}, $VAR).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration, loaded from a single YAML file.
type Config struct {
	Version     string `yaml:"version,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	Server    ServerConfig    `yaml:"server,omitempty"`
	Registry  RegistryConfig  `yaml:"registry,omitempty"`
	Transport TransportConfig `yaml:"transport,omitempty"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig is the agent's inbound HTTP endpoint.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Address returns the host:port listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RegistryConfig configures discovery: either the URL of a remote registry
// to join, or the listen address when running a registry server.
type RegistryConfig struct {
	URL               string   `yaml:"url,omitempty"`
	Listen            string   `yaml:"listen,omitempty"`
	TTL               Duration `yaml:"ttl,omitempty"`
	SweepInterval     Duration `yaml:"sweep_interval,omitempty"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval,omitempty"`
}

// TransportConfig configures the HTTP transport's retry and timeout
// behavior.
type TransportConfig struct {
	RetryAttempts  int       `yaml:"retry_attempts,omitempty"`
	RetryBaseDelay Duration  `yaml:"retry_base_delay,omitempty"`
	RetryMaxDelay  Duration  `yaml:"retry_max_delay,omitempty"`
	Timeout        Duration  `yaml:"timeout,omitempty"`
	TLS            TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig configures outbound HTTPS connections. An empty block uses
// the system trust store with full verification.
type TLSConfig struct {
	CACert             string `yaml:"ca_cert,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
}

// Enabled reports whether any TLS setting deviates from the defaults.
func (c *TLSConfig) Enabled() bool {
	return c.CACert != "" || c.InsecureSkipVerify
}

// AuthConfig configures JWT validation for inbound calls. Auth is opt-in:
// an empty jwks_url disables the gate.
type AuthConfig struct {
	JWKSURL  string `yaml:"jwks_url,omitempty"`
	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`
}

// Enabled reports whether an auth provider should be constructed.
func (c AuthConfig) Enabled() bool {
	return c.JWKSURL != ""
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // simple, verbose, json
}

// SetDefaults fills unset fields with working defaults.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Registry.TTL == 0 {
		c.Registry.TTL = Duration(60 * time.Second)
	}
	if c.Registry.SweepInterval == 0 {
		c.Registry.SweepInterval = c.Registry.TTL / 2
	}
	if c.Registry.HeartbeatInterval == 0 {
		c.Registry.HeartbeatInterval = c.Registry.TTL / 3
	}
	if c.Transport.RetryAttempts == 0 {
		c.Transport.RetryAttempts = 3
	}
	if c.Transport.RetryBaseDelay == 0 {
		c.Transport.RetryBaseDelay = Duration(500 * time.Millisecond)
	}
	if c.Transport.RetryMaxDelay == 0 {
		c.Transport.RetryMaxDelay = Duration(30 * time.Second)
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = Duration(60 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Transport.RetryAttempts < 1 {
		return fmt.Errorf("transport retry_attempts must be at least 1, got %d", c.Transport.RetryAttempts)
	}
	if c.Registry.TTL < 0 {
		return fmt.Errorf("registry ttl must not be negative")
	}
	if c.Registry.SweepInterval < 0 {
		return fmt.Errorf("registry sweep_interval must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "simple", "verbose", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if !c.Auth.Enabled() && (c.Auth.Issuer != "" || c.Auth.Audience != "") {
		return fmt.Errorf("auth issuer/audience set without jwks_url")
	}
	return nil
}

// Load reads, expands, and validates a configuration file. Environment
// variables referenced in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated Config from raw YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}
