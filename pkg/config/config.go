// Package config loads the bridge configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/version"
)

// Defaults.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 6076
	DefaultClientName    = "Unity"
	DefaultClientVersion = version.Current
)

// SafetyPattern is one extra deny pattern added to the safety gate.
type SafetyPattern struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`
}

// Config is the bridge configuration.
type Config struct {
	// Endpoint of the agent server.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Client identity reported in the handshake.
	ClientName    string `yaml:"client_name"`
	ClientVersion string `yaml:"client_version"`

	// Connection behavior.
	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	AutoReconnect       bool          `yaml:"auto_reconnect"`

	// Discover the agent server via mDNS when no host is configured.
	Discover bool `yaml:"discover"`

	// AssetRoot is the project directory the file store is rooted under.
	AssetRoot string `yaml:"asset_root"`

	// LogFile mirrors the log buffer to disk. Empty selects the
	// per-platform default location.
	LogFile string `yaml:"log_file"`

	// SafetyPatterns are extra deny patterns for the safety gate.
	SafetyPatterns []SafetyPattern `yaml:"safety_patterns"`

	// SandboxTimeout bounds one snippet execution.
	SandboxTimeout time.Duration `yaml:"sandbox_timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		ClientName:          DefaultClientName,
		ClientVersion:       DefaultClientVersion,
		ConnectTimeout:      8 * time.Second,
		HealthCheckInterval: 5 * time.Second,
		AssetRoot:           ".",
		LogFile:             logring.DefaultMirrorPath(),
		SandboxTimeout:      10 * time.Second,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Host == "" && !c.Discover {
		return fmt.Errorf("host is empty and discovery is disabled")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive")
	}
	if c.SandboxTimeout <= 0 {
		return fmt.Errorf("sandbox_timeout must be positive")
	}
	return nil
}

// Address returns the endpoint as host:port.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
