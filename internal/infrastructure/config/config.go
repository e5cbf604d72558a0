package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Browser   BrowserConfig   `toml:"browser"`
	Skills    SkillsConfig    `toml:"skills"`
	Factory   FactoryConfig   `toml:"factory"`
	Exec      ExecConfig      `toml:"exec"`
	TEE       TEEConfig       `toml:"tee"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string `envconfig:"HOST" toml:"host"`
	Port            string `envconfig:"PORT" toml:"port"`
	MaxConnections  int    `envconfig:"MAX_CONNECTIONS" toml:"max_connections"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout"`
}

// SandboxConfig describes the environment the sandbox runs in.
type SandboxConfig struct {
	Workspace string `envconfig:"WORKSPACE" toml:"workspace"`
	Display   string `envconfig:"DISPLAY" toml:"display"`
	CDPPort   int    `envconfig:"CDP_PORT" toml:"cdp_port"`
	VNCPort   int    `envconfig:"VNC_PORT" toml:"vnc_port"`
}

// BrowserConfig holds browser engine settings.
type BrowserConfig struct {
	Headless       bool   `envconfig:"BROWSER_HEADLESS" toml:"headless"`
	Executable     string `envconfig:"BROWSER_EXECUTABLE" toml:"executable"`
	ViewportWidth  int    `envconfig:"BROWSER_VIEWPORT_WIDTH" toml:"viewport_width"`
	ViewportHeight int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" toml:"viewport_height"`
	Timeout        int    `envconfig:"BROWSER_TIMEOUT" toml:"timeout"` // seconds
}

// SkillsConfig holds skill store settings.
type SkillsConfig struct {
	Dir string `envconfig:"SKILLS_DIR" toml:"dir"`
}

// FactoryConfig holds skill factory session settings, in seconds.
type FactoryConfig struct {
	SessionTTL    int `envconfig:"FACTORY_SESSION_TTL" toml:"session_ttl"`
	SweepInterval int `envconfig:"FACTORY_SWEEP_INTERVAL" toml:"sweep_interval"`
}

// ExecConfig holds process execution limits, in seconds.
type ExecConfig struct {
	DefaultTimeout int    `envconfig:"EXEC_DEFAULT_TIMEOUT" toml:"default_timeout"`
	MaxTimeout     int    `envconfig:"EXEC_MAX_TIMEOUT" toml:"max_timeout"`
	TempDir        string `envconfig:"EXEC_TEMP_DIR" toml:"temp_dir"`
}

// TEEConfig holds the attestation capability settings.
type TEEConfig struct {
	Enabled  bool   `envconfig:"TEE_ENABLED" toml:"enabled"`
	Endpoint string `envconfig:"TEE_ENDPOINT" toml:"endpoint"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Load builds configuration from defaults, an optional TOML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 10,
		},
		Sandbox: SandboxConfig{
			Workspace: paths.DefaultWorkspace,
			Display:   ":99",
			CDPPort:   9222,
			VNCPort:   5900,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Timeout:        30,
		},
		Factory: FactoryConfig{
			SessionTTL:    3600,
			SweepInterval: 300,
		},
		Exec: ExecConfig{
			DefaultTimeout: 30,
			MaxTimeout:     600,
		},
		TEE: TEEConfig{
			Endpoint: "/var/run/dstack.sock",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
	cfg.resolve()
	return cfg
}

// mergeFile overlays values present in a TOML file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// resolve fills values derived from other settings.
func (c *Config) resolve() {
	if c.Skills.Dir == "" || c.Skills.Dir == filepath.Join(paths.DefaultWorkspace, paths.SkillsDirName) {
		c.Skills.Dir = paths.NewWorkspace(c.Sandbox.Workspace).SkillsDir()
	}
	if c.Exec.TempDir == "" {
		c.Exec.TempDir = os.TempDir()
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("invalid config: port is required")
	case c.Sandbox.Workspace == "":
		return fmt.Errorf("invalid config: workspace is required")
	case c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0:
		return fmt.Errorf("invalid config: browser viewport must be positive")
	case c.Browser.Timeout <= 0:
		return fmt.Errorf("invalid config: browser timeout must be positive")
	case c.Exec.DefaultTimeout <= 0 || c.Exec.MaxTimeout <= 0:
		return fmt.Errorf("invalid config: exec timeouts must be positive")
	case c.Exec.DefaultTimeout > c.Exec.MaxTimeout:
		return fmt.Errorf("invalid config: exec default timeout exceeds max timeout")
	case c.Factory.SessionTTL <= 0:
		return fmt.Errorf("invalid config: factory session ttl must be positive")
	case c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0:
		return fmt.Errorf("invalid config: rate limit rps must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// BrowserTimeout returns the browser action timeout.
func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.Timeout) * time.Second
}

// SessionTTL returns the factory session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Factory.SessionTTL) * time.Second
}

// SweepInterval returns how often expired factory sessions are removed.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Factory.SweepInterval) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}
