package engine

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported server backends.
const (
	BackendHTTP      = "http"
	BackendWebSocket = "websocket"
	BackendMCPStdio  = "mcp-stdio"
	BackendMCPHTTP   = "mcp-http"
)

// Defaults applied to fields left empty in the configuration.
const (
	DefaultName    = "mystic"
	DefaultVersion = "0.1.0"
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 5000
	DefaultBackend = BackendHTTP
	DefaultMCPPath = "/mcp"
)

var backends = map[string]struct{}{
	BackendHTTP:      {},
	BackendWebSocket: {},
	BackendMCPStdio:  {},
	BackendMCPHTTP:   {},
}

// Config is the top-level engine configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Version   string          `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig selects and configures the backend that exposes the tools.
type ServerConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	Backend       string   `yaml:"backend"`
	InvokeTimeout string   `yaml:"invoke_timeout"` // Duration string (e.g. "30s"). Empty means no limit.
	Path          string   `yaml:"path"`           // Mount path of the mcp-http backend.
	Tools         []string `yaml:"tools"`          // Subset of tools to expose. Empty exposes all.
	MaxBody       int64    `yaml:"max_body"`       // Request body limit in bytes for the http backend.
}

// LoggingConfig controls the engine logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig toggles OpenTelemetry instrumentation of tool calls.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP/HTTP traces endpoint. Empty keeps the global providers.
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// LoadConfig reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data, expanding environment variables
// first.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Backend == "" {
		c.Server.Backend = DefaultBackend
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultMCPPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return c
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if _, ok := backends[c.Server.Backend]; !ok {
		return fmt.Errorf("engine: config: unsupported backend %q", c.Server.Backend)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("engine: config: port %d out of range", c.Server.Port)
	}

	if c.Server.Backend == BackendMCPHTTP && !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("engine: config: path %q must start with /", c.Server.Path)
	}

	if _, err := c.Server.Timeout(); err != nil {
		return fmt.Errorf("engine: config: %w", err)
	}

	if c.Server.MaxBody < 0 {
		return fmt.Errorf("engine: config: max_body must not be negative")
	}

	seen := make(map[string]struct{}, len(c.Server.Tools))
	for _, name := range c.Server.Tools {
		if name == "" {
			return fmt.Errorf("engine: config: tool name is required")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("engine: config: duplicate tool %q", name)
		}
		seen[name] = struct{}{}
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("engine: config: %w", err)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("engine: config: unsupported log format %q", c.Logging.Format)
	}

	return nil
}

// Addr returns the host:port the network backends listen on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Timeout parses InvokeTimeout. An empty value yields zero.
func (s ServerConfig) Timeout() (time.Duration, error) {
	if s.InvokeTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s.InvokeTimeout)
	if err != nil {
		return 0, fmt.Errorf("invoke_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invoke_timeout: must not be negative")
	}

	return d, nil
}
