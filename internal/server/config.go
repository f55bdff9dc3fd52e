package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete daemon configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Redis  *RedisSettings `hcl:"redis,block"`
	Timers *TimerSettings `hcl:"timers,block"`
}

// ServerSettings contains the HTTP listener configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogJSON  bool   `hcl:"log_json,optional"`
}

// RedisSettings selects the persistent store. Omitting the block keeps
// games in process memory.
type RedisSettings struct {
	Address  string `hcl:"address,optional"`
	Password string `hcl:"password,optional"`
	DB       int    `hcl:"db,optional"`
}

// TimerSettings tune the background drivers.
type TimerSettings struct {
	TickSeconds       int `hcl:"tick_seconds,optional"`
	SweepMinutes      int `hcl:"sweep_minutes,optional"`
	HeartbeatSeconds  int `hcl:"heartbeat_seconds,optional"`
	ClientSendSeconds int `hcl:"client_send_seconds,optional"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Redis != nil && c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Timers == nil {
		c.Timers = &TimerSettings{}
	}
	if c.Timers.TickSeconds == 0 {
		c.Timers.TickSeconds = 1
	}
	if c.Timers.SweepMinutes == 0 {
		c.Timers.SweepMinutes = 30
	}
	if c.Timers.HeartbeatSeconds == 0 {
		c.Timers.HeartbeatSeconds = 25
	}
	if c.Timers.ClientSendSeconds == 0 {
		c.Timers.ClientSendSeconds = 5
	}
}

// LoadConfig loads the daemon configuration from an HCL file. A missing
// file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Timers.TickSeconds < 1 {
		return fmt.Errorf("tick interval must be at least 1s")
	}
	if c.Timers.SweepMinutes < 1 {
		return fmt.Errorf("sweep interval must be at least 1m")
	}
	return nil
}

// ListenAddress returns host:port for the HTTP listener.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
