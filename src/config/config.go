package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"quote-streamer/src/models"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

var validCodecs = map[string]bool{"json": true, "protobuf": true}
var validLogLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file. Environment variables
// (optionally loaded from a .env file) fill in or override unset fields.
func NewConfig(configPath string) (*Config, error) {
	// 1. Load .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// 2. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 3. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 4. Environment overrides and defaults for zero fields
	if err := cleanenv.ReadEnv(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 5. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default builds a configuration from defaults and environment only.
func Default() (*Config, error) {
	var modelConfig models.MConfig
	if err := cleanenv.ReadEnv(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to read defaults: %w", err)
	}
	config := &Config{MConfig: &modelConfig}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	// HTTP / gRPC
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if err := validPort("http", c.Port); err != nil {
		return err
	}
	if err := validPort("grpc", c.GrpcPort); err != nil {
		return err
	}

	// Transport
	if err := validPort("command", c.Transport.CommandPort); err != nil {
		return err
	}
	if err := validPort("data", c.Transport.DataPort); err != nil {
		return err
	}
	if c.Transport.CommandPort == c.Transport.DataPort {
		return fmt.Errorf("command port and data port must differ (both %d)", c.Transport.DataPort)
	}
	c.Transport.Codec = strings.ToLower(c.Transport.Codec)
	if !validCodecs[c.Transport.Codec] {
		return fmt.Errorf("unsupported codec: %s", c.Transport.Codec)
	}
	if c.Transport.ReadTimeoutMs <= 0 {
		return fmt.Errorf("read timeout must be greater than 0")
	}
	if c.Transport.MaxCommandBytes < 64 {
		return fmt.Errorf("max command bytes must be at least 64")
	}

	// Generator
	g := c.Generator
	if g.IntervalMs <= 0 {
		return fmt.Errorf("tick interval must be greater than 0")
	}
	if g.InitialPrice <= 0 {
		return fmt.Errorf("initial price must be greater than 0")
	}
	if g.MaxStep <= 0 || g.MaxStep >= 1 {
		return fmt.Errorf("max step must be in (0, 1), got %v", g.MaxStep)
	}
	if g.PriceFloor <= 0 {
		return fmt.Errorf("price floor must be greater than 0")
	}
	if g.ChannelBuffer <= 0 {
		return fmt.Errorf("channel buffer must be greater than 0")
	}
	if g.OffHoursVolumeFactor <= 0 {
		return fmt.Errorf("off-hours volume factor must be greater than 0")
	}
	if len(g.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	for _, s := range append(append([]string{}, g.Symbols...), g.LiquidSymbols...) {
		if models.ParseSymbol(s) == models.Unknown {
			return fmt.Errorf("unsupported symbol in generator config: %q", s)
		}
	}

	// Liveness
	if c.Liveness.TimeoutSeconds <= 0 {
		return fmt.Errorf("liveness timeout must be greater than 0")
	}
	if c.Liveness.CheckIntervalMs <= 0 {
		return fmt.Errorf("liveness check interval must be greater than 0")
	}

	// Storage
	if c.Storage.Enabled {
		switch c.Storage.DBType {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return fmt.Errorf("database path cannot be empty for sqlite")
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return fmt.Errorf("database connection string cannot be empty for postgres")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
		}
	}

	// Sinks
	if c.Sinks.Redis.Enabled && c.Sinks.Redis.Addr == "" {
		return fmt.Errorf("redis sink requires an address")
	}
	if c.Sinks.Kafka.Enabled {
		if len(c.Sinks.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka sink requires at least one broker")
		}
		if c.Sinks.Kafka.Topic == "" {
			return fmt.Errorf("kafka sink requires a topic")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s port number: %d (must be between 1 and 65535)", name, port)
	}
	return nil
}

// -----------------------------------------------------------------------------

// TrackedSymbols returns the generator symbols in configured order.
func (c *Config) TrackedSymbols() []models.Symbol {
	return models.ParseSymbols(c.Generator.Symbols)
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
