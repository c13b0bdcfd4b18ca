// Package config provides configuration loading and validation for the
// spanplan tools.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidBandwidth = errors.New("link bandwidth must be positive")
	ErrInvalidLatency   = errors.New("link latency may not be negative")
	ErrInvalidStore     = errors.New("frontier store must be \"list\" or \"tree\"")
	ErrInvalidLogLevel  = errors.New("log level must be one of debug, info, warn, error")
	ErrInvalidLogFormat = errors.New("log format must be \"text\" or \"json\"")
)

// Default configuration values.
const (
	defaultLatency   = 0.05
	defaultBandwidth = 1 << 20

	// StoreList and StoreTree name the frontier store implementations.
	StoreList = "list"
	StoreTree = "tree"
)

// Config holds all configuration for the spanplan tools.
type Config struct {
	Link      LinkConfig      `mapstructure:"link"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LinkConfig holds the default cost-model parameters, used when the input
// itself does not carry them.
type LinkConfig struct {
	Latency   float64 `mapstructure:"latency"`
	Bandwidth float64 `mapstructure:"bandwidth"`
}

// PlannerConfig holds sweep-specific configuration.
type PlannerConfig struct {
	Store                string `mapstructure:"store"`
	HibernationThreshold int    `mapstructure:"hibernation_threshold"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	Environment string `mapstructure:"environment"`
	Insecure    bool   `mapstructure:"insecure"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("spanplan")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/spanplan")
	}

	viperCfg.SetEnvPrefix("SPANPLAN")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Link defaults.
	viperCfg.SetDefault("link.latency", defaultLatency)
	viperCfg.SetDefault("link.bandwidth", defaultBandwidth)

	// Planner defaults.
	viperCfg.SetDefault("planner.store", StoreTree)
	viperCfg.SetDefault("planner.hibernation_threshold", 0)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.endpoint", "")
	viperCfg.SetDefault("telemetry.environment", "dev")
	viperCfg.SetDefault("telemetry.insecure", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Link.Bandwidth <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidBandwidth, config.Link.Bandwidth)
	}

	if config.Link.Latency < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidLatency, config.Link.Latency)
	}

	if config.Planner.Store != StoreList && config.Planner.Store != StoreTree {
		return fmt.Errorf("%w: %q", ErrInvalidStore, config.Planner.Store)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}
