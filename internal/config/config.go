// Package config provides configuration loading for the canonic CLI and gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Endpoint is the control plane URL
	Endpoint string `mapstructure:"endpoint"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Database configuration (for gateway)
	Database DatabaseConfig `mapstructure:"database"`

	// Engines configuration
	Engines EnginesConfig `mapstructure:"engines"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configuration (for gateway)
	Server ServerConfig `mapstructure:"server"`

	// Quorum configuration for the replicated K/V store
	Quorum QuorumConfig `mapstructure:"quorum"`

	// Scaler configuration for the predictive auto-scaler
	Scaler ScalerConfig `mapstructure:"scaler"`
}

// QuorumConfig holds the replicated store's quorum and cluster settings.
// Open Question #2 (spec §9): these are operator-tunable rather than
// fixed constants, since the right R/W split depends on deployment size.
type QuorumConfig struct {
	Nodes             []string `mapstructure:"nodes"`
	ReadQuorum        int      `mapstructure:"readQuorum"`
	WriteQuorum       int      `mapstructure:"writeQuorum"`
	RebalanceInterval string   `mapstructure:"rebalanceInterval"`
	HealthCheckPeriod string   `mapstructure:"healthCheckPeriod"`
	OperationTimeout  string   `mapstructure:"operationTimeout"`
}

// ScalerConfig holds the predictive auto-scaler's thresholds. Open
// Question #3 (spec §9): exposed as config rather than baked into the
// scaler, matching the original's AutoScaler.__init__ keyword defaults.
type ScalerConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MinNodes       int     `mapstructure:"minNodes"`
	MaxNodes       int     `mapstructure:"maxNodes"`
	CPUThreshold   float64 `mapstructure:"cpuThreshold"`
	MemThreshold   float64 `mapstructure:"memThreshold"`
	ScaleUpFactor  float64 `mapstructure:"scaleUpFactor"`
	ScaleDownFactor float64 `mapstructure:"scaleDownFactor"`
	CooldownPeriod string  `mapstructure:"cooldownPeriod"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// EnginesConfig holds engine configurations.
type EnginesConfig struct {
	DuckDB DuckDBConfig `mapstructure:"duckdb"`
	Trino  TrinoConfig  `mapstructure:"trino"`
	Spark  SparkConfig  `mapstructure:"spark"`
}

// DuckDBConfig holds DuckDB configuration.
type DuckDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
}

// TrinoConfig holds Trino configuration.
type TrinoConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Catalog string `mapstructure:"catalog"`
}

// SparkConfig holds Spark configuration.
type SparkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8080",
		Auth: AuthConfig{
			Token: "",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "canonica",
			Password: "canonica_dev",
			Name:     "canonica",
			SSLMode:  "disable",
		},
		Engines: EnginesConfig{
			DuckDB: DuckDBConfig{
				Enabled:  true,
				Database: ":memory:",
			},
			Trino: TrinoConfig{
				Enabled: false,
				Host:    "localhost",
				Port:    8080,
				Catalog: "hive",
			},
			Spark: SparkConfig{
				Enabled: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
		Quorum: QuorumConfig{
			Nodes:             []string{"localhost:6379"},
			ReadQuorum:        1,
			WriteQuorum:       1,
			RebalanceInterval: "5m",
			HealthCheckPeriod: "30s",
			OperationTimeout:  "2s",
		},
		Scaler: ScalerConfig{
			Enabled:         false,
			MinNodes:        2,
			MaxNodes:        10,
			CPUThreshold:    80,
			MemThreshold:    80,
			ScaleUpFactor:   1.5,
			ScaleDownFactor: 0.5,
			CooldownPeriod:  "5m",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".lakequery"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("LAKEQUERY")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "http://localhost:8080")
	v.SetDefault("auth.token", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "canonica")
	v.SetDefault("database.password", "canonica_dev")
	v.SetDefault("database.name", "canonica")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("engines.duckdb.enabled", true)
	v.SetDefault("engines.duckdb.database", ":memory:")
	v.SetDefault("engines.trino.enabled", false)
	v.SetDefault("engines.spark.enabled", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("quorum.nodes", []string{"localhost:6379"})
	v.SetDefault("quorum.readQuorum", 1)
	v.SetDefault("quorum.writeQuorum", 1)
	v.SetDefault("quorum.rebalanceInterval", "5m")
	v.SetDefault("quorum.healthCheckPeriod", "30s")
	v.SetDefault("quorum.operationTimeout", "2s")
	v.SetDefault("scaler.enabled", false)
	v.SetDefault("scaler.minNodes", 2)
	v.SetDefault("scaler.maxNodes", 10)
	v.SetDefault("scaler.cpuThreshold", 80)
	v.SetDefault("scaler.memThreshold", 80)
	v.SetDefault("scaler.scaleUpFactor", 1.5)
	v.SetDefault("scaler.scaleDownFactor", 0.5)
	v.SetDefault("scaler.cooldownPeriod", "5m")
}
