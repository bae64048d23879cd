package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for phenom-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, trigger tokens) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Connection analysis batch settings
	Analysis AnalysisConfig `yaml:"analysis"`

	// Pattern detection settings
	Patterns PatternConfig `yaml:"patterns"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"phenom"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"phenom_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AnalysisConfig holds connection analysis batch settings. The defaults are
// the engine's canonical constants; they exist as configuration so operators
// can tune batch pressure without a redeploy.
type AnalysisConfig struct {
	// BatchSize is the maximum number of reports processed per invocation.
	BatchSize int `yaml:"batch_size" env:"ANALYSIS_BATCH_SIZE" env-default:"50"`
	// CooldownDays is the minimum age of last_analyzed_at before a report
	// becomes eligible for re-analysis.
	CooldownDays int `yaml:"cooldown_days" env:"ANALYSIS_COOLDOWN_DAYS" env-default:"7"`
	// MinStrength is the minimum connection strength persisted.
	MinStrength float64 `yaml:"min_strength" env:"ANALYSIS_MIN_STRENGTH" env-default:"0.40"`
	// MaxConnections is the per-report cap on persisted connections.
	MaxConnections int `yaml:"max_connections" env:"ANALYSIS_MAX_CONNECTIONS" env-default:"8"`
	// Workers bounds per-report concurrency within a batch. 1 means strictly
	// sequential processing.
	Workers int `yaml:"workers" env:"ANALYSIS_WORKERS" env-default:"4"`

	// TriggerSecret is the shared bearer token required by the internal
	// trigger endpoints. The server fails to start if this is not set.
	TriggerSecret string `yaml:"-" env:"ANALYSIS_TRIGGER_SECRET"` // Secret - not in YAML
}

// PatternConfig holds pattern detection settings.
type PatternConfig struct {
	// WindowDays is how far back the detection pass scans reports. The
	// default spans two full years so seasonal recurrence has enough
	// history to compare against.
	WindowDays int `yaml:"window_days" env:"PATTERNS_WINDOW_DAYS" env-default:"730"`
	// MaxReports caps the number of reports scanned per run.
	MaxReports int `yaml:"max_reports" env:"PATTERNS_MAX_REPORTS" env-default:"500"`
	// ClusterRadiusKm is the grouping radius for geographic clusters.
	ClusterRadiusKm float64 `yaml:"cluster_radius_km" env:"PATTERNS_CLUSTER_RADIUS_KM" env-default:"50"`
	// MinClusterSize is the minimum member count for a geographic cluster.
	MinClusterSize int `yaml:"min_cluster_size" env:"PATTERNS_MIN_CLUSTER_SIZE" env-default:"3"`
	// SpikeThreshold is the minimum same-category report count in one
	// calendar week to qualify as a temporal spike.
	SpikeThreshold int `yaml:"spike_threshold" env:"PATTERNS_SPIKE_THRESHOLD" env-default:"3"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD,
// ANALYSIS_TRIGGER_SECRET) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.TriggerSecret == "" {
		return fmt.Errorf("ANALYSIS_TRIGGER_SECRET must be set")
	}
	if c.Analysis.BatchSize <= 0 {
		return fmt.Errorf("analysis batch_size must be positive")
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis workers must be positive")
	}
	if c.Analysis.MinStrength < 0 || c.Analysis.MinStrength > 1 {
		return fmt.Errorf("analysis min_strength must be in [0,1]")
	}
	if c.Analysis.MaxConnections <= 0 {
		return fmt.Errorf("analysis max_connections must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string. A localhost host
// is rewritten when running inside Docker so the engine can reach a database
// on the host machine.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
