// Package config provides Viper-based configuration loading for the combat daemon
// and its tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", or a file path.
	Output string `mapstructure:"output"`
}

// CombatConfig holds resolution engine tuning.
type CombatConfig struct {
	TickMin       time.Duration `mapstructure:"tick_min"`
	TickMax       time.Duration `mapstructure:"tick_max"`
	TickStep      time.Duration `mapstructure:"tick_step"`
	SafetyTimeout time.Duration `mapstructure:"safety_timeout"`
	EventLogCap   int           `mapstructure:"event_log_cap"`
	PacingFactor  float64       `mapstructure:"pacing_factor"`
	DefenseFactor float64       `mapstructure:"defense_factor"`
	EnergyRegen   int           `mapstructure:"energy_regen"`
	CoverDecay    int           `mapstructure:"cover_decay"`
	// Variance is the dice expression added to raw damage, e.g. "1d5-3".
	Variance string `mapstructure:"variance"`
	// Seed makes every session reproducible when non-zero. Zero selects the
	// crypto source.
	Seed int64 `mapstructure:"seed"`
	// ActionsDir holds YAML catalog overrides. Empty means built-ins only.
	ActionsDir string `mapstructure:"actions_dir"`
}

// StorageConfig selects and configures the durable key-value medium.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver       string        `mapstructure:"driver"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	Key          string        `mapstructure:"key"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// GRPCConfig holds the combat service listen address.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	// The database section only matters when postgres backs the store.
	if c.Storage.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateGRPC(c.GRPC); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.TickMin <= 0 {
		errs = append(errs, "combat.tick_min must be positive")
	}
	if c.TickMax < c.TickMin {
		errs = append(errs, fmt.Sprintf("combat.tick_max (%s) must be >= combat.tick_min (%s)", c.TickMax, c.TickMin))
	}
	if c.TickStep < 0 {
		errs = append(errs, "combat.tick_step must not be negative")
	}
	if c.SafetyTimeout <= 0 {
		errs = append(errs, "combat.safety_timeout must be positive")
	}
	if c.EventLogCap < 1 {
		errs = append(errs, fmt.Sprintf("combat.event_log_cap must be >= 1, got %d", c.EventLogCap))
	}
	if c.PacingFactor <= 0 {
		errs = append(errs, "combat.pacing_factor must be positive")
	}
	if c.DefenseFactor < 0 {
		errs = append(errs, "combat.defense_factor must not be negative")
	}
	if c.EnergyRegen < 0 || c.CoverDecay < 0 {
		errs = append(errs, "combat.energy_regen and combat.cover_decay must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	switch s.Driver {
	case "memory", "postgres":
	case "sqlite":
		if s.SQLitePath == "" {
			errs = append(errs, "storage.sqlite_path must not be empty for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be one of [memory, sqlite, postgres], got %q", s.Driver))
	}
	if s.Key == "" {
		errs = append(errs, "storage.key must not be empty")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "storage.write_timeout must be positive")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGRPC(g GRPCConfig) error {
	var errs []string
	if g.Host == "" {
		errs = append(errs, "grpc.host must not be empty")
	}
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be 1-65535, got %d", g.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Precondition: path is empty or names a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and FIELDOPS_ environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("FIELDOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("combat.tick_min", "1s")
	v.SetDefault("combat.tick_max", "3s")
	v.SetDefault("combat.tick_step", "250ms")
	v.SetDefault("combat.safety_timeout", "4h")
	v.SetDefault("combat.event_log_cap", 500)
	v.SetDefault("combat.pacing_factor", 0.5)
	v.SetDefault("combat.defense_factor", 0.5)
	v.SetDefault("combat.energy_regen", 5)
	v.SetDefault("combat.cover_decay", 10)
	v.SetDefault("combat.variance", "1d5-3")
	v.SetDefault("combat.seed", 0)
	v.SetDefault("combat.actions_dir", "")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "fieldops.db")
	v.SetDefault("storage.key", "combat-sync-state")
	v.SetDefault("storage.write_timeout", "2s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fieldops")
	v.SetDefault("database.password", "fieldops")
	v.SetDefault("database.name", "fieldops")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50061)
}
