package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Session  SessionConfig  `mapstructure:"session"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 or postgres
	Path   string `mapstructure:"path"`   // sqlite file
	DSN    string `mapstructure:"dsn"`    // postgres connection string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReminderConfig controls the due-review reminder job
type ReminderConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Every     time.Duration `mapstructure:"every"`
	StartHour int           `mapstructure:"start_hour"`
	EndHour   int           `mapstructure:"end_hour"`
}

// SessionConfig controls review session building and application
type SessionConfig struct {
	Size    int `mapstructure:"size"`
	Workers int `mapstructure:"workers"`
}

// Load reads .env (when present) and the environment.
// Keys map to env names by upper-casing and replacing dots, e.g. database.driver -> DATABASE_DRIVER.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "data/lingua.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Время уведомлений по умолчанию
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.every", time.Hour)
	v.SetDefault("reminder.start_hour", 8)
	v.SetDefault("reminder.end_hour", 22)

	v.SetDefault("session.size", 20)
	v.SetDefault("session.workers", 4)
}

// Validate checks the values Load cannot express as types
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Reminder.StartHour < 0 || c.Reminder.StartHour > 23 || c.Reminder.EndHour < 0 || c.Reminder.EndHour > 23 {
		return fmt.Errorf("reminder hours must be within 0-23, got %d-%d", c.Reminder.StartHour, c.Reminder.EndHour)
	}
	if c.Reminder.Every <= 0 {
		return fmt.Errorf("reminder.every must be positive")
	}
	if c.Session.Size <= 0 {
		return fmt.Errorf("session.size must be positive")
	}
	if c.Session.Workers <= 0 {
		return fmt.Errorf("session.workers must be positive")
	}
	return nil
}
