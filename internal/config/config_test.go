package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/lingua.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.Reminder.Every)
	assert.Equal(t, 8, cfg.Reminder.StartHour)
	assert.Equal(t, 22, cfg.Reminder.EndHour)
	assert.Equal(t, 20, cfg.Session.Size)
	assert.Equal(t, 4, cfg.Session.Workers)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost/lingua?sslmode=disable")
	t.Setenv("REMINDER_EVERY", "15m")
	t.Setenv("SESSION_SIZE", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/lingua?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 15*time.Minute, cfg.Reminder.Every)
	assert.Equal(t, 5, cfg.Session.Size)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nREMINDER_START_HOUR=6\n"), 0o600))
	// godotenv does not override variables that already exist, so clean up after it
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("REMINDER_START_HOUR")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 6, cfg.Reminder.StartHour)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite3", Path: "x.db"},
			Reminder: ReminderConfig{Every: time.Hour, StartHour: 8, EndHour: 22},
			Session:  SessionConfig{Size: 10, Workers: 2},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"unknown driver":     func(c *Config) { c.Database.Driver = "mysql" },
		"postgres no dsn":    func(c *Config) { c.Database.Driver = "postgres" },
		"sqlite no path":     func(c *Config) { c.Database.Path = "" },
		"bad hour":           func(c *Config) { c.Reminder.EndHour = 24 },
		"zero period":        func(c *Config) { c.Reminder.Every = 0 },
		"zero session size":  func(c *Config) { c.Session.Size = 0 },
		"zero workers":       func(c *Config) { c.Session.Workers = 0 },
	}
	for name, mutate := range tests {
		c := valid()
		mutate(c)
		assert.Error(t, c.Validate(), name)
	}
}
