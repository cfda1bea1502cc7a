// Package config reads process configuration from the environment and an
// optional .env file. HR rules are not configuration: they live in the
// hr_rules table and are versioned there.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
)

type Config struct {
	DBPath          string
	Port            int
	LogLevel        string
	CycleOrigin     generic.Date
	CycleLength     int
	BufferDays      int
	RefreshInterval time.Duration
	Preload         bool
}

// Load reads .env (when present in the working directory) and then the
// ROSTER_* variables. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		DBPath:      getEnv("ROSTER_DB_PATH", "roster.db"),
		Port:        getEnvAsInt("ROSTER_PORT", 8080),
		LogLevel:    getEnv("ROSTER_LOG_LEVEL", "info"),
		CycleLength: getEnvAsInt("ROSTER_CYCLE_LENGTH", 28),
		BufferDays:  getEnvAsInt("ROSTER_BUFFER_DAYS", 14),
		Preload:     getEnvAsBool("ROSTER_PRELOAD", true),
	}

	origin, err := generic.ParseDate(getEnv("ROSTER_CYCLE_ORIGIN", "2024-01-01"))
	if err != nil {
		return nil, fmt.Errorf("ROSTER_CYCLE_ORIGIN: %w", err)
	}
	cfg.CycleOrigin = origin

	interval, err := time.ParseDuration(getEnv("ROSTER_REFRESH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("ROSTER_REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	if cfg.CycleLength < 1 {
		return nil, fmt.Errorf("ROSTER_CYCLE_LENGTH must be positive, got %d", cfg.CycleLength)
	}
	if cfg.BufferDays < 0 {
		return nil, fmt.Errorf("ROSTER_BUFFER_DAYS must not be negative, got %d", cfg.BufferDays)
	}
	return cfg, nil
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}
