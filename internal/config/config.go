// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port              string
	BaseURL           string
	LogLevel          string
	LogFormat         string
	DefaultDifficulty string
	SessionIdle       time.Duration
	SweepInterval     time.Duration
	RateLimitRPS      int
	RateLimitBurst    int
}

// Load reads .env files (missing files are fine) and then the environment.
// Invalid values fall back to defaults with a warning on log.
func Load(log logrus.FieldLogger, files ...string) Config {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env")
	}
	return Config{
		Port:              getEnv("PORT", "8080"),
		BaseURL:           strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		DefaultDifficulty: getEnv("DEFAULT_DIFFICULTY", "easy"),
		SessionIdle:       getEnvDuration(log, "SESSION_IDLE_TIMEOUT", 2*time.Hour),
		SweepInterval:     getEnvDuration(log, "SWEEP_INTERVAL", 10*time.Minute),
		RateLimitRPS:      getEnvInt(log, "RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getEnvInt(log, "RATE_LIMIT_BURST", 20),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getEnvDuration(log logrus.FieldLogger, key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		log.WithField("key", key).WithField("value", val).Warnf("invalid duration, using default %v", fallback)
		return fallback
	}
	return d
}

func getEnvInt(log logrus.FieldLogger, key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		log.WithField("key", key).WithField("value", val).Warnf("invalid int, using default %d", fallback)
		return fallback
	}
	return i
}
