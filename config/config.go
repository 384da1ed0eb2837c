// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Config holds the settings of the server. Storage falls back to SQLite when
// PostgresDSN is empty; the Redis cache is disabled when RedisAddr is empty.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	SQLitePath      string        `env:"SQLITE_PATH,default=social-graph.db"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads the configuration from the environment. Variables found in the
// given dotenv files (".env" when none is given) are added to the environment
// first; missing files are ignored and existing variables are not overridden.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var c Config
	if _, err := env.UnmarshalFromEnviron(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid port %d", c.Port)
	}
	return c, nil
}

// Addr returns the host:port the server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewLogger returns a logger writing at the given level, e.g. "DEBUG".
func NewLogger(level string) *slog.Logger {
	return logs.GetLoggerFromString(level)
}
