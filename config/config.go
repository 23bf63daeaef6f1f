package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"APP_PORT" envDefault:"3000"`

	// StoreDriver selects sqlite, postgres or memory.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"blog.db"`

	DBHost     string `env:"DB_HOST" envDefault:"postgres"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"blog"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"blogpass"`
	DBName     string `env:"DB_NAME" envDefault:"blogdb"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Empty addresses turn the cache and the search index off.
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	CacheTTLSeconds int    `env:"CACHE_TTL_SECONDS" envDefault:"300"`
	ESAddr          string `env:"ES_ADDR"`
	ESIndex         string `env:"ES_INDEX" envDefault:"posts"`

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite, postgres or memory, got %q", c.StoreDriver)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	return nil
}

// DSN is the connection string for the configured SQL driver.
func (c Config) DSN() string {
	if c.StoreDriver == "postgres" {
		return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	}
	return c.SQLitePath
}
