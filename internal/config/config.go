// Package config loads runtime settings from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the real environment win over values from the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/stockbook/internal/model"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverJSONFile = "jsonfile"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port              int
	StorageDriver     string
	DataDir           string
	DBPath            string
	StaticDir         string
	JWTSecret         string
	TokenTTL          time.Duration
	AuthRequired      bool
	LowStockThreshold int
	LogLevel          slog.Level
	LogFormat         string
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present) and the environment.
// Every invalid value is reported; the first error does not hide the others.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	var errs []error

	cfg := Config{
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", DriverJSONFile)),
		DataDir:       getenv("DATA_DIR", "data"),
		DBPath:        getenv("DB_PATH", "data/stockbook.db"),
		StaticDir:     getenv("STATIC_DIR", ""),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getenv("PORT", "3001")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: invalid PORT %q", os.Getenv("PORT")))
	}

	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", "15m")); err != nil || cfg.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("config: invalid TOKEN_TTL %q", os.Getenv("TOKEN_TTL")))
	}

	if cfg.AuthRequired, err = strconv.ParseBool(getenv("AUTH_REQUIRED", "false")); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid AUTH_REQUIRED %q", os.Getenv("AUTH_REQUIRED")))
	}

	threshold := getenv("LOW_STOCK_THRESHOLD", strconv.Itoa(model.DefaultLowStockThreshold))
	if cfg.LowStockThreshold, err = strconv.Atoi(threshold); err != nil || cfg.LowStockThreshold < 0 {
		errs = append(errs, fmt.Errorf("config: invalid LOW_STOCK_THRESHOLD %q", threshold))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid LOG_LEVEL: %w", err))
	}

	switch cfg.StorageDriver {
	case DriverJSONFile, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unknown STORAGE_DRIVER %q (want %s or %s)",
			cfg.StorageDriver, DriverJSONFile, DriverSQLite))
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown LOG_FORMAT %q", cfg.LogFormat))
	}

	if cfg.AuthRequired && cfg.JWTSecret == "" {
		errs = append(errs, errors.New("config: AUTH_REQUIRED needs JWT_SECRET"))
	}

	return cfg, errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the application logger described by the config.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
