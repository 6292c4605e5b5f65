// Command server runs the inventory and invoicing API.
//
// Configuration comes from the environment (and an optional .env file);
// see internal/config for the recognised keys.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/stockbook/internal/config"
	"github.com/sakif/stockbook/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.StorageDriver == config.DriverSQLite && cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, login will not issue tokens")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
