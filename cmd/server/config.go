package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/exercise-api/internal/config"
)

// loadAppConfig loads the application configuration from environment variables or config file.
// Returns the loaded config and any loading error.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"storage_backend", cfg.Storage.Backend,
		"llm_provider", cfg.LLM.Provider)

	if cfg.Database.URL != "" {
		slog.Debug("Database configuration", "url_present", true)
	}
	if cfg.Redis.Addr != "" {
		slog.Debug("Statistics cache configuration", "redis_addr_present", true)
	}
	if cfg.Admin.APIKeyHash == "" {
		slog.Info("Admin API key hash not configured, admin routes are disabled")
	}

	return cfg, nil
}
