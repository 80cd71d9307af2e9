package main

import (
	"fmt"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/pantrykit/pantry-api/config"
	"github.com/pantrykit/pantry-api/pkg/db"
	"github.com/pantrykit/pantry-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: "pantry-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting database migrations",
		zap.String("database", redactDatabaseURL(cfg.Database.URL)))

	poolCfg := db.PoolConfig{URL: cfg.Database.URL, CACertPath: cfg.Database.CACertPath}
	if err := db.RunMigrations(poolCfg, "file://migrations"); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Database migrations completed successfully")
}

// redactDatabaseURL keeps host and database name for the log line
func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
