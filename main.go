package main

import (
	"github.com/wmmnpr/pm5monitor-sub000/config"
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
	"github.com/wmmnpr/pm5monitor-sub000/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize persistence. The in-memory store carries everything when no
	// database is configured.
	var db persistence.Database
	if cfg.Database.Enabled {
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	} else {
		db = persistence.NewMemory()
		logger.Log.Info("Running with in-memory persistence.")
	}
	defer db.Close()

	// Initialize Race Server
	raceServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting race server on %s", cfg.Server.HTTPAddress)
	if err := raceServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
