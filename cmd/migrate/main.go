package main

import (
	"flag"
	"log"
	"os"

	"github.com/noah-isme/admin-api/pkg/config"
	"github.com/noah-isme/admin-api/pkg/database"
	"github.com/noah-isme/admin-api/pkg/logger"
)

// migrate applies or rolls back the SQL migrations.
//
//	migrate up
//	migrate down -steps 2
//	migrate version
func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	m, err := database.NewMigrator(cfg.Database)
	if err != nil {
		sugar.Fatalw("open migrator", "error", err)
	}
	defer m.Close() //nolint:errcheck

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down(*steps)
	case "version":
	default:
		sugar.Errorw("unknown command", "command", command)
		os.Exit(2)
	}
	if err != nil {
		sugar.Fatalw("migration failed", "command", command, "error", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		sugar.Fatalw("read schema version", "error", err)
	}
	sugar.Infow("schema version", "version", version, "dirty", dirty)
}
