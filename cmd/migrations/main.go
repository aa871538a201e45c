package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vncsmyrnk/user-service/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/user-service/internal/config"
	"github.com/vncsmyrnk/user-service/internal/logging"
)

// Usage: migrations [up|down|status|reset]
func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "up", "down", "status", "reset":
	default:
		log.Fatalf("unknown migration command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	if err := migrate(ctx, cfg.Database, command, logger); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Migration %q finished on %s.\n", command, cfg.Database.Driver)
}

func migrate(ctx context.Context, cfg config.Database, command string, logger *slog.Logger) error {
	if cfg.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		return sqlite.Migrate(ctx, db, command, logger)
	}

	db, err := postgres.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.Migrate(ctx, db, command, logger)
}
