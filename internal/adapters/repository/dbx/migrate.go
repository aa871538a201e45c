package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// Migrate runs a goose command ("up", "down", "reset", "status") over the
// migrations in fsys. Progress goes to logger; no goose globals are touched.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS, command string, logger *slog.Logger) error {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	var results []*goose.MigrationResult
	switch command {
	case "up":
		results, err = provider.Up(ctx)
	case "down":
		var res *goose.MigrationResult
		res, err = provider.Down(ctx)
		if res != nil {
			results = append(results, res)
		}
	case "reset":
		results, err = provider.DownTo(ctx, 0)
	case "status":
		return logStatus(ctx, provider, logger)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}

	// Nothing applied yet is not a failure for down or reset.
	if errors.Is(err, goose.ErrNoNextVersion) {
		err = nil
	}

	for _, res := range results {
		logResult(ctx, logger, res)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations %q: %w", command, err)
	}
	if len(results) == 0 {
		logger.InfoContext(ctx, "no migrations to run", "command", command)
	}
	return nil
}

func logResult(ctx context.Context, logger *slog.Logger, res *goose.MigrationResult) {
	attrs := []any{
		"version", res.Source.Version,
		"file", res.Source.Path,
		"direction", res.Direction,
		"duration", res.Duration,
	}
	if res.Error != nil {
		logger.ErrorContext(ctx, "migration failed", append(attrs, "error", res.Error)...)
		return
	}
	logger.InfoContext(ctx, "applied migration", attrs...)
}

func logStatus(ctx context.Context, provider *goose.Provider, logger *slog.Logger) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, st := range statuses {
		attrs := []any{
			"version", st.Source.Version,
			"file", st.Source.Path,
			"state", string(st.State),
		}
		if !st.AppliedAt.IsZero() {
			attrs = append(attrs, "applied_at", st.AppliedAt)
		}
		logger.InfoContext(ctx, "migration status", attrs...)
	}
	return nil
}
