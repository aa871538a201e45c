package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/repotest"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
	"github.com/vncsmyrnk/user-service/internal/logging"
)

func setupPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestUserRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dsn := setupPostgresContainer(t)
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repotest.RunUserRepository(t, func(t *testing.T) ports.UserRepository {
		require.NoError(t, Migrate(ctx, db, "reset", logging.Discard()))
		require.NoError(t, Migrate(ctx, db, "up", logging.Discard()))
		return NewUserRepository(db)
	})
}
