package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/repotest"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
	"github.com/vncsmyrnk/user-service/internal/logging"
)

func newTestRepository(t *testing.T) ports.UserRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db, "up", logging.Discard()))
	return NewUserRepository(db)
}

func TestUserRepository(t *testing.T) {
	repotest.RunUserRepository(t, newTestRepository)
}

func TestMigrate_DownDropsTables(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, "up", logging.Discard()))
	require.NoError(t, Migrate(ctx, db, "down", logging.Discard()))

	_, err = NewUserRepository(db).Count(ctx)
	require.Error(t, err)
}
