package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/dbx"
	"github.com/vncsmyrnk/user-service/internal/core/domain"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
)

const uniqueViolation = "23505"

const selectUser = `
	SELECT u.id, u.name, u.email, u.hashed_password, u.push_token, u.created_at,
	       p.email, p.push
	FROM users u
	JOIN user_preferences p ON p.user_id = u.id
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) ports.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.email = $1`, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE u.id = $1`, id))
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	return dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, hashed_password, push_token, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.ID, user.Name, user.Email, user.PasswordHash, user.PushToken, user.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return domain.ErrEmailTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_preferences (id, user_id, email, push)
			VALUES ($1, $2, $3, $4)
		`, uuid.New(), user.ID, user.Preferences.Email, user.Preferences.Push)
		if err != nil {
			return fmt.Errorf("failed to insert preferences: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) UpdatePushToken(ctx context.Context, id uuid.UUID, pushToken string) (*domain.User, error) {
	return r.update(ctx, id, `UPDATE users SET push_token = $2 WHERE id = $1`, pushToken)
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs domain.Preferences) (*domain.User, error) {
	return r.update(ctx, id, `UPDATE user_preferences SET email = $2, push = $3 WHERE user_id = $1`, prefs.Email, prefs.Push)
}

// update applies a single-row write and reads the row back in the same
// transaction, so the returned user is exactly what was committed.
func (r *UserRepository) update(ctx context.Context, id uuid.UUID, query string, args ...any) (*domain.User, error) {
	var user *domain.User
	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, query, append([]any{id}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return domain.ErrUserNotFound
		}

		user, err = scanUser(tx.QueryRowContext(ctx, selectUser+` WHERE u.id = $1`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY u.created_at, u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user      domain.User
		pushToken sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&pushToken,
		&user.CreatedAt,
		&user.Preferences.Email,
		&user.Preferences.Push,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if pushToken.Valid {
		user.PushToken = &pushToken.String
	}
	user.Preferences.UserID = user.ID
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
