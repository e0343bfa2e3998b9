package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txRepo{tx: tx})
	})
}

// ListUsers returns active and inactive users, optionally narrowed to one role.
func (r *Repository) ListUsers(ctx context.Context, role string) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.username, u.email, u.is_active, u.created_at, u.updated_at,
COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
WHERE ($1 = '' OR EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = $1))
GROUP BY u.id
ORDER BY u.username`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.Roles); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// SetActive enables or disables the login of a user.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (r txRepo) InsertUser(ctx context.Context, user User, passwordHash string) (User, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, NOW(), NOW())
RETURNING id, is_active, created_at, updated_at`, user.Username, user.Email, passwordHash).
		Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if db.IsUniqueViolation(err, ConstraintUsername) {
		return User{}, shared.ValidationError{Field: "username", Message: "is already taken"}
	}
	return user, err
}

func (r txRepo) AssignRole(ctx context.Context, userID int64, role string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, role)
	return err
}

func (r txRepo) NotifyManagers(ctx context.Context, message string) error {
	_, err := notify.NotifyManagers(ctx, r.tx, message, notify.CategoryInfo)
	return err
}
