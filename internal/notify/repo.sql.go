package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// Append writes one notification for userID on q.
func Append(ctx context.Context, q db.Querier, userID int64, message string, category Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	_, err := q.Exec(ctx, `INSERT INTO notifications (user_id, message, activity_type, is_read, created_at)
VALUES ($1, $2, $3, FALSE, NOW())`, userID, truncate(message), string(category))
	if err != nil {
		return fmt.Errorf("notify: append: %w", err)
	}
	return nil
}

// NotifyManagers writes the message into the mailbox of every active manager and
// returns how many were addressed.
func NotifyManagers(ctx context.Context, q db.Querier, message string, category Category) (int64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	tag, err := q.Exec(ctx, `INSERT INTO notifications (user_id, message, activity_type, is_read, created_at)
SELECT u.id, $1, $2, FALSE, NOW()
FROM users u
JOIN user_roles ur ON ur.user_id = u.id
WHERE ur.role = $3 AND u.is_active`, truncate(message), string(category), shared.RoleManager)
	if err != nil {
		return 0, fmt.Errorf("notify: managers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Repository reads and flips notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectNotification = `SELECT n.id, n.user_id, u.username, n.message, n.activity_type, n.is_read, n.created_at
FROM notifications n JOIN users u ON u.id = n.user_id`

// NotifyManagers fans a message out to every active manager outside any caller transaction.
func (r *Repository) NotifyManagers(ctx context.Context, message string, category Category) (int64, error) {
	return NotifyManagers(ctx, r.pool, message, category)
}

// ListForUser returns the newest notifications addressed to userID.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, selectNotification+` WHERE n.user_id = $1 ORDER BY n.created_at DESC, n.id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

// ListForManagers returns the newest notifications addressed to any manager.
func (r *Repository) ListForManagers(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, selectNotification+`
WHERE EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = n.user_id AND ur.role = $1)
ORDER BY n.created_at DESC, n.id DESC LIMIT $2`, shared.RoleManager, limit)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

// ListUnread returns up to limit unread notifications and the total unread count.
func (r *Repository) ListUnread(ctx context.Context, userID int64, limit int) ([]Notification, int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, selectNotification+` WHERE n.user_id = $1 AND NOT n.is_read ORDER BY n.created_at DESC, n.id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanNotifications(rows)
	return items, count, err
}

// MarkRead flips one notification owned by userID.
func (r *Repository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification of userID.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		var n Notification
		var category string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Username, &n.Message, &category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Category = Category(category)
		out = append(out, n)
	}
	return out, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
