package notify

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

type memoryRepo struct {
	items    []Notification
	managers map[int64]bool
}

func (m *memoryRepo) ListForUser(_ context.Context, userID int64, limit int) ([]Notification, error) {
	var out []Notification
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if m.items[i].UserID == userID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *memoryRepo) ListForManagers(_ context.Context, limit int) ([]Notification, error) {
	var out []Notification
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if m.managers[m.items[i].UserID] {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *memoryRepo) ListUnread(_ context.Context, userID int64, limit int) ([]Notification, int, error) {
	var out []Notification
	count := 0
	for i := len(m.items) - 1; i >= 0; i-- {
		n := m.items[i]
		if n.UserID != userID || n.IsRead {
			continue
		}
		count++
		if len(out) < limit {
			out = append(out, n)
		}
	}
	return out, count, nil
}

func (m *memoryRepo) MarkRead(_ context.Context, userID, id int64) error {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func seed(repo *memoryRepo, userID int64, count int) {
	for i := 0; i < count; i++ {
		repo.items = append(repo.items, Notification{
			ID:        int64(len(repo.items) + 1),
			UserID:    userID,
			Message:   "event",
			Category:  CategoryInfo,
			CreatedAt: time.Now(),
		})
	}
}

var (
	manager  = rbac.Principal{UserID: 1, Roles: []string{shared.RoleManager}}
	employee = rbac.Principal{UserID: 3, Roles: []string{shared.RoleEmployee}}
)

func TestActivityFeedScopesByRole(t *testing.T) {
	repo := &memoryRepo{managers: map[int64]bool{1: true, 2: true}}
	seed(repo, 1, 4)
	seed(repo, 2, 8)
	seed(repo, 3, 2)
	svc := NewService(repo)

	feed, err := svc.ActivityFeed(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, feed, FeedLimit)
	for _, n := range feed {
		require.NotEqual(t, int64(3), n.UserID)
	}

	feed, err = svc.ActivityFeed(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, feed, 2)
}

func TestUnreadAndMarkRead(t *testing.T) {
	repo := &memoryRepo{managers: map[int64]bool{}}
	seed(repo, 3, 25)
	svc := NewService(repo)
	ctx := context.Background()

	summary, err := svc.Unread(ctx, employee)
	require.NoError(t, err)
	require.Len(t, summary.Notifications, UnreadLimit)
	require.Equal(t, 25, summary.UnreadCount)

	require.NoError(t, svc.MarkRead(ctx, employee, 1))
	require.ErrorIs(t, svc.MarkRead(ctx, manager, 2), shared.ErrNotFound)

	updated, err := svc.MarkAllRead(ctx, employee)
	require.NoError(t, err)
	require.Equal(t, int64(24), updated)

	summary, err = svc.Unread(ctx, employee)
	require.NoError(t, err)
	require.Zero(t, summary.UnreadCount)
}

type recordingQuerier struct {
	sql  []string
	args [][]any
	rows int64
	err  error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag("INSERT 0 " + strconv.FormatInt(q.rows, 10)), q.err
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func TestAppendValidatesCategoryAndTruncates(t *testing.T) {
	q := &recordingQuerier{rows: 1}
	require.ErrorIs(t, Append(context.Background(), q, 1, "hi", Category("urgent")), ErrInvalidCategory)
	require.Empty(t, q.sql)

	long := strings.Repeat("x", 300)
	require.NoError(t, Append(context.Background(), q, 7, long, CategoryWarning))
	require.Len(t, q.args[0][1].(string), maxMessageLength)
	require.Equal(t, "warning", q.args[0][2])
}

func TestNotifyManagersFansOut(t *testing.T) {
	q := &recordingQuerier{rows: 3}
	n, err := NotifyManagers(context.Background(), q, "New stock added: Sofa (4) from Mbawo Timberworks", CategoryInfo)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Contains(t, q.sql[0], "user_roles")
	require.Equal(t, shared.RoleManager, q.args[0][2])

	q.err = errors.New("conn closed")
	_, err = NotifyManagers(context.Background(), q, "x", CategoryInfo)
	require.ErrorContains(t, err, "conn closed")
}
