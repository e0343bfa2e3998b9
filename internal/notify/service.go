package notify

import (
	"context"
	"fmt"

	"github.com/mayondo/mwf/internal/rbac"
)

// Service serves the notification read side.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ActivityFeed returns the latest activity: managers see what every manager was
// told, employees only their own mailbox.
func (s *Service) ActivityFeed(ctx context.Context, p rbac.Principal) ([]Notification, error) {
	var (
		items []Notification
		err   error
	)
	if p.IsManager() {
		items, err = s.repo.ListForManagers(ctx, FeedLimit)
	} else {
		items, err = s.repo.ListForUser(ctx, p.UserID, FeedLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("activity feed: %w", err)
	}
	return items, nil
}

// Unread lists the newest unread notifications of the principal.
func (s *Service) Unread(ctx context.Context, p rbac.Principal) (UnreadSummary, error) {
	items, count, err := s.repo.ListUnread(ctx, p.UserID, UnreadLimit)
	if err != nil {
		return UnreadSummary{}, fmt.Errorf("unread notifications: %w", err)
	}
	return UnreadSummary{Notifications: items, UnreadCount: count}, nil
}

// MarkRead flips one notification; other users' notifications are not found.
func (s *Service) MarkRead(ctx context.Context, p rbac.Principal, id int64) error {
	return s.repo.MarkRead(ctx, p.UserID, id)
}

// MarkAllRead flips every unread notification and reports how many changed.
func (s *Service) MarkAllRead(ctx context.Context, p rbac.Principal) (int64, error) {
	return s.repo.MarkAllRead(ctx, p.UserID)
}
