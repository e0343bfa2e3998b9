// Package notify keeps the per user notification mailbox.
package notify

import (
	"context"
	"errors"
	"time"
)

// Category tags a notification for presentation.
type Category string

const (
	CategoryInfo    Category = "info"
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
)

const (
	// FeedLimit caps the activity feed.
	FeedLimit = 10
	// UnreadLimit caps the unread listing.
	UnreadLimit = 20
	// maxMessageLength mirrors the column width.
	maxMessageLength = 255
)

// ErrInvalidCategory rejects categories outside info/success/warning.
var ErrInvalidCategory = errors.New("notify: invalid category")

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryInfo || c == CategorySuccess || c == CategoryWarning
}

// Notification is one mailbox entry.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"user,omitempty"`
	Message   string    `json:"message"`
	Category  Category  `json:"activity_type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadSummary is the unread listing with the full unread count.
type UnreadSummary struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

// RepositoryPort abstracts storage for the read side.
type RepositoryPort interface {
	ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error)
	ListForManagers(ctx context.Context, limit int) ([]Notification, error)
	ListUnread(ctx context.Context, userID int64, limit int) ([]Notification, int, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

func truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= maxMessageLength {
		return message
	}
	return string(runes[:maxMessageLength])
}
