// Package notify records user-facing outcome notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crewdesk/console/internal/domain"
)

// DefaultCapacity is the number of notifications a Feed keeps.
const DefaultCapacity = 50

// Feed keeps the most recent notifications in memory and logs each one.
// It is safe for concurrent use.
type Feed struct {
	mu       sync.Mutex
	items    []domain.Notification
	capacity int
	nextID   int64
	now      func() time.Time
	log      *slog.Logger
}

// NewFeed constructs a Feed holding up to capacity notifications.
// A non-positive capacity means DefaultCapacity.
func NewFeed(capacity int, log *slog.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Feed{capacity: capacity, now: time.Now, log: log}
}

// Notify appends a notification, evicting the oldest when the feed is full.
func (f *Feed) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	f.mu.Lock()
	f.nextID++
	n := domain.Notification{ID: f.nextID, Kind: kind, Message: message, CreatedAt: f.now().UTC()}
	f.items = append(f.items, n)
	if over := len(f.items) - f.capacity; over > 0 {
		f.items = append(f.items[:0], f.items[over:]...)
	}
	f.mu.Unlock()

	f.log.InfoContext(ctx, "notification", "id", n.ID, "kind", string(kind), "message", message)
}

// Recent returns up to limit notifications, newest first.
// A non-positive limit returns everything held.
func (f *Feed) Recent(limit int) []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	if limit <= 0 || limit > len(f.items) {
		limit = len(f.items)
	}
	out := make([]domain.Notification, 0, limit)
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.items[i])
	}
	return out
}
