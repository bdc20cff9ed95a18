package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	lifecycle "github.com/phillip/food-rescue-go/lifecycle"
	metrics "github.com/phillip/food-rescue-go/metrics"
	models "github.com/phillip/food-rescue-go/models"
	store "github.com/phillip/food-rescue-go/store"
)

// FanOut appends notifications after the posting write has committed.
// Delivery is at-most-once: a failed append is logged and dropped, it never
// rolls back or fails the write that caused it.
type FanOut struct {
	store  store.NotificationStore
	logger *zap.Logger
}

func NewFanOut(s store.NotificationStore, logger *zap.Logger) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{store: s, logger: logger}
}

// Publish derives and appends the notifications for t.
func (f *FanOut) Publish(ctx context.Context, t lifecycle.Transition) {
	f.Send(ctx, Derive(t)...)
}

// Send appends notifications stamped with a single creation time.
func (f *FanOut) Send(ctx context.Context, notifications ...models.Notification) {
	if len(notifications) == 0 {
		return
	}
	now := time.Now().UTC()
	for i := range notifications {
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = now
		}
	}

	if err := f.store.Append(ctx, notifications...); err != nil {
		metrics.NotificationFailures.Inc()
		f.logger.Warn("dropping notifications",
			zap.Int("count", len(notifications)),
			zap.Error(err))
		return
	}
	for _, n := range notifications {
		metrics.Notifications.WithLabelValues(string(n.Type)).Inc()
	}
	f.logger.Debug("notifications appended", zap.Int("count", len(notifications)))
}
