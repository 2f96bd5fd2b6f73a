package events

import (
	"context"

	"github.com/akshay-since1987/kineticev-sub002/models"
)

// Publisher emits payment lifecycle events. Publishing is best-effort;
// callers log errors and carry on.
type Publisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.PaymentEvent) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
