package syncer

import (
	"context"

	"github.com/netfile/campaign-sync/internal/api"
)

// SessionRef identifies a session within a target.
type SessionRef struct {
	Target         string
	SubscriptionID string
	SessionID      string
	Round          int
}

// Page is a topic page delivered to a Consumer.
type Page struct {
	SessionRef
	Topic string
	*api.TopicPage
}

// Consumer receives every page read during a sync. Returning an error
// aborts the attempt and cancels the session.
type Consumer interface {
	Consume(ctx context.Context, page Page) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, page Page) error

func (f ConsumerFunc) Consume(ctx context.Context, page Page) error {
	return f(ctx, page)
}

// SessionObserver is implemented by consumers that need session
// boundaries. SessionDrained runs after every topic was read and before
// the session is completed; an error there cancels the session.
// SessionAbandoned runs after a session was cancelled.
type SessionObserver interface {
	SessionOpened(ctx context.Context, ref SessionRef) error
	SessionDrained(ctx context.Context, ref SessionRef) error
	SessionAbandoned(ctx context.Context, ref SessionRef)
}

type nopConsumer struct{}

func (nopConsumer) Consume(context.Context, Page) error { return nil }
