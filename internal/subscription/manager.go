// Package subscription manages the durable sync subscription a consumer
// reads through. The subscription id is recorded in a store so that every
// run reuses the same subscription.
package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
	"github.com/netfile/campaign-sync/internal/store"
)

// Remote is the part of the Campaign API the manager uses.
type Remote interface {
	CreateSubscription(ctx context.Context, req api.SubscriptionRequest) (*api.Subscription, error)
	FetchSubscription(ctx context.Context, id string) (*api.Subscription, error)
	QuerySubscriptions(ctx context.Context, feedID string, limit, offset int) (*api.SubscriptionList, error)
	PeekSubscription(ctx context.Context, id string) (bool, error)
	SubscriptionCommand(ctx context.Context, id string, cmd api.SubscriptionCommand) error
}

// Spec describes the subscription a target needs.
type Spec struct {
	// StoreKey addresses the persisted id, e.g. CAL_SUBSCRIPTION_ID.
	StoreKey              string
	Name                  string
	FeedName              string
	AgencyID              string
	Topics                []string
	ElementClassification string
	SpecificationOrg      string
}

const queryPageSize = 1000

type Manager struct {
	remote Remote
	store  store.Store
	logger *zap.Logger
}

func NewManager(remote Remote, st store.Store, logger *zap.Logger) *Manager {
	return &Manager{
		remote: remote,
		store:  st,
		logger: logger,
	}
}

// Ensure returns the stored subscription id, creating and recording a new
// subscription when none is stored. The id is persisted before Ensure
// returns.
func (m *Manager) Ensure(ctx context.Context, spec Spec) (string, error) {
	entry, err := m.store.Get(ctx, spec.StoreKey)
	if err != nil {
		return "", fmt.Errorf("reading subscription store: %w", err)
	}

	if entry.SubscriptionID != "" {
		m.logger.Debug("reusing subscription",
			zap.String("key", spec.StoreKey),
			zap.String("subscription", entry.SubscriptionID),
		)
		return entry.SubscriptionID, nil
	}

	pending := entry.Pending
	if pending != nil {
		m.logger.Warn("found unfinished subscription creation",
			zap.String("key", spec.StoreKey),
			zap.String("name", pending.Name),
			zap.Time("started_at", pending.StartedAt),
		)
		id, err := m.recover(ctx, pending.Name)
		if err != nil {
			return "", err
		}
		if id != "" {
			return m.record(ctx, spec.StoreKey, id)
		}
	} else {
		pending = &store.Pending{Name: spec.Name, IdempotencyKey: uuid.NewString()}
		if err := m.store.MarkPending(ctx, spec.StoreKey, *pending); err != nil {
			return "", fmt.Errorf("recording pending subscription: %w", err)
		}
	}

	feedName := spec.FeedName
	if feedName == "" {
		if feedName, err = m.defaultFeed(ctx); err != nil {
			return "", err
		}
	}

	m.logger.Info("creating new subscription",
		zap.String("name", pending.Name),
		zap.String("feed", feedName),
		zap.Strings("topics", spec.Topics),
	)

	sub, err := m.remote.CreateSubscription(ctx, api.SubscriptionRequest{
		Name:                  pending.Name,
		FeedName:              feedName,
		AgencyID:              spec.AgencyID,
		Topics:                spec.Topics,
		ElementClassification: spec.ElementClassification,
		SpecificationOrg:      spec.SpecificationOrg,
		IdempotencyKey:        pending.IdempotencyKey,
	})
	if err != nil {
		return "", fmt.Errorf("creating subscription: %w", err)
	}

	return m.record(ctx, spec.StoreKey, sub.ID)
}

func (m *Manager) record(ctx context.Context, key, id string) (string, error) {
	if err := m.store.Save(ctx, key, id); err != nil {
		m.logger.Error("subscription created but not recorded",
			zap.String("key", key),
			zap.String("subscription", id),
			zap.Error(err),
		)
		return "", &api.ProtocolError{
			Op:     "ensure subscription",
			Detail: fmt.Sprintf("subscription %s created remotely but could not be recorded under %s", id, key),
			Err:    err,
		}
	}
	m.logger.Info("subscription recorded", zap.String("key", key), zap.String("subscription", id))
	return id, nil
}

// FeedLister is implemented by remotes that can list sync feeds.
type FeedLister interface {
	Feeds(ctx context.Context) ([]api.Feed, error)
}

type profiled interface {
	Profile() api.Profile
}

// defaultFeed returns the first feed offered by the remote, or "" when the
// remote cannot list feeds or subscribes by filters instead of feed name.
func (m *Manager) defaultFeed(ctx context.Context) (string, error) {
	if p, ok := m.remote.(profiled); ok && p.Profile().Capabilities.Filters {
		return "", nil
	}
	lister, ok := m.remote.(FeedLister)
	if !ok {
		return "", nil
	}
	feeds, err := lister.Feeds(ctx)
	if err != nil {
		return "", fmt.Errorf("listing feeds: %w", err)
	}
	if len(feeds) == 0 {
		return "", nil
	}
	m.logger.Debug("using default feed", zap.String("feed", feeds[0].Name))
	return feeds[0].Name, nil
}

// recover looks for an active subscription created by an interrupted run.
func (m *Manager) recover(ctx context.Context, name string) (string, error) {
	for offset := 0; ; offset += queryPageSize {
		list, err := m.remote.QuerySubscriptions(ctx, "", queryPageSize, offset)
		if err != nil {
			return "", fmt.Errorf("querying subscriptions: %w", err)
		}
		for _, sub := range list.Results {
			if sub.Name == name && sub.ID != "" {
				m.logger.Info("adopting subscription from interrupted run",
					zap.String("name", name),
					zap.String("subscription", sub.ID),
				)
				return sub.ID, nil
			}
		}
		if len(list.Results) < queryPageSize || offset+len(list.Results) >= list.TotalCount {
			return "", nil
		}
	}
}

// Peek reports whether the subscription has data without opening a session.
func (m *Manager) Peek(ctx context.Context, id string) (bool, error) {
	available, err := m.remote.PeekSubscription(ctx, id)
	if err != nil {
		return false, fmt.Errorf("peeking subscription %s: %w", id, err)
	}
	m.logger.Debug("peeked subscription", zap.String("subscription", id), zap.Bool("data_available", available))
	return available, nil
}

// Cancel terminates the subscription. It is irreversible.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if err := m.remote.SubscriptionCommand(ctx, id, api.SubscriptionCancel); err != nil {
		return fmt.Errorf("cancelling subscription %s: %w", id, err)
	}
	m.logger.Info("subscription cancelled", zap.String("subscription", id))
	return nil
}

// Forget removes the stored id for key.
func (m *Manager) Forget(ctx context.Context, key string) error {
	return m.store.Delete(ctx, key)
}

// Stored returns the stored id for key, or "" if none.
func (m *Manager) Stored(ctx context.Context, key string) (string, error) {
	entry, err := m.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return entry.SubscriptionID, nil
}

func (m *Manager) Fetch(ctx context.Context, id string) (*api.Subscription, error) {
	return m.remote.FetchSubscription(ctx, id)
}

func (m *Manager) List(ctx context.Context, feedID string) ([]api.Subscription, error) {
	var all []api.Subscription
	for offset := 0; ; offset += queryPageSize {
		list, err := m.remote.QuerySubscriptions(ctx, feedID, queryPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, list.Results...)
		if len(list.Results) < queryPageSize || len(all) >= list.TotalCount {
			return all, nil
		}
	}
}
