// Package store persists subscription identifiers between runs.
//
// Each record is addressed by an environment (for example PREVIEW or PROD)
// and a key (for example CAL_SUBSCRIPTION_ID). Before a subscription is
// created remotely a pending marker is written under the same key so that
// a crash between remote creation and local persistence can be detected
// on the next run.
package store

import (
	"context"
	"fmt"
	"time"
)

// Entry is the persisted state for one key.
type Entry struct {
	SubscriptionID string
	Pending        *Pending
	UpdatedAt      time.Time
}

// Pending marks a subscription creation that was started but whose id
// has not been recorded yet.
type Pending struct {
	Name           string    `json:"name"`
	IdempotencyKey string    `json:"idempotencyKey"`
	StartedAt      time.Time `json:"startedAt"`
}

// Empty reports whether nothing is stored for the key.
func (e Entry) Empty() bool {
	return e.SubscriptionID == "" && e.Pending == nil
}

// Store is the subscription id store. Implementations serialize writers.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	MarkPending(ctx context.Context, key string, p Pending) error
	Save(ctx context.Context, key, subscriptionID string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store for the given driver.
func Open(driver, path, env string) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(path, env), nil
	case DriverSQLite:
		return NewSQLiteStore(path, env)
	default:
		return nil, fmt.Errorf("unknown store driver %q (valid: file, sqlite)", driver)
	}
}
