package sink

import (
	"context"
	"errors"

	"github.com/netfile/campaign-sync/internal/syncer"
)

// Fanout delivers every page to each consumer in order. Session hooks are
// forwarded to members that implement syncer.SessionObserver.
type Fanout []syncer.Consumer

var (
	_ syncer.Consumer        = Fanout(nil)
	_ syncer.SessionObserver = Fanout(nil)
)

func (f Fanout) Consume(ctx context.Context, page syncer.Page) error {
	for _, c := range f {
		if err := c.Consume(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

func (f Fanout) SessionOpened(ctx context.Context, ref syncer.SessionRef) error {
	for _, c := range f {
		if obs, ok := c.(syncer.SessionObserver); ok {
			if err := obs.SessionOpened(ctx, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f Fanout) SessionDrained(ctx context.Context, ref syncer.SessionRef) error {
	var errs []error
	for _, c := range f {
		if obs, ok := c.(syncer.SessionObserver); ok {
			errs = append(errs, obs.SessionDrained(ctx, ref))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) SessionAbandoned(ctx context.Context, ref syncer.SessionRef) {
	for _, c := range f {
		if obs, ok := c.(syncer.SessionObserver); ok {
			obs.SessionAbandoned(ctx, ref)
		}
	}
}
