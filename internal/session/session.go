// Package session opens sync sessions against a subscription and drives
// each one to exactly one terminal state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
)

// State is the lifecycle state of a session.
type State int

const (
	// Draining is entered on creation and lasts until a terminal command.
	Draining State = iota
	Completed
	Cancelled
	// Closed marks a session response without an id; there is nothing to
	// terminate.
	Closed
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s != Draining
}

// Session is a handle on one remote sync session.
type Session struct {
	id             string
	subscriptionID string
	rangeLimit     int
	dataAvailable  bool
	openedAt       time.Time

	mu    sync.Mutex
	state State
}

func (s *Session) ID() string             { return s.id }
func (s *Session) SubscriptionID() string { return s.subscriptionID }
func (s *Session) RangeLimit() int        { return s.rangeLimit }
func (s *Session) DataAvailable() bool    { return s.dataAvailable }
func (s *Session) OpenedAt() time.Time    { return s.openedAt }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Guard returns ErrSessionTerminated once the session left Draining.
func (s *Session) Guard() error {
	if s.State().Terminal() {
		return fmt.Errorf("session %s is %s: %w", s.id, s.State(), api.ErrSessionTerminated)
	}
	return nil
}

// Remote is the part of the Campaign API the controller uses.
type Remote interface {
	CreateSession(ctx context.Context, subscriptionID string, rangeLimit int) (*api.SessionResponse, error)
	SessionCommand(ctx context.Context, id string, cmd api.SessionCommand) error
}

type Controller struct {
	remote Remote
	logger *zap.Logger
}

func NewController(remote Remote, logger *zap.Logger) *Controller {
	return &Controller{remote: remote, logger: logger}
}

// Open requests a session bounded to rangeLimit sequence positions. When
// the returned session reports no data available, callers must not read
// topics from it.
func (c *Controller) Open(ctx context.Context, subscriptionID string, rangeLimit int) (*Session, error) {
	resp, err := c.remote.CreateSession(ctx, subscriptionID, rangeLimit)
	if err != nil {
		return nil, fmt.Errorf("creating session for subscription %s: %w", subscriptionID, err)
	}

	if resp == nil || resp.SyncDataAvailable == nil {
		return nil, &api.ProtocolError{Op: "open session", Detail: "response has no syncDataAvailable"}
	}

	available := *resp.SyncDataAvailable
	s := &Session{
		subscriptionID: subscriptionID,
		rangeLimit:     rangeLimit,
		dataAvailable:  available,
		openedAt:       time.Now(),
		state:          Draining,
	}

	if resp.Session == nil || resp.Session.ID == "" {
		if available {
			return nil, &api.ProtocolError{Op: "open session", Detail: "sync data available but response has no session id"}
		}
		s.state = Closed
		c.logger.Debug("no sync data available", zap.String("subscription", subscriptionID))
		return s, nil
	}

	s.id = resp.Session.ID
	c.logger.Info("sync session opened",
		zap.String("session", s.id),
		zap.String("subscription", subscriptionID),
		zap.Int("range_limit", rangeLimit),
		zap.Bool("data_available", available),
	)
	return s, nil
}

// Resume wraps a session id obtained elsewhere so it can be terminated.
func (c *Controller) Resume(id string) *Session {
	return &Session{id: id, dataAvailable: true, openedAt: time.Now(), state: Draining}
}

// Complete ends a fully drained session.
func (c *Controller) Complete(ctx context.Context, s *Session) error {
	return c.transition(ctx, s, Completed, api.SessionComplete)
}

// Cancel abandons a session after a failure.
func (c *Controller) Cancel(ctx context.Context, s *Session) error {
	return c.transition(ctx, s, Cancelled, api.SessionCancel)
}

func (c *Controller) transition(ctx context.Context, s *Session, to State, cmd api.SessionCommand) error {
	if s == nil {
		return &api.ProtocolError{Op: string(cmd), Detail: "session was never opened", Err: api.ErrInvalidTransition}
	}

	s.mu.Lock()
	from := s.state
	if from != Draining {
		s.mu.Unlock()
		c.logger.Error("invalid session transition",
			zap.String("session", s.id),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		return &api.ProtocolError{
			Op:     string(cmd),
			Detail: fmt.Sprintf("session %q is %s", s.id, from),
			Err:    api.ErrInvalidTransition,
		}
	}
	// Terminal before the remote call: a failed command is not retried
	// as the other one.
	s.state = to
	s.mu.Unlock()

	if err := c.remote.SessionCommand(ctx, s.id, cmd); err != nil {
		return fmt.Errorf("%s session %s: %w", cmd, s.id, err)
	}

	c.logger.Info("sync session "+to.String(),
		zap.String("session", s.id),
		zap.Duration("duration", time.Since(s.openedAt)),
	)
	return nil
}
