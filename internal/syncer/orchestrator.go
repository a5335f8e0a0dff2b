// Package syncer drives complete synchronization attempts: readiness
// check, subscription, then as many session rounds as the subscription
// has data for.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
	"github.com/netfile/campaign-sync/internal/metrics"
	"github.com/netfile/campaign-sync/internal/session"
	"github.com/netfile/campaign-sync/internal/store"
	"github.com/netfile/campaign-sync/internal/subscription"
	"github.com/netfile/campaign-sync/internal/topic"
)

// Remote is the Campaign API surface an attempt needs.
type Remote interface {
	subscription.Remote
	session.Remote
	topic.Remote
	SystemReport(ctx context.Context) (*api.SystemReport, error)
	Profile() api.Profile
}

// Target is one configured sync lifecycle.
type Target struct {
	Name string
	// Scope selects the domain and agency the target talks to.
	Scope        api.Scope
	Subscription subscription.Spec
	// Topics are drained in this order every session.
	Topics     []string
	PageSize   int
	RangeLimit int
	// MaxRounds caps session rounds per attempt; 0 means no cap.
	MaxRounds int
}

type TopicStats struct {
	Pages   int
	Records int
}

// Result summarizes one attempt.
type Result struct {
	Target            string
	SubscriptionID    string
	Rounds            int
	SessionsCompleted int
	SessionsCancelled int
	Topics            map[string]*TopicStats
	Duration          time.Duration
}

// Records returns the number of records read across all topics.
func (r *Result) Records() int {
	n := 0
	for _, s := range r.Topics {
		n += s.Records
	}
	return n
}

type Orchestrator struct {
	remote    Remote
	subs      *subscription.Manager
	sessions  *session.Controller
	paginator *topic.Paginator
	consumer  Consumer
	metrics   metrics.Collector
	logger    *zap.Logger
}

func NewOrchestrator(remote Remote, st store.Store, consumer Consumer, collector metrics.Collector, logger *zap.Logger) *Orchestrator {
	if consumer == nil {
		consumer = nopConsumer{}
	}
	if collector == nil {
		collector = metrics.NewNop()
	}
	return &Orchestrator{
		remote:    remote,
		subs:      subscription.NewManager(remote, st, logger),
		sessions:  session.NewController(remote, logger),
		paginator: topic.NewPaginator(remote, logger),
		consumer:  consumer,
		metrics:   collector,
		logger:    logger,
	}
}

// Run performs one synchronization attempt for t. A system that is not
// ready yields *api.NotReadyError before any subscription or session call.
func (o *Orchestrator) Run(ctx context.Context, t Target) (result *Result, err error) {
	start := time.Now()
	result = &Result{Target: t.Name, Topics: make(map[string]*TopicStats)}
	logger := o.logger.With(zap.String("target", t.Name))

	defer func() {
		result.Duration = time.Since(start)
		outcome := "ok"
		var notReady *api.NotReadyError
		switch {
		case errors.As(err, &notReady):
			outcome = "not_ready"
		case err != nil:
			outcome = "error"
		}
		o.metrics.RecordAttempt(t.Name, outcome, result.Duration)
	}()

	logger.Info("starting synchronization lifecycle")

	report, err := o.remote.SystemReport(ctx)
	if err != nil {
		return result, fmt.Errorf("fetching system report: %w", err)
	}
	if !report.Ready() {
		logger.Warn("campaign api is not ready", zap.String("status", report.GeneralStatus))
		return result, &api.NotReadyError{Status: report.GeneralStatus}
	}

	subID, err := o.subs.Ensure(ctx, t.Subscription)
	if err != nil {
		return result, err
	}
	result.SubscriptionID = subID

	usePeek := o.remote.Profile().Capabilities.Peek
	if usePeek {
		available, err := o.subs.Peek(ctx, subID)
		if err != nil {
			return result, err
		}
		if !available {
			logger.Info("no sync data available", zap.String("subscription", subID))
			return result, nil
		}
	}

	for round := 1; t.MaxRounds == 0 || round <= t.MaxRounds; round++ {
		drained, err := o.round(ctx, t, subID, round, result)
		if err != nil {
			return result, err
		}
		if !drained {
			break
		}
		if usePeek {
			available, err := o.subs.Peek(ctx, subID)
			if err != nil {
				return result, err
			}
			if !available {
				break
			}
		}
		if t.MaxRounds > 0 && round == t.MaxRounds {
			logger.Warn("round limit reached with data still pending", zap.Int("max_rounds", t.MaxRounds))
		}
	}

	logger.Info("synchronization lifecycle complete",
		zap.Int("rounds", result.Rounds),
		zap.Int("records", result.Records()),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// round opens one session and drains it. It reports whether a session
// with data was drained and completed.
func (o *Orchestrator) round(ctx context.Context, t Target, subID string, n int, result *Result) (bool, error) {
	s, err := o.sessions.Open(ctx, subID, t.RangeLimit)
	if err != nil {
		return false, err
	}

	ref := SessionRef{Target: t.Name, SubscriptionID: subID, SessionID: s.ID(), Round: n}

	if !s.DataAvailable() {
		o.logger.Info("no sync data available", zap.String("target", t.Name), zap.String("subscription", subID))
		if s.State() == session.Draining {
			// id-bearing empty session still gets its terminal command
			if err := o.sessions.Complete(ctx, s); err != nil {
				return false, err
			}
			result.SessionsCompleted++
			o.metrics.RecordSession(t.Name, session.Completed.String())
		}
		return false, nil
	}

	result.Rounds++

	defer func() {
		if r := recover(); r != nil {
			if s.State() == session.Draining {
				_ = o.abandon(ctx, t, s, ref, result)
			}
			panic(r)
		}
	}()

	if err := o.drain(ctx, t, s, ref, result); err != nil {
		o.logger.Error("sync session failed, cancelling",
			zap.String("target", t.Name),
			zap.String("session", s.ID()),
			zap.Error(err),
		)
		if cancelErr := o.abandon(ctx, t, s, ref, result); cancelErr != nil {
			return false, errors.Join(err, cancelErr)
		}
		return false, err
	}

	if err := o.sessions.Complete(ctx, s); err != nil {
		return false, err
	}
	result.SessionsCompleted++
	o.metrics.RecordSession(t.Name, session.Completed.String())
	return true, nil
}

func (o *Orchestrator) abandon(ctx context.Context, t Target, s *session.Session, ref SessionRef, result *Result) error {
	// the caller's context may already be cancelled
	err := o.sessions.Cancel(context.WithoutCancel(ctx), s)
	result.SessionsCancelled++
	o.metrics.RecordSession(t.Name, session.Cancelled.String())
	if obs, ok := o.consumer.(SessionObserver); ok {
		obs.SessionAbandoned(context.WithoutCancel(ctx), ref)
	}
	return err
}

func (o *Orchestrator) drain(ctx context.Context, t Target, s *session.Session, ref SessionRef, result *Result) error {
	obs, hasObserver := o.consumer.(SessionObserver)
	if hasObserver {
		if err := obs.SessionOpened(ctx, ref); err != nil {
			return fmt.Errorf("preparing consumer: %w", err)
		}
	}

	for _, name := range t.Topics {
		stats := result.Topics[name]
		if stats == nil {
			stats = &TopicStats{}
			result.Topics[name] = stats
		}

		o.logger.Info("synchronizing topic", zap.String("target", t.Name), zap.String("topic", name))

		reader := o.paginator.Read(s, name, t.PageSize)
		mark := time.Now()
		for page, err := range reader.All(ctx) {
			if err != nil {
				return err
			}
			logPage(o.logger, name, page)

			if err := o.consumer.Consume(ctx, Page{SessionRef: ref, Topic: name, TopicPage: page}); err != nil {
				return fmt.Errorf("consuming topic %s at offset %d: %w", name, page.Offset, err)
			}

			stats.Pages++
			stats.Records += len(page.Results)
			o.metrics.RecordPage(t.Name, name, len(page.Results), time.Since(mark))
			mark = time.Now()
		}

		o.logger.Info("topic synchronized",
			zap.String("target", t.Name),
			zap.String("topic", name),
			zap.Int("pages", reader.Pages()),
			zap.Int("records", reader.Records()),
			zap.Duration("avg_request", reader.AverageRequest()),
		)
	}

	if hasObserver {
		if err := obs.SessionDrained(ctx, ref); err != nil {
			return fmt.Errorf("committing consumer: %w", err)
		}
	}
	return nil
}

func logPage(logger *zap.Logger, name string, page *api.TopicPage) {
	if page.TotalCount == 0 {
		logger.Info("no records available", zap.String("topic", name))
		return
	}
	first := page.FirstRecord()
	logger.Info("retrieved records",
		zap.String("topic", name),
		zap.Int("from", first),
		zap.Int("to", first+len(page.Results)-1),
		zap.Int("total", page.TotalCount),
	)
	logger.Debug("page details",
		zap.String("topic", name),
		zap.Int("offset", page.Offset),
		zap.Int("limit", page.Limit),
		zap.Int("page_number", page.PageNumber),
		zap.Bool("has_previous_page", page.HasPreviousPage),
		zap.Bool("has_next_page", page.HasNextPage),
	)
}
