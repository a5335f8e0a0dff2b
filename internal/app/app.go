// Package app wires configuration into the sync engine.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
	"github.com/netfile/campaign-sync/internal/config"
	"github.com/netfile/campaign-sync/internal/metrics"
	"github.com/netfile/campaign-sync/internal/sink"
	"github.com/netfile/campaign-sync/internal/store"
	"github.com/netfile/campaign-sync/internal/subscription"
	"github.com/netfile/campaign-sync/internal/syncer"
)

type App struct {
	cfg      *config.Config
	profile  api.Profile
	gateway  api.Gateway
	store    store.Store
	consumer syncer.Consumer
	metrics  metrics.Collector
	logger   *zap.Logger
}

// New builds the shared collaborators. A nil collector disables metrics.
func New(cfg *config.Config, collector metrics.Collector, logger *zap.Logger) (*App, error) {
	profile, err := api.LookupProfile(cfg.API.Profile)
	if err != nil {
		return nil, err
	}

	gateway := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		cfg.API.APIPassword,
		cfg.API.RatePerSecond,
		cfg.API.Timeout(),
		logger,
	)

	return newApp(cfg, profile, gateway, collector, logger)
}

func newApp(cfg *config.Config, profile api.Profile, gateway api.Gateway, collector metrics.Collector, logger *zap.Logger) (*App, error) {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path, cfg.Store.Env)
	if err != nil {
		return nil, fmt.Errorf("opening subscription store: %w", err)
	}

	consumers := sink.Fanout{sink.NewLog(logger)}
	if cfg.Archive.Enabled {
		archive, err := sink.NewArchive(cfg.Archive.Directory, cfg.Archive.CompressionLevel, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("creating archive: %w", err)
		}
		consumers = append(consumers, archive)
	}

	if collector == nil {
		collector = metrics.NewNop()
	}

	logger.Debug("sync engine configured",
		zap.String("profile", profile.Name),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("archive", cfg.Archive.Enabled),
		zap.Int("targets", len(cfg.Targets)),
	)

	return &App{
		cfg:      cfg,
		profile:  profile,
		gateway:  gateway,
		store:    st,
		consumer: consumers,
		metrics:  collector,
		logger:   logger,
	}, nil
}

func (a *App) Profile() api.Profile { return a.profile }

func (a *App) Store() store.Store { return a.store }

// Campaign returns the API client scoped to a domain and agency.
func (a *App) Campaign(scope api.Scope) *api.Campaign {
	if scope.AgencyParam == "" {
		scope.AgencyParam = a.cfg.API.AgencyParam
	}
	return api.NewCampaign(a.gateway, a.profile, scope, a.logger)
}

// Subscriptions returns a subscription manager for a target.
func (a *App) Subscriptions(t syncer.Target) *subscription.Manager {
	return subscription.NewManager(a.Campaign(t.Scope), a.store, a.logger)
}

// Target converts a configured target.
func (a *App) Target(tc config.TargetConfig) syncer.Target {
	return syncer.Target{
		Name:  tc.Name,
		Scope: api.Scope{Domain: tc.Domain, AgencyID: tc.AgencyID, AgencyParam: a.cfg.API.AgencyParam},
		Subscription: subscription.Spec{
			StoreKey:              tc.StoreKey,
			Name:                  tc.SubscriptionName,
			FeedName:              tc.FeedName,
			AgencyID:              tc.AgencyID,
			Topics:                tc.Topics,
			ElementClassification: tc.ElementClassification,
			SpecificationOrg:      tc.SpecificationOrg,
		},
		Topics:     tc.Topics,
		PageSize:   tc.PageSize,
		RangeLimit: tc.RangeLimit,
		MaxRounds:  a.cfg.Sync.MaxRounds,
	}
}

// Targets resolves target names; no names selects every configured target.
func (a *App) Targets(names []string) ([]syncer.Target, error) {
	if len(names) == 0 {
		targets := make([]syncer.Target, 0, len(a.cfg.Targets))
		for _, tc := range a.cfg.Targets {
			targets = append(targets, a.Target(tc))
		}
		return targets, nil
	}

	targets := make([]syncer.Target, 0, len(names))
	for _, name := range names {
		tc, ok := a.cfg.Target(name)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		targets = append(targets, a.Target(tc))
	}
	return targets, nil
}

// Orchestrator builds the orchestrator for a target.
func (a *App) Orchestrator(t syncer.Target) (*syncer.Orchestrator, error) {
	return syncer.NewOrchestrator(a.Campaign(t.Scope), a.store, a.consumer, a.metrics, a.logger), nil
}

// Runner returns a runner sized by sync.workers.
func (a *App) Runner() *syncer.Runner {
	return syncer.NewRunner(a.Orchestrator, a.cfg.Sync.Workers, a.logger)
}

func (a *App) Close() error {
	return a.store.Close()
}
