package main

import (
	"fmt"

	"github.com/netfile/campaign-sync/internal/app"
	"github.com/netfile/campaign-sync/internal/syncer"
)

// newApp builds the sync engine from the loaded config. Metrics are not
// collected for one-shot commands.
func newApp() (*app.App, error) {
	return app.New(cfg, nil, logger)
}

// selectTarget returns the --target target, or the first configured one.
func selectTarget(a *app.App) (syncer.Target, error) {
	if targetName == "" {
		if len(cfg.Targets) == 0 {
			return syncer.Target{}, fmt.Errorf("no targets configured")
		}
		return a.Target(cfg.Targets[0]), nil
	}
	targets, err := a.Targets([]string{targetName})
	if err != nil {
		return syncer.Target{}, err
	}
	return targets[0], nil
}
