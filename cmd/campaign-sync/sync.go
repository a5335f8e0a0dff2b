package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func syncCmd() *cobra.Command {
	var (
		maxRounds int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "sync [TARGET...]",
		Short: "Run the full synchronization lifecycle",
		Long: `Run the complete synchronization lifecycle for the given targets, or
for every configured target when none are named.

For each target the system report is checked, the stored subscription is
reused (or created and recorded), and sync sessions are opened and drained
topic by topic until no more data is available.

Examples:
  # Sync every configured target
  campaign-sync sync

  # Sync one target, at most 3 sessions
  campaign-sync sync --max-rounds 3 sfo`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if cmd.Flags().Changed("max-rounds") {
				cfg.Sync.MaxRounds = maxRounds
			}
			if cmd.Flags().Changed("workers") {
				cfg.Sync.Workers = workers
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			targets, err := a.Targets(args)
			if err != nil {
				return err
			}

			start := time.Now()
			batch := a.Runner().RunAll(ctx, targets)

			for _, r := range batch.Results {
				if r.Result == nil {
					continue
				}
				logger.Info("target summary",
					zap.String("target", r.Target),
					zap.String("subscription", r.Result.SubscriptionID),
					zap.Int("sessions_completed", r.Result.SessionsCompleted),
					zap.Int("sessions_cancelled", r.Result.SessionsCancelled),
					zap.Int("records", r.Result.Records()),
					zap.Duration("duration", r.Result.Duration),
				)
			}

			// Print summary
			logger.Info("sync complete",
				zap.Int("targets", batch.Total),
				zap.Int("succeeded", batch.Succeeded),
				zap.Int("not_ready", batch.NotReady),
				zap.Int("failed", batch.Failed),
				zap.Int("records", batch.Records()),
				zap.Duration("duration", time.Since(start)),
			)

			if err := batch.Err(); err != nil {
				for _, e := range batch.Errors {
					logger.Error("sync error", zap.String("error", e))
				}
				return fmt.Errorf("%d of %d targets did not sync: %w", batch.Failed+batch.NotReady, batch.Total, err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "maximum sessions per target (0 = until drained)")
	cmd.Flags().IntVar(&workers, "workers", 1, "targets synced concurrently")

	return cmd
}
