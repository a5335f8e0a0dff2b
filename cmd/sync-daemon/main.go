package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/app"
	"github.com/netfile/campaign-sync/internal/config"
	"github.com/netfile/campaign-sync/internal/metrics"
	"github.com/netfile/campaign-sync/internal/notify"
	"github.com/netfile/campaign-sync/internal/server"
	"github.com/netfile/campaign-sync/internal/syncer"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("daemon configuration loaded",
		zap.Duration("interval", cfg.Daemon.Interval),
		zap.Bool("businessDaysOnly", cfg.Daemon.BusinessDaysOnly),
		zap.String("timezone", cfg.Daemon.Timezone),
		zap.String("stateFile", cfg.Daemon.StateFile),
		zap.Bool("runOnStartup", cfg.Daemon.RunOnStartup),
		zap.String("listenAddr", cfg.Daemon.ListenAddr),
		zap.Int("targets", len(cfg.Targets)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.New(cfg, metrics.NewPrometheus(reg, "campaign_sync"), logger)
	if err != nil {
		logger.Error("failed to initialize sync engine", zap.Error(err))
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := NewScheduler(cfg.Daemon.Interval, cfg.Daemon.BusinessDaysOnly, cfg.Daemon.Timezone)
	tracker := NewRunTracker(cfg.Daemon.StateFile)
	notifier := notify.New(&cfg.Notify, logger)

	runs := server.NewRunManager(ctx, syncAll(a, scheduler, tracker, notifier, logger), logger)

	srv := &http.Server{
		Addr:              cfg.Daemon.ListenAddr,
		Handler:           server.NewRouter(runs, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()

	logger.Info("daemon started", zap.Time("lastRun", tracker.LastRun()))

	if cfg.Daemon.RunOnStartup {
		logger.Info("checking for due sync on startup")
		runIfDue(ctx, runs, scheduler, tracker, logger)
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runIfDue(ctx, runs, scheduler, tracker, logger)

		case <-ctx.Done():
			logger.Info("received shutdown signal, stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
			cancel()
			runs.Wait()
			return 0
		}
	}
}

func runIfDue(ctx context.Context, runs *server.RunManager, scheduler *Scheduler, tracker *RunTracker, logger *zap.Logger) {
	now := time.Now()
	if !scheduler.Due(tracker.LastRun(), now) {
		return
	}

	logger.Info("sync run due", zap.String("at", scheduler.Label(now)))
	if _, err := runs.Run(ctx, "schedule"); errors.Is(err, server.ErrRunInProgress) {
		logger.Debug("skipping scheduled run, one is already in progress")
	}
}

// syncAll runs every configured target, records the run and sends the
// outcome notification.
func syncAll(a *app.App, scheduler *Scheduler, tracker *RunTracker, notifier notify.Notifier, logger *zap.Logger) server.RunFunc {
	return func(ctx context.Context) *syncer.BatchResult {
		start := time.Now()
		label := scheduler.Label(start)

		targets, err := a.Targets(nil)
		if err != nil {
			logger.Error("resolving targets", zap.Error(err))
			return nil
		}

		batch := a.Runner().RunAll(ctx, targets)
		duration := time.Since(start)

		// Failed runs are recorded too and retried at the next interval
		if err := tracker.SetLastRun(start); err != nil {
			logger.Error("failed to update tracker", zap.Error(err))
		}

		notifyCtx := context.WithoutCancel(ctx)
		if err := batch.Err(); err != nil {
			logger.Error("sync run failed", zap.Error(err))
			if nerr := notifier.SendFailure(notifyCtx, batch, label, duration, err); nerr != nil {
				logger.Warn("failed to send failure notification", zap.Error(nerr))
			}
			return batch
		}

		if err := notifier.SendSuccess(notifyCtx, batch, label, duration); err != nil {
			logger.Warn("failed to send success notification", zap.Error(err))
		}
		return batch
	}
}
