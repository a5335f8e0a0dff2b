package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/config"
	"github.com/netfile/campaign-sync/internal/syncer"
)

// Notifier reports the outcome of a sync run.
type Notifier interface {
	SendSuccess(ctx context.Context, result *syncer.BatchResult, label string, duration time.Duration) error
	SendFailure(ctx context.Context, result *syncer.BatchResult, label string, duration time.Duration, err error) error
}

// Outcome classifies a finished run for notification purposes.
type Outcome int

const (
	// OutcomeSynced means every target synced and records were received.
	OutcomeSynced Outcome = iota
	// OutcomeIdle means every target synced but the server had nothing new.
	OutcomeIdle
	// OutcomeNotReady means no target failed but at least one server was not ready.
	OutcomeNotReady
	// OutcomeFailed means at least one target failed.
	OutcomeFailed
)

// Classify derives the outcome from a batch and the run error.
func Classify(result *syncer.BatchResult, err error) Outcome {
	switch {
	case result == nil:
		if err != nil {
			return OutcomeFailed
		}
		return OutcomeIdle
	case result.Failed > 0:
		return OutcomeFailed
	case result.NotReady > 0:
		return OutcomeNotReady
	case err != nil:
		return OutcomeFailed
	case result.Records() == 0:
		return OutcomeIdle
	default:
		return OutcomeSynced
	}
}

type notification struct {
	title    string
	message  string
	tags     string
	priority string
}

// Client posts run notifications to an ntfy server.
type Client struct {
	httpClient *http.Client
	config     *config.NotifyConfig
	logger     *zap.Logger
}

func NewClient(cfg *config.NotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
		logger:     logger,
	}
}

func (c *Client) SendSuccess(ctx context.Context, result *syncer.BatchResult, label string, duration time.Duration) error {
	return c.publish(ctx, c.compose(Classify(result, nil), result, label, duration, nil))
}

// SendFailure reports a run that returned an error. Runs held back only by
// servers that are not ready are reported as deferred, not failed.
func (c *Client) SendFailure(ctx context.Context, result *syncer.BatchResult, label string, duration time.Duration, err error) error {
	return c.publish(ctx, c.compose(Classify(result, err), result, label, duration, err))
}

func (c *Client) compose(outcome Outcome, result *syncer.BatchResult, label string, duration time.Duration, err error) notification {
	if result == nil {
		result = &syncer.BatchResult{}
	}

	switch outcome {
	case OutcomeFailed:
		return notification{
			title:    "Sync Failed: " + label,
			message:  FormatFailureMessage(result, duration, err),
			tags:     c.tags("x"),
			priority: "high",
		}
	case OutcomeNotReady:
		return notification{
			title:    "Sync Deferred: " + label,
			message:  FormatNotReadyMessage(result, duration),
			tags:     c.tags("hourglass"),
			priority: c.config.Priority,
		}
	case OutcomeIdle:
		return notification{
			title:    "No New Filings: " + label,
			message:  FormatSuccessMessage(result, duration),
			tags:     c.tags("zzz"),
			priority: "low",
		}
	default:
		return notification{
			title:    "Sync Complete: " + label,
			message:  FormatSuccessMessage(result, duration),
			tags:     c.tags("white_check_mark"),
			priority: c.config.Priority,
		}
	}
}

func (c *Client) tags(outcome string) string {
	if c.config.Tags == "" {
		return outcome
	}
	return c.config.Tags + "," + outcome
}

func (c *Client) publish(ctx context.Context, n notification) error {
	if !c.config.Enabled {
		return nil
	}

	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(n.message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Title", n.title)
	req.Header.Set("Priority", n.priority)
	req.Header.Set("Tags", n.tags)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.String("title", n.title), zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", n.title), zap.String("priority", n.priority))
	return nil
}

// NoopNotifier is used when notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) SendSuccess(_ context.Context, _ *syncer.BatchResult, _ string, _ time.Duration) error {
	return nil
}

func (n *NoopNotifier) SendFailure(_ context.Context, _ *syncer.BatchResult, _ string, _ time.Duration, _ error) error {
	return nil
}

// New returns a Client, or a NoopNotifier when notifications are disabled.
func New(cfg *config.NotifyConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
