// Package metrics records sync activity.
package metrics

import "time"

// Collector receives sync events. Implementations must be safe for
// concurrent use.
type Collector interface {
	// RecordAttempt records one orchestrator run for a target.
	// outcome is one of "ok", "not_ready" or "error".
	RecordAttempt(target, outcome string, duration time.Duration)
	// RecordSession records a session reaching a terminal state.
	RecordSession(target, state string)
	// RecordPage records one topic page read.
	RecordPage(target, topic string, records int, duration time.Duration)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordAttempt(_ /* target */, _ /* outcome */ string, _ time.Duration) {}

func (n *NopMetrics) RecordSession(_ /* target */, _ /* state */ string) {}

func (n *NopMetrics) RecordPage(_ /* target */, _ /* topic */ string, _ int, _ time.Duration) {}
