package sink

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/syncer"
)

// Log counts records per session and topic and logs a summary when the
// session ends.
type Log struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[string]map[string]int
}

var (
	_ syncer.Consumer        = (*Log)(nil)
	_ syncer.SessionObserver = (*Log)(nil)
)

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger, counts: make(map[string]map[string]int)}
}

func (l *Log) SessionOpened(_ context.Context, ref syncer.SessionRef) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[batchKey(ref)] = make(map[string]int)
	return nil
}

func (l *Log) Consume(_ context.Context, page syncer.Page) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := batchKey(page.SessionRef)
	if l.counts[key] == nil {
		l.counts[key] = make(map[string]int)
	}
	l.counts[key][page.Topic] += len(page.Results)
	return nil
}

func (l *Log) take(ref syncer.SessionRef) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := batchKey(ref)
	counts := l.counts[key]
	delete(l.counts, key)
	return counts
}

func (l *Log) SessionDrained(_ context.Context, ref syncer.SessionRef) error {
	counts := l.take(ref)
	fields := []zap.Field{
		zap.String("target", ref.Target),
		zap.String("session", ref.SessionID),
		zap.Int("round", ref.Round),
	}
	for topic, n := range counts {
		fields = append(fields, zap.Int(topic, n))
	}
	l.logger.Info("session drained", fields...)
	return nil
}

func (l *Log) SessionAbandoned(_ context.Context, ref syncer.SessionRef) {
	counts := l.take(ref)
	total := 0
	for _, n := range counts {
		total += n
	}
	l.logger.Warn("session abandoned, records will be delivered again",
		zap.String("target", ref.Target),
		zap.String("session", ref.SessionID),
		zap.Int("records", total),
	)
}

// Counts returns the records seen so far for an open session.
func (l *Log) Counts(ref syncer.SessionRef) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts[batchKey(ref)]))
	for k, v := range l.counts[batchKey(ref)] {
		out[k] = v
	}
	return out
}
