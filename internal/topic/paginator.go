// Package topic walks the pages of a topic inside a sync session.
package topic

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
)

var (
	// ErrDone is returned by Next after the last page.
	ErrDone = errors.New("no more pages")
	// ErrConcurrentRead is returned when Next is called while another call
	// on the same reader is in flight.
	ErrConcurrentRead = errors.New("concurrent read on topic reader")
)

// Remote reads one page of a topic.
type Remote interface {
	ReadTopic(ctx context.Context, sessionID, topic string, limit, offset int) (*api.TopicPage, error)
}

// Session is the session a topic is read from.
type Session interface {
	ID() string
	Guard() error
}

type Paginator struct {
	remote Remote
	logger *zap.Logger
}

func NewPaginator(remote Remote, logger *zap.Logger) *Paginator {
	return &Paginator{remote: remote, logger: logger}
}

// Read returns a lazy reader over the pages of topic. No request is made
// until Next is called.
func (p *Paginator) Read(s Session, topic string, pageSize int) *Reader {
	return &Reader{
		remote:   p.remote,
		logger:   p.logger.With(zap.String("session", s.ID()), zap.String("topic", topic)),
		session:  s,
		topic:    topic,
		pageSize: pageSize,
	}
}

// Reader is a finite, non-restartable page sequence. It is not safe for
// concurrent use.
type Reader struct {
	remote   Remote
	logger   *zap.Logger
	session  Session
	topic    string
	pageSize int

	busy    atomic.Bool
	offset  int
	err     error
	pages   int
	records int
	elapsed time.Duration
}

func (r *Reader) Topic() string { return r.topic }

// Offset is the offset of the next page to be requested.
func (r *Reader) Offset() int { return r.offset }

// Pages is the number of pages returned so far.
func (r *Reader) Pages() int { return r.pages }

// Records is the number of records returned so far.
func (r *Reader) Records() int { return r.records }

// AverageRequest is the mean time of a page request.
func (r *Reader) AverageRequest() time.Duration {
	if r.pages == 0 {
		return 0
	}
	return r.elapsed / time.Duration(r.pages)
}

// Next fetches the next page. After the last page it returns ErrDone; after
// a failure it keeps returning that failure.
func (r *Reader) Next(ctx context.Context) (*api.TopicPage, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrConcurrentRead
	}
	defer r.busy.Store(false)

	if r.err != nil {
		return nil, r.err
	}
	if r.pageSize < 1 {
		r.err = fmt.Errorf("topic %s: page size must be >= 1, got %d", r.topic, r.pageSize)
		return nil, r.err
	}
	if err := r.session.Guard(); err != nil {
		r.err = err
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		r.err = fmt.Errorf("topic %s: %w", r.topic, err)
		return nil, r.err
	}

	r.logger.Debug("fetching topic page", zap.Int("offset", r.offset), zap.Int("limit", r.pageSize))

	start := time.Now()
	page, err := r.remote.ReadTopic(ctx, r.session.ID(), r.topic, r.pageSize, r.offset)
	took := time.Since(start)
	if err != nil {
		r.logger.Error("topic page failed", zap.Int("offset", r.offset), zap.Error(err))
		r.err = fmt.Errorf("reading topic %s at offset %d: %w", r.topic, r.offset, err)
		return nil, r.err
	}
	if page == nil {
		r.err = &api.ProtocolError{Op: "read topic", Detail: fmt.Sprintf("%s at offset %d returned no page", r.topic, r.offset)}
		return nil, r.err
	}

	r.pages++
	r.records += len(page.Results)
	r.elapsed += took

	if page.HasNextPage {
		r.offset += r.pageSize
	} else {
		r.err = ErrDone
	}
	return page, nil
}

// All ranges over the remaining pages. Iteration stops at the first error,
// which is yielded with a nil page.
func (r *Reader) All(ctx context.Context) iter.Seq2[*api.TopicPage, error] {
	return func(yield func(*api.TopicPage, error) bool) {
		for {
			page, err := r.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}
