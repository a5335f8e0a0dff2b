// Package sink provides page consumers for the sync orchestrator.
package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/staging"
	"github.com/netfile/campaign-sync/internal/syncer"
)

// Archive writes every record of a session as gzip-compressed JSON lines,
// one file per topic. Files are staged while the session drains and are
// moved to <dir>/<target>/<date>/<session>/<topic>.jsonl.gz when it
// completes. A cancelled session leaves nothing behind.
type Archive struct {
	staging *staging.Manager
	level   int
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	batches map[string]*batch
}

var (
	_ syncer.Consumer        = (*Archive)(nil)
	_ syncer.SessionObserver = (*Archive)(nil)
)

// NewArchive creates an archive rooted at dir. level is a gzip compression
// level; 0 selects the default.
func NewArchive(dir string, level int, logger *zap.Logger) (*Archive, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("invalid compression level %d", level)
	}
	return &Archive{
		staging: staging.NewManager(dir),
		level:   level,
		now:     time.Now,
		logger:  logger,
		batches: make(map[string]*batch),
	}, nil
}

type batch struct {
	name    string
	files   map[string]*topicFile
	records int
}

type topicFile struct {
	f   *os.File
	gz  *gzip.Writer
	w   *bufio.Writer
	buf bytes.Buffer
}

func (t *topicFile) write(record json.RawMessage) error {
	t.buf.Reset()
	if err := json.Compact(&t.buf, record); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	t.buf.WriteByte('\n')
	_, err := t.w.Write(t.buf.Bytes())
	return err
}

func (t *topicFile) close() error {
	return errors.Join(t.w.Flush(), t.gz.Close(), t.f.Close())
}

func batchKey(ref syncer.SessionRef) string {
	return ref.Target + "/" + ref.SessionID
}

func (a *Archive) SessionOpened(_ context.Context, ref syncer.SessionRef) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openLocked(ref)
	return nil
}

func (a *Archive) openLocked(ref syncer.SessionRef) *batch {
	key := batchKey(ref)
	if b, ok := a.batches[key]; ok {
		return b
	}
	b := &batch{
		name:  filepath.Join(ref.Target, a.now().UTC().Format("2006-01-02"), ref.SessionID),
		files: make(map[string]*topicFile),
	}
	a.batches[key] = b
	return b
}

func (a *Archive) Consume(_ context.Context, page syncer.Page) error {
	a.mu.Lock()
	b := a.openLocked(page.SessionRef)
	a.mu.Unlock()

	tf, ok := b.files[page.Topic]
	if !ok {
		f, err := a.staging.Create(b.name, page.Topic+".jsonl.gz")
		if err != nil {
			return err
		}
		gz, err := gzip.NewWriterLevel(f, a.level)
		if err != nil {
			_ = f.Close()
			return err
		}
		gz.Name = page.Topic + ".jsonl"
		tf = &topicFile{f: f, gz: gz, w: bufio.NewWriter(gz)}
		b.files[page.Topic] = tf
	}

	for _, record := range page.Results {
		if err := tf.write(record); err != nil {
			return fmt.Errorf("archiving %s: %w", page.Topic, err)
		}
	}
	b.records += len(page.Results)
	return nil
}

func (a *Archive) take(ref syncer.SessionRef) (*batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := batchKey(ref)
	b, ok := a.batches[key]
	if !ok {
		return nil, nil
	}
	delete(a.batches, key)

	var errs []error
	for _, tf := range b.files {
		errs = append(errs, tf.close())
	}
	return b, errors.Join(errs...)
}

// SessionDrained commits the session's files.
func (a *Archive) SessionDrained(_ context.Context, ref syncer.SessionRef) error {
	b, err := a.take(ref)
	if b == nil {
		return nil
	}
	if err != nil {
		_ = a.staging.CleanupStaging(b.name)
		return fmt.Errorf("closing archive files: %w", err)
	}
	if len(b.files) == 0 {
		return a.staging.CleanupStaging(b.name)
	}
	if err := a.staging.CommitStaging(b.name); err != nil {
		return err
	}
	a.logger.Info("session archived",
		zap.String("target", ref.Target),
		zap.String("session", ref.SessionID),
		zap.String("dir", a.staging.BatchDir(b.name)),
		zap.Int("records", b.records),
	)
	return nil
}

// SessionAbandoned discards the session's staged files.
func (a *Archive) SessionAbandoned(_ context.Context, ref syncer.SessionRef) {
	b, _ := a.take(ref)
	if b == nil {
		return
	}
	if err := a.staging.CleanupStaging(b.name); err != nil {
		a.logger.Warn("failed to remove staged archive", zap.String("session", ref.SessionID), zap.Error(err))
	}
}
