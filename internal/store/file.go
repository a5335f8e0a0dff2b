package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const pendingSuffix = "_PENDING"

// FileStore keeps ids in a JSON document shaped {"ENV": {"KEY": "id"}}.
// Keys it does not own are preserved. Every write rewrites the whole file
// through a temp file and an atomic rename.
type FileStore struct {
	path string
	env  string
	mu   sync.Mutex
}

func NewFileStore(path, env string) *FileStore {
	return &FileStore{path: path, env: strings.ToUpper(env)}
}

type document map[string]map[string]json.RawMessage

func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return document{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing store %s: %w", s.path, err)
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := writeSynced(tmpPath, append(data, '\n')); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// writeSynced flushes data to disk before the caller renames it into place.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	section := doc[s.env]
	if raw, ok := section[key]; ok {
		if err := json.Unmarshal(raw, &entry.SubscriptionID); err != nil {
			return Entry{}, fmt.Errorf("%s.%s is not a string: %w", s.env, key, err)
		}
	}
	if raw, ok := section[key+pendingSuffix]; ok {
		var p Pending
		if err := json.Unmarshal(raw, &p); err != nil {
			return Entry{}, fmt.Errorf("%s.%s%s: %w", s.env, key, pendingSuffix, err)
		}
		entry.Pending = &p
	}
	return entry, nil
}

func (s *FileStore) update(key string, fn func(section map[string]json.RawMessage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	section := doc[s.env]
	if section == nil {
		section = map[string]json.RawMessage{}
		doc[s.env] = section
	}
	if err := fn(section); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *FileStore) MarkPending(_ context.Context, key string, p Pending) error {
	if p.StartedAt.IsZero() {
		p.StartedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.update(key, func(section map[string]json.RawMessage) error {
		section[key+pendingSuffix] = raw
		return nil
	})
}

func (s *FileStore) Save(_ context.Context, key, subscriptionID string) error {
	raw, err := json.Marshal(subscriptionID)
	if err != nil {
		return err
	}
	return s.update(key, func(section map[string]json.RawMessage) error {
		section[key] = raw
		delete(section, key+pendingSuffix)
		return nil
	})
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	return s.update(key, func(section map[string]json.RawMessage) error {
		delete(section, key)
		delete(section, key+pendingSuffix)
		return nil
	})
}

func (s *FileStore) Close() error {
	return nil
}
