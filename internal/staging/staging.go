// Package staging writes files for a batch under a hidden staging root
// and moves them into place only when the batch is committed.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type Manager struct {
	baseDir     string
	stagingRoot string
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:     baseDir,
		stagingRoot: filepath.Join(baseDir, ".staging"),
	}
}

func (m *Manager) FinalDir() string {
	return m.baseDir
}

func (m *Manager) StagingRoot() string {
	return m.stagingRoot
}

// StagingDir returns the staging directory of a batch. batch may contain
// path separators.
func (m *Manager) StagingDir(batch string) string {
	return filepath.Join(m.stagingRoot, batch)
}

// BatchDir returns the final directory of a batch.
func (m *Manager) BatchDir(batch string) string {
	return filepath.Join(m.baseDir, batch)
}

func (m *Manager) PrepareStaging(batch string) error {
	return os.MkdirAll(m.StagingDir(batch), 0750)
}

// Create creates name inside the staging directory of batch.
func (m *Manager) Create(batch, name string) (*os.File, error) {
	path := filepath.Join(m.StagingDir(batch), name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}
	return f, nil
}

// CommitStaging moves every staged file of batch into the final directory
// and removes the staging directory.
func (m *Manager) CommitStaging(batch string) error {
	stagingDir := m.StagingDir(batch)
	finalDir := m.BatchDir(batch)

	err := filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(finalDir, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
			return err
		}

		return os.Rename(path, destPath)
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("committing %s: %w", batch, err)
	}
	return m.CleanupStaging(batch)
}

func (m *Manager) CleanupStaging(batch string) error {
	return os.RemoveAll(m.StagingDir(batch))
}
