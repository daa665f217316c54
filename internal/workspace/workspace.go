package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
)

// Manager owns a scratch directory that is wiped wholesale between uses.
type Manager struct {
	dir string
}

// NewManager returns a manager for dir. Nothing is created until Reset.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the scratch directory.
func (m *Manager) Path() string {
	return m.dir
}

// Reset wipes the scratch directory and recreates it empty.
func (m *Manager) Reset() error {
	if err := m.Wipe(); err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Wipe removes the scratch directory and everything in it.
func (m *Manager) Wipe() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to wipe scratch directory: %w", err)
	}
	slog.Debug("Wiped scratch directory", logfields.Path(m.dir))
	return nil
}

// CreateSubdir creates a fresh, uniquely named subdirectory. The scratch
// directory itself is created on demand.
func (m *Manager) CreateSubdir(prefix string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if prefix == "" {
		prefix = "work"
	}
	sub, err := os.MkdirTemp(m.dir, filepath.Base(prefix)+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return sub, nil
}
