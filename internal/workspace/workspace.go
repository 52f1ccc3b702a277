// Package workspace manages the lifecycle of the staging workspace: the
// local directory assembled as the exact content to be published.
package workspace

import (
	"log/slog"
	"os"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/logfields"
)

// Manager handles the staging workspace directory.
type Manager struct {
	dir string
}

// NewManager creates a manager for the fixed staging directory.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// EnsureFresh replaces the workspace with an empty directory. Prior staged
// content is fully removed, never merged, so no stale files linger across
// runs.
func (m *Manager) EnsureFresh() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return apperrors.WorkspaceError("clear", err).WithContext("path", m.dir)
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return apperrors.WorkspaceError("create", err).WithContext("path", m.dir)
	}
	slog.Debug("Staging workspace ready", logfields.Path(m.dir))
	return nil
}

// Path returns the workspace directory.
func (m *Manager) Path() string {
	return m.dir
}

// Cleanup removes the workspace directory. Callers run it as a final scoped
// step on success and failure alike, unless the configuration skips cleanup.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return apperrors.WorkspaceError("cleanup", err).WithContext("path", m.dir)
	}
	slog.Info("Cleaned up staging workspace", logfields.Path(m.dir))
	return nil
}
