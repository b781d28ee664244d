// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace maps authenticated identities to their private
// output directories.
//
// Every identity owns one directory below the output root. Its name is
// the identity with '@' and '.' replaced by '_' (and any other byte
// outside [A-Za-z0-9_-] likewise replaced), so "ana.p@example.com"
// becomes "ana_p_example_com". Reports, the run manifest, and archived
// report generations live inside it.
//
// A Workspace also carries a per-identity lock. Two sessions logged in
// as the same identity share the lock, so their processing runs do not
// interleave writes to the same reports.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File names inside a workspace.
const (
	CustomerReportName = "CB.txt"
	OperatorReportName = "IOSB.txt"
	ManifestName       = "run.cbor"
	ArchiveDirName     = "archive"
)

// ErrEmptyIdentity is returned for an identity that sanitizes to
// nothing.
var ErrEmptyIdentity = errors.New("workspace: empty identity")

// Manager resolves workspaces under a root directory. It is safe for
// concurrent use.
type Manager struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a Manager rooted at root. The root is created
// lazily by Resolve.
func NewManager(root string) *Manager {
	return &Manager{root: root, locks: make(map[string]*sync.Mutex)}
}

// Root returns the output root.
func (m *Manager) Root() string { return m.root }

// Workspace is one identity's output directory.
type Workspace struct {
	Identity string
	Dir      string

	lock *sync.Mutex
}

// Resolve returns the workspace for identity, creating its directory
// with mode 0755 if needed.
func (m *Manager) Resolve(identity string) (*Workspace, error) {
	name := DirName(identity)
	if name == "" {
		return nil, ErrEmptyIdentity
	}
	dir := filepath.Join(m.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace for %s: %w", identity, err)
	}

	m.mu.Lock()
	lock := m.locks[name]
	if lock == nil {
		lock = &sync.Mutex{}
		m.locks[name] = lock
	}
	m.mu.Unlock()

	return &Workspace{Identity: identity, Dir: dir, lock: lock}, nil
}

// DirName returns the sanitized directory name for identity.
func DirName(identity string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(identity))
}

// Lock acquires the identity's processing lock.
func (w *Workspace) Lock() { w.lock.Lock() }

// TryLock acquires the processing lock if it is free.
func (w *Workspace) TryLock() bool { return w.lock.TryLock() }

// Unlock releases the identity's processing lock.
func (w *Workspace) Unlock() { w.lock.Unlock() }

// CustomerReport returns the customer report path.
func (w *Workspace) CustomerReport() string { return filepath.Join(w.Dir, CustomerReportName) }

// OperatorReport returns the interoperator report path.
func (w *Workspace) OperatorReport() string { return filepath.Join(w.Dir, OperatorReportName) }

// Manifest returns the run manifest path.
func (w *Workspace) Manifest() string { return filepath.Join(w.Dir, ManifestName) }

// ArchiveDir returns the directory holding rotated report generations.
func (w *Workspace) ArchiveDir() string { return filepath.Join(w.Dir, ArchiveDirName) }

// ReportsExist reports whether both report files are present.
func (w *Workspace) ReportsExist() bool {
	for _, path := range []string{w.CustomerReport(), w.OperatorReport()} {
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return true
}
