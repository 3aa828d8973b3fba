package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrOutsideWorkspace = errors.New("path is outside the output directory")
)

// Entry describes one file in the output directory
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Manager handles the scratch output directory
type Manager struct {
	mu     sync.Mutex
	dir    string
	remove func(path string) error
}

// NewManager creates a new output directory manager. The directory is not created until Ensure.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:    dir,
		remove: os.RemoveAll,
	}
}

// SetRemover replaces the function used to delete entries during Purge
func (m *Manager) SetRemover(fn func(path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove = fn
}

// Path returns the output directory path
func (m *Manager) Path() string {
	return m.dir
}

// Ensure creates the output directory if it doesn't exist
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Purge deletes every entry of the output directory.
// A failure on one entry does not stop the others; failures are returned, never fatal.
func (m *Manager) Purge() (int, []error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.Ensure(); err != nil {
		return 0, []error{err}
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, []error{fmt.Errorf("failed to read output directory: %w", err)}
	}

	removed := 0
	var failed []error
	for _, entry := range entries {
		path := filepath.Join(m.dir, entry.Name())
		if err := m.remove(path); err != nil {
			failed = append(failed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err))
			continue
		}
		removed++
	}

	return removed, failed
}

// List returns the entries of the output directory sorted by name
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}

		entries = append(entries, Entry{
			Name:    de.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   de.IsDir(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// Exists reports whether a regular file with the given name is in the output directory
func (m *Manager) Exists(name string) bool {
	info, err := os.Stat(filepath.Join(m.dir, name))
	return err == nil && info.Mode().IsRegular()
}

// Contains reports whether path resolves inside the output directory
func (m *Manager) Contains(path string) bool {
	root, err := filepath.Abs(m.dir)
	if err != nil {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Open opens an artifact for streaming. The path must be inside the output directory.
func (m *Manager) Open(path string) (*os.File, os.FileInfo, error) {
	if !m.Contains(path) {
		return nil, nil, ErrOutsideWorkspace
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat artifact: %w", err)
	}

	return f, info, nil
}
