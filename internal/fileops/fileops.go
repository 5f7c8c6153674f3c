// Package fileops provides workspace-confined file operations. The
// manager is stateless and holds no resources, which is why activation
// never registers it for disposal.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"partybox/internal/workspace"
)

// WorkspaceInfo supplies the current workspace snapshot.
type WorkspaceInfo interface {
	Current() workspace.Snapshot
}

// Manager performs file operations rooted at the active workspace.
type Manager struct {
	ws WorkspaceInfo
}

// NewManager creates a file operations manager bound to the workspace
// source.
func NewManager(ws WorkspaceInfo) *Manager {
	return &Manager{ws: ws}
}

// resolve maps a workspace-relative path to an absolute one, rejecting
// paths that escape the workspace root.
func (m *Manager) resolve(rel string) (string, error) {
	snap := m.ws.Current()
	if !snap.Present {
		return "", fmt.Errorf("no workspace is open")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be workspace-relative", rel)
	}
	abs := filepath.Join(snap.Root, rel)
	cleanRoot := filepath.Clean(snap.Root) + string(filepath.Separator)
	if !strings.HasPrefix(abs, cleanRoot) && abs != filepath.Clean(snap.Root) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return abs, nil
}

// ReadFile returns the contents of a workspace file.
func (m *Manager) ReadFile(rel string) (string, error) {
	abs, err := m.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// WriteFile writes content to a workspace file, creating parent
// directories as needed.
func (m *Manager) WriteFile(rel string, content string) error {
	abs, err := m.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// ApplyEdit replaces the first occurrence of old with new in a workspace
// file. It fails when old is not found so a stale edit cannot corrupt
// the file silently.
func (m *Manager) ApplyEdit(rel string, old, new string) error {
	content, err := m.ReadFile(rel)
	if err != nil {
		return err
	}
	idx := strings.Index(content, old)
	if idx < 0 {
		return fmt.Errorf("edit target not found in %s", rel)
	}
	updated := content[:idx] + new + content[idx+len(old):]
	return m.WriteFile(rel, updated)
}

// ListDir returns the sorted entry names of a workspace directory.
func (m *Manager) ListDir(rel string) ([]string, error) {
	abs, err := m.resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rel, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
