// Package terminal runs commands in the active workspace and tracks the
// processes it spawns so they can be torn down on deactivation.
package terminal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"partybox/internal/workspace"
	"partybox/pkg/logging"
)

// Result captures the outcome of a terminal command.
type Result struct {
	Command  string
	Output   string
	ExitCode int
}

// WorkspaceInfo supplies the current workspace snapshot.
type WorkspaceInfo interface {
	Current() workspace.Snapshot
}

// Manager runs workspace-scoped commands.
type Manager struct {
	ws WorkspaceInfo

	mu       sync.Mutex
	procs    map[int]*exec.Cmd
	nextID   int
	disposed bool
}

// NewManager creates a terminal manager bound to the workspace source.
func NewManager(ws WorkspaceInfo) *Manager {
	return &Manager{
		ws:    ws,
		procs: make(map[int]*exec.Cmd),
	}
}

// Run executes a command with the workspace root as working directory and
// returns its combined output. The command is tracked until it exits so
// Dispose can kill stragglers.
func (m *Manager) Run(ctx context.Context, name string, args ...string) (Result, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return Result{}, fmt.Errorf("terminal manager is disposed")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if snap := m.ws.Current(); snap.Present {
		cmd.Dir = snap.Root
	}
	// Isolate from our process group so Dispose can signal cleanly.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	m.nextID++
	id := m.nextID
	m.procs[id] = cmd
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.procs, id)
		m.mu.Unlock()
	}()

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	logging.Debug("Terminal", "Running command: %s %v", name, args)

	err := cmd.Run()
	res := Result{
		Command: name,
		Output:  buf.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return res, fmt.Errorf("command %s failed: %w", name, err)
	}
	return res, nil
}

// Dispose terminates any still-running commands. Safe to call more than
// once.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return nil
	}
	m.disposed = true

	for id, cmd := range m.procs {
		if cmd.Process != nil {
			logging.Debug("Terminal", "Terminating leftover process group %d", cmd.Process.Pid)
			// Negative pid targets the whole group, so children the
			// command spawned are signaled too.
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		}
		delete(m.procs, id)
	}
	return nil
}
