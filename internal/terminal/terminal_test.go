package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partybox/internal/workspace"
)

func TestRun_ExecutesInWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	ws := workspace.NewSource(root)
	mgr := NewManager(ws)
	defer func() { _ = mgr.Dispose() }()

	res, err := mgr.Run(context.Background(), "pwd")
	require.NoError(t, err)
	assert.Equal(t, root, strings.TrimSpace(res.Output))
	assert.Equal(t, 0, res.ExitCode)
}

func TestRun_NoWorkspaceStillRuns(t *testing.T) {
	ws := workspace.NewSource("")
	mgr := NewManager(ws)
	defer func() { _ = mgr.Dispose() }()

	res, err := mgr.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Output)
}

func TestRun_FailingCommandReturnsOutputAndError(t *testing.T) {
	ws := workspace.NewSource(t.TempDir())
	mgr := NewManager(ws)
	defer func() { _ = mgr.Dispose() }()

	res, err := mgr.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	assert.Error(t, err)
	assert.Contains(t, res.Output, "oops")
	assert.Equal(t, 3, res.ExitCode)
}

func TestDispose_TerminatesRunningProcessGroup(t *testing.T) {
	ws := workspace.NewSource(t.TempDir())
	mgr := NewManager(ws)

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Run(context.Background(), "sh", "-c", "sleep 30 & wait")
		done <- err
	}()

	// Wait for the shell to be started and tracked.
	require.Eventually(t, func() bool {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		for _, cmd := range mgr.procs {
			if cmd.Process != nil {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, mgr.Dispose())

	select {
	case err := <-done:
		assert.Error(t, err, "the signaled command reports termination")
	case <-time.After(3 * time.Second):
		t.Fatal("command survived Dispose")
	}
}

func TestDispose_RejectsFurtherCommands(t *testing.T) {
	ws := workspace.NewSource(t.TempDir())
	mgr := NewManager(ws)

	assert.NoError(t, mgr.Dispose())
	assert.NoError(t, mgr.Dispose())

	_, err := mgr.Run(context.Background(), "echo", "late")
	assert.Error(t, err)
}
