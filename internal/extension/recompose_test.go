package extension

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partybox/internal/config"
	"partybox/internal/workspace"
)

func activatedHarness(t *testing.T, endpoint string) *testHarness {
	t.Helper()
	h := newTestHarness(testConfig(endpoint), "/tmp/project")
	h.coordinator.Activate(h.hctx)
	h.waitProbe(t)
	require.Equal(t, 1, h.boxClientCount())
	return h
}

func TestRecompose_ConfigChangeRebuildsClients(t *testing.T) {
	h := activatedHarness(t, "https://box-one.example")
	previous := h.requests.currentClient()
	h.configMgr.reloadSnap = testConfig("https://box-two.example")

	h.configMgr.fireChange(config.Event{Namespace: config.Namespace})

	assert.Equal(t, 1, h.configMgr.reloads, "a matching event reloads from source")
	assert.Equal(t, 2, h.boxClientCount(), "exactly one replacement client pair")

	// The request handler now routes to the new client; the old one
	// is no longer referenced anywhere.
	current := h.requests.currentClient()
	assert.NotSame(t, previous, current)
	assert.Same(t, h.lastBoxClient(), current)
	assert.Equal(t, "https://box-two.example", h.lastBoxClient().cfg.Backend.Endpoint)

	// Long-lived components received the fresh snapshot.
	assert.Equal(t, 1, h.chatPanel.updateCount())
	assert.Equal(t, 1, h.commands.updateCount())
}

func TestRecompose_ForeignNamespaceIgnored(t *testing.T) {
	h := activatedHarness(t, "https://box.example")

	h.configMgr.fireChange(config.Event{Namespace: "editor"})

	assert.Equal(t, 0, h.configMgr.reloads)
	assert.Equal(t, 1, h.boxClientCount())
	assert.Equal(t, 0, h.chatPanel.updateCount())
	assert.Equal(t, 0, h.commands.updateCount())
}

func TestRecompose_ReloadFailureKeepsPreviousClients(t *testing.T) {
	h := activatedHarness(t, "https://box.example")
	previous := h.requests.currentClient()
	h.configMgr.reloadErr = errors.New("config file corrupt")

	h.configMgr.fireChange(config.Event{Namespace: config.Namespace})

	assert.Equal(t, 1, h.configMgr.reloads)
	assert.Equal(t, 1, h.boxClientCount(), "no replacement clients on a failed reload")
	assert.Same(t, previous, h.requests.currentClient())
	assert.Equal(t, 0, h.chatPanel.updateCount())

	// The failure is logged, never surfaced as a notification.
	_, warns, errs := h.notifier.counts()
	assert.Equal(t, 0, warns)
	assert.Equal(t, 0, errs)
}

func TestRecompose_WorkspaceChangeLeavesCommandHandler(t *testing.T) {
	h := activatedHarness(t, "https://box.example")

	h.workspaceSrc.fireChange(workspace.Snapshot{
		Root: "/tmp/other", Name: "other", Present: true,
	})

	// The configuration did not change, so there is no reload; the
	// clients are rebuilt from the snapshot already in hand.
	assert.Equal(t, 0, h.configMgr.reloads)
	assert.Equal(t, 2, h.boxClientCount())
	assert.Same(t, h.lastBoxClient(), h.requests.currentClient())
	assert.Equal(t, "https://box.example", h.lastBoxClient().cfg.Backend.Endpoint)

	// The chat panel is refreshed; the command handler is not.
	assert.Equal(t, 1, h.chatPanel.updateCount())
	assert.Equal(t, 0, h.commands.updateCount())
}

func TestRecompose_WorkspaceCloseIsSafe(t *testing.T) {
	h := activatedHarness(t, "https://box.example")

	assert.NotPanics(t, func() {
		h.workspaceSrc.fireChange(workspace.Snapshot{Present: false})
	})

	// Commands stay registered and functional with no workspace open.
	require.NoError(t, h.hctx.ExecuteCommand(CommandGenerateCode))
	assert.Equal(t, 1, h.commands.generated)
	assert.Equal(t, 2, h.boxClientCount())
}

func TestRecompose_SecondChangeWins(t *testing.T) {
	h := activatedHarness(t, "https://box-one.example")

	h.configMgr.reloadSnap = testConfig("https://box-two.example")
	h.configMgr.fireChange(config.Event{Namespace: config.Namespace})
	h.configMgr.reloadSnap = testConfig("https://box-three.example")
	h.configMgr.fireChange(config.Event{Namespace: config.Namespace})

	assert.Equal(t, 2, h.configMgr.reloads)
	assert.Equal(t, 3, h.boxClientCount())
	assert.Same(t, h.lastBoxClient(), h.requests.currentClient())
	assert.Equal(t, "https://box-three.example", h.lastBoxClient().cfg.Backend.Endpoint)
}

func TestRecompose_StaleGenerationIsDropped(t *testing.T) {
	h := activatedHarness(t, "https://box-one.example")
	c := h.coordinator

	// While the first recomposition is mid-build, a second one runs to
	// completion. The first must notice it lost the race and drop its
	// half-built clients instead of clobbering the newer registry.
	interrupted := false
	base := c.factories.boxClient
	c.factories.boxClient = func(cfg config.Snapshot) BoxClient {
		client := base(cfg)
		if !interrupted {
			interrupted = true
			c.recompose(testConfig("https://box-three.example"), true)
		}
		return client
	}

	c.recompose(testConfig("https://box-two.example"), true)

	assert.Equal(t, "https://box-three.example", h.lastBoxClient().cfg.Backend.Endpoint)
	current, ok := h.requests.currentClient().(*fakeBoxClient)
	require.True(t, ok)
	assert.Equal(t, "https://box-three.example", current.cfg.Backend.Endpoint)
}
