package extension

import (
	"partybox/internal/config"
	"partybox/internal/workspace"
	"partybox/pkg/logging"
)

// onConfigurationChange handles configuration change events. Events for
// other extensions' namespaces are ignored outright; on a match the
// configuration is reloaded from source and the configuration-sensitive
// components are recomposed from the fresh snapshot.
func (c *Coordinator) onConfigurationChange(ev config.Event) {
	if !ev.Affects(config.Namespace) {
		return
	}

	snap, err := c.configMgr.Reload()
	if err != nil {
		// The previous clients stay live; the registry remains
		// consistent with the last good snapshot.
		logging.Error("Extension", err, "Configuration reload failed, keeping previous components")
		return
	}

	c.recompose(snap, true)
}

// onWorkspaceChange handles workspace swaps, including the transition
// to "no workspace". The configuration itself did not change, so the
// current snapshot is reused without a reload.
func (c *Coordinator) onWorkspaceChange(snap workspace.Snapshot) {
	logging.Debug("Extension", "Workspace changed (present=%v), recomposing", snap.Present)
	c.recompose(c.configMgr.Snapshot(), false)
}

// recompose rebuilds the two configuration-sensitive clients from the
// given snapshot and pushes the snapshot into the long-lived components
// that accept live updates. The replaced clients are dropped without an
// explicit dispose: both are connectionless between calls.
//
// The command handler is only updated on the configuration path. The
// workspace path leaves it untouched because its workspace and terminal
// dependencies are stable across a workspace swap at this layer; see
// the lifecycle tests pinning this asymmetry.
func (c *Coordinator) recompose(snap config.Snapshot, configChanged bool) {
	gen := c.generation.Add(1)

	boxClient := c.factories.boxClient(snap)
	protoClient := c.factories.protocolClient(snap)

	// A newer recomposition started while this one was building its
	// clients; drop ours so the last writer wins.
	if c.generation.Load() != gen {
		logging.Debug("Extension", "Discarding stale recomposition (generation %d)", gen)
		return
	}

	c.boxClient = boxClient
	c.protoClient = protoClient
	c.requests.SetClient(boxClient)

	c.chatPanel.UpdateConfiguration(snap)
	if configChanged {
		c.commands.UpdateConfiguration(snap)
	}

	logging.Info("Extension", "Recomposed backend clients (configChanged=%v)", configChanged)
}
