// Package chatpanel implements the chat view provider registered under
// the extension's view identifier. The provider is long-lived: it is
// built once during activation and reconfigured in place on every
// configuration or workspace change, never rebuilt.
package chatpanel

import (
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"partybox/internal/config"
	"partybox/pkg/logging"
)

// Provider backs the chat view. It satisfies the host's view-provider
// contract and accepts live reconfiguration.
type Provider struct {
	resourceDir string

	mu      sync.RWMutex
	cfg     config.Snapshot
	send    SendFunc
	program *tea.Program
	focused bool
}

// NewProvider creates the chat panel provider. resourceDir points at the
// extension's bundled assets.
func NewProvider(resourceDir string, cfg config.Snapshot) *Provider {
	return &Provider{
		resourceDir: resourceDir,
		cfg:         cfg,
	}
}

// UpdateConfiguration applies a new configuration snapshot in place.
func (p *Provider) UpdateConfiguration(cfg config.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	logging.Debug("ChatPanel", "Configuration updated (model=%s)", cfg.Backend.Model)
}

// Configuration returns the snapshot currently applied to the panel.
func (p *Provider) Configuration() config.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// SetSendFunc wires the chat submit path to the backend.
func (p *Provider) SetSendFunc(send SendFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = send
}

// Focus marks the panel focused. When an interactive program is
// attached the host brings it to the foreground.
func (p *Provider) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = true
	logging.Debug("ChatPanel", "Chat panel focused")
}

// Focused reports whether Focus has been requested.
func (p *Provider) Focused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.focused
}

// title derives the panel title from the applied configuration.
func (p *Provider) title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg.Backend.Model != "" {
		return fmt.Sprintf("Party Box · %s", p.cfg.Backend.Model)
	}
	return "Party Box"
}

// Run starts the interactive panel and blocks until it exits. Used by
// the harness; the coordinator itself never runs the UI. While the
// panel runs, logging switches to channel mode and the entries feed the
// panel's log view; plain CLI logging is restored on exit.
func (p *Provider) Run() error {
	p.mu.Lock()
	send := p.send
	level := logging.ParseLevel(p.cfg.LogLevel)
	logCh := logging.InitForPanel(level)
	program := tea.NewProgram(newModel(p.title(), send, logCh), tea.WithAltScreen())
	p.program = program
	p.mu.Unlock()

	_, err := program.Run()

	// Switch logging back to plain CLI mode before closing the channel
	// so nothing logs into a closed channel during teardown.
	logging.InitForCLI(level, os.Stderr)
	logging.ClosePanelChannel()

	p.mu.Lock()
	p.program = nil
	p.focused = false
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("chat panel exited with error: %w", err)
	}
	return nil
}
