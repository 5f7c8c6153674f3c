package extension

import (
	"context"
	"fmt"
	"sync/atomic"

	"partybox/internal/commands"
	"partybox/internal/config"
	"partybox/internal/host"
	"partybox/pkg/logging"
)

const (
	// ChatViewID is the fixed identifier the chat panel registers under.
	ChatViewID = "partybox.chatView"

	// Host-invokable command identifiers.
	CommandGenerateCode = "partybox.generateCode"
	CommandReviewCode   = "partybox.reviewCode"
	CommandOpenChat     = "partybox.openChat"

	troubleshootingURL = "https://docs.partybox.dev/troubleshooting"
)

// Coordinator owns the extension lifecycle: it constructs the component
// registry during activation, recomposes the configuration-sensitive
// subset on change events, and releases everything on deactivation.
type Coordinator struct {
	factories factories

	// Component registry. Exactly one live instance per role; mutated
	// only by Activate, recompose, and Deactivate.
	workspaceSrc WorkspaceSource
	terminal     TerminalManager
	fileOps      FileOperations
	configMgr    ConfigManager
	boxClient    BoxClient
	protoClient  ProtocolClient
	requests     RequestHandler
	commands     CommandHandler
	chatPanel    ChatPanel

	// generation orders recompositions so a stale rebuild can never
	// clobber a newer snapshot.
	generation atomic.Uint64

	// input is attached by the harness; the command handler receives
	// it during activation, or immediately when attached later.
	input commands.InputSource
}

// New creates a coordinator wired to the production component
// constructors.
func New() *Coordinator {
	return &Coordinator{factories: defaultFactories()}
}

// SetInputSource attaches the interactive input source the command
// handlers prompt through. Without one the generate/review commands
// fail with a "no input source" error on invocation.
func (c *Coordinator) SetInputSource(input commands.InputSource) {
	c.input = input
	if c.commands != nil {
		c.commands.SetInputSource(input)
	}
}

// Activate builds all components, registers commands, views, and change
// listeners, and fires the startup connectivity probe. Any failure in
// the sequence aborts activation: the error is surfaced to the user as
// a single notification and nothing propagates to the host. Partially
// constructed components are left for Deactivate to clean up.
func (c *Coordinator) Activate(hctx *host.ExtensionContext) {
	logging.Info("Extension", "Activating Party Box extension")

	if err := c.activate(hctx); err != nil {
		logging.Error("Extension", err, "Activation failed")
		hctx.NotifyError("Party Box activation failed: " + errorMessage(err))
		return
	}

	hctx.NotifyInfo("Party Box is ready")
}

func (c *Coordinator) activate(hctx *host.ExtensionContext) (err error) {
	// Constructors are not expected to panic, but a panic here must
	// surface as the single activation-failure notification rather
	// than crash the host's event loop.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", panicMessage(r))
		}
	}()

	// Leaves first: workspace, then the workspace-bound managers.
	c.workspaceSrc = c.factories.workspaceSource(hctx.WorkspaceRoot())
	c.terminal = c.factories.terminalManager(c.workspaceSrc)
	c.fileOps = c.factories.fileOperations(c.workspaceSrc)

	configMgr, err := c.factories.configManager(hctx.WorkspaceRoot())
	if err != nil {
		return fmt.Errorf("failed to create configuration manager: %w", err)
	}
	c.configMgr = configMgr

	cfg := c.configMgr.Snapshot()

	// Configuration-sensitive clients.
	c.boxClient = c.factories.boxClient(cfg)
	c.protoClient = c.factories.protocolClient(cfg)

	// Dependents.
	c.requests = c.factories.requestHandler(c.workspaceSrc, c.terminal, c.fileOps)
	c.requests.SetClient(c.boxClient)
	c.commands = c.factories.commandHandler(c.configMgr, c.workspaceSrc, c.terminal, c.requests)
	if c.input != nil {
		c.commands.SetInputSource(c.input)
	}

	c.chatPanel = c.factories.chatPanel(hctx.ResourcePath("media"), cfg)
	c.chatPanel.SetSendFunc(c.chatSend)

	// Registrations. Every disposable goes through the subscription
	// sink so the host releases it on teardown.
	viewReg, err := hctx.RegisterView(ChatViewID, c.chatPanel)
	if err != nil {
		return fmt.Errorf("failed to register chat view: %w", err)
	}
	hctx.Subscribe(viewReg)

	if err := c.registerCommands(hctx); err != nil {
		return err
	}

	cfgSub := c.configMgr.OnChange(func(ev config.Event) {
		c.onConfigurationChange(ev)
	})
	hctx.Subscribe(cfgSub)

	wsSub := c.workspaceSrc.OnChange(c.onWorkspaceChange)
	hctx.Subscribe(wsSub)

	// The workspace source and terminal manager are released by the
	// host through the sink. The configuration manager and the two
	// clients are owned and released explicitly by this coordinator.
	hctx.Subscribe(c.workspaceSrc)
	hctx.Subscribe(c.terminal)

	// Fire-and-forget: activation never waits on the probe.
	go c.runProbe(hctx, c.protoClient)

	return nil
}

func (c *Coordinator) registerCommands(hctx *host.ExtensionContext) error {
	register := func(id string, fn host.CommandFunc) error {
		reg, err := hctx.RegisterCommand(id, fn)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", id, err)
		}
		hctx.Subscribe(reg)
		return nil
	}

	if err := register(CommandGenerateCode, func() error {
		return c.commands.GenerateCode(context.Background())
	}); err != nil {
		return err
	}
	if err := register(CommandReviewCode, func() error {
		return c.commands.ReviewCode(context.Background())
	}); err != nil {
		return err
	}
	// openChat is pure re-dispatch to the view's focus action.
	return register(CommandOpenChat, func() error {
		return hctx.FocusView(ChatViewID)
	})
}

// chatSend routes chat panel submissions through the request handler.
func (c *Coordinator) chatSend(prompt string) (string, error) {
	resp, err := c.requests.HandleGenerate(context.Background(), prompt)
	if err != nil {
		return "", err
	}
	if resp.Explanation != "" {
		return resp.Code + "\n\n" + resp.Explanation, nil
	}
	return resp.Code, nil
}

// Deactivate releases resources in reverse dependency order. Every step
// is independently guarded: components that were never constructed are
// skipped, and no failure propagates. The file operations manager is
// stateless and intentionally not disposed.
func (c *Coordinator) Deactivate() {
	logging.Info("Extension", "Deactivating Party Box extension")

	if c.requests != nil {
		safely("clear request history", func() error {
			c.requests.ClearHistory()
			return nil
		})
	}
	if c.configMgr != nil {
		safely("dispose configuration manager", c.configMgr.Dispose)
	}
	if c.workspaceSrc != nil {
		safely("dispose workspace source", c.workspaceSrc.Dispose)
	}
	if c.terminal != nil {
		safely("dispose terminal manager", c.terminal.Dispose)
	}
}

// safely runs one teardown step, containing both errors and panics.
func safely(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Extension", nil, "Deactivation step %q panicked: %s", step, panicMessage(r))
		}
	}()
	if err := fn(); err != nil {
		logging.Error("Extension", err, "Deactivation step %q failed", step)
	}
}

// errorMessage extracts a human-readable message from an activation
// failure, falling back to a generic string when the error carries
// none.
func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}

// panicMessage renders a recovered panic value defensively.
func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		if v == "" {
			return "Unknown error"
		}
		return v
	default:
		if v == nil {
			return "Unknown error"
		}
		return fmt.Sprintf("%v", v)
	}
}
