// Package host models the runtime the extension plugs into: a
// subscription sink that releases registered disposables on teardown,
// command and view registries, a notification sink, and a resource
// locator. The coordinator only ever sees this contract; the concrete
// sinks are supplied by the harness in cmd/ or by tests.
package host

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"partybox/pkg/logging"
)

// Disposable releases a resource exactly once.
type Disposable interface {
	Dispose() error
}

// DisposeFunc adapts a func to the Disposable interface.
type DisposeFunc func() error

func (f DisposeFunc) Dispose() error { return f() }

// CommandFunc is the body of a registered command. Commands take no
// arguments and expose no return value to the host beyond the error.
type CommandFunc func() error

// ViewProvider backs a registered view.
type ViewProvider interface {
	Focus()
}

// Action is a follow-up offered on a warning notification.
type Action struct {
	Title string
	Run   func()
}

// Notifier presents user-visible notifications.
type Notifier interface {
	Info(msg string)
	Warn(msg string, action *Action)
	Error(msg string)
}

// ExternalOpener opens URLs outside the extension.
type ExternalOpener interface {
	OpenExternal(url string) error
}

// ExtensionContext is the opaque context the host hands to activate.
type ExtensionContext struct {
	resourceDir   string
	workspaceRoot string
	notifier      Notifier
	opener        ExternalOpener

	mu            sync.Mutex
	subscriptions []Disposable
	commands      map[string]CommandFunc
	views         map[string]ViewProvider
	released      bool
}

// Option configures an ExtensionContext.
type Option func(*ExtensionContext)

// WithNotifier replaces the default log-backed notifier.
func WithNotifier(n Notifier) Option {
	return func(c *ExtensionContext) { c.notifier = n }
}

// WithExternalOpener replaces the default system browser opener.
func WithExternalOpener(o ExternalOpener) Option {
	return func(c *ExtensionContext) { c.opener = o }
}

// NewExtensionContext creates a context rooted at the given extension
// resource directory and workspace root (empty when no workspace is
// open).
func NewExtensionContext(resourceDir, workspaceRoot string, opts ...Option) *ExtensionContext {
	c := &ExtensionContext{
		resourceDir:   resourceDir,
		workspaceRoot: workspaceRoot,
		notifier:      logNotifier{},
		opener:        systemOpener{},
		commands:      make(map[string]CommandFunc),
		views:         make(map[string]ViewProvider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResourcePath resolves a path inside the extension's resource
// directory.
func (c *ExtensionContext) ResourcePath(rel string) string {
	return c.resourceDir + "/" + rel
}

// WorkspaceRoot returns the workspace root the host opened with. Empty
// means no workspace.
func (c *ExtensionContext) WorkspaceRoot() string {
	return c.workspaceRoot
}

// Subscribe adds a disposable to the sink. Everything subscribed is
// released exactly once by ReleaseAll, in reverse registration order.
func (c *ExtensionContext) Subscribe(d Disposable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = append(c.subscriptions, d)
}

// RegisterCommand registers a host-invokable command. The returned
// disposable removes the registration.
func (c *ExtensionContext) RegisterCommand(id string, fn CommandFunc) (Disposable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.commands[id]; exists {
		return nil, fmt.Errorf("command %q is already registered", id)
	}
	c.commands[id] = fn
	return DisposeFunc(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.commands, id)
		return nil
	}), nil
}

// ExecuteCommand dispatches a registered command by id.
func (c *ExtensionContext) ExecuteCommand(id string) error {
	c.mu.Lock()
	fn, exists := c.commands[id]
	c.mu.Unlock()
	if !exists {
		return fmt.Errorf("command %q is not registered", id)
	}
	return fn()
}

// RegisterView registers a view provider under a fixed identifier. The
// returned disposable removes the registration.
func (c *ExtensionContext) RegisterView(id string, provider ViewProvider) (Disposable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.views[id]; exists {
		return nil, fmt.Errorf("view %q is already registered", id)
	}
	c.views[id] = provider
	return DisposeFunc(func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.views, id)
		return nil
	}), nil
}

// FocusView asks the provider registered under id to take focus.
func (c *ExtensionContext) FocusView(id string) error {
	c.mu.Lock()
	provider, exists := c.views[id]
	c.mu.Unlock()
	if !exists {
		return fmt.Errorf("view %q is not registered", id)
	}
	provider.Focus()
	return nil
}

// View returns the provider registered under id, if any.
func (c *ExtensionContext) View(id string) (ViewProvider, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	provider, exists := c.views[id]
	return provider, exists
}

// NotifyInfo presents a user-visible informational notification.
func (c *ExtensionContext) NotifyInfo(msg string) {
	c.notifier.Info(msg)
}

// NotifyWarn presents a non-blocking warning, optionally with one
// follow-up action.
func (c *ExtensionContext) NotifyWarn(msg string, action *Action) {
	c.notifier.Warn(msg, action)
}

// NotifyError presents a user-visible error notification.
func (c *ExtensionContext) NotifyError(msg string) {
	c.notifier.Error(msg)
}

// OpenExternal opens a URL outside the extension.
func (c *ExtensionContext) OpenExternal(url string) error {
	return c.opener.OpenExternal(url)
}

// ReleaseAll disposes every subscription exactly once, newest first.
// Per-item failures are logged and do not stop the sweep. Safe to call
// more than once; later calls are no-ops.
func (c *ExtensionContext) ReleaseAll() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	subs := c.subscriptions
	c.subscriptions = nil
	c.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		if err := subs[i].Dispose(); err != nil {
			logging.Error("Host", err, "Failed to dispose subscription %d", i)
		}
	}
}

// logNotifier routes notifications into the log, for headless runs and
// tests that don't install their own notifier.
type logNotifier struct{}

func (logNotifier) Info(msg string) {
	logging.Info("Notify", "%s", msg)
}

func (logNotifier) Warn(msg string, action *Action) {
	if action != nil {
		logging.Warn("Notify", "%s (action available: %s)", msg, action.Title)
		return
	}
	logging.Warn("Notify", "%s", msg)
}

func (logNotifier) Error(msg string) {
	logging.Error("Notify", nil, "%s", msg)
}

// systemOpener shells out to the platform URL opener.
type systemOpener struct{}

func (systemOpener) OpenExternal(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	// Reap in the background; the caller never waits on the browser.
	go func() { _ = cmd.Wait() }()
	return nil
}
