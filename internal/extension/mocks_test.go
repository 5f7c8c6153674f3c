package extension

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"partybox/internal/backend"
	"partybox/internal/chatpanel"
	"partybox/internal/commands"
	"partybox/internal/config"
	"partybox/internal/host"
	"partybox/internal/partybox"
	"partybox/internal/protocol"
	"partybox/internal/terminal"
	"partybox/internal/workspace"
)

// recordingNotifier captures user-visible notifications.
type recordingNotifier struct {
	mu          sync.Mutex
	infos       []string
	warns       []string
	warnActions []*host.Action
	errors      []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Warn(msg string, action *host.Action) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warns = append(n.warns, msg)
	n.warnActions = append(n.warnActions, action)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) counts() (infos, warns, errors int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.infos), len(n.warns), len(n.errors)
}

// recordingOpener captures OpenExternal calls.
type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) OpenExternal(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	return nil
}

// fakeWorkspaceSource implements WorkspaceSource.
type fakeWorkspaceSource struct {
	mu        sync.Mutex
	snap      workspace.Snapshot
	observers []workspace.Observer
	disposed  int
}

func (f *fakeWorkspaceSource) Current() workspace.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeWorkspaceSource) OnChange(obs workspace.Observer) *workspace.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, obs)
	return &workspace.Subscription{}
}

func (f *fakeWorkspaceSource) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed++
	return nil
}

func (f *fakeWorkspaceSource) fireChange(snap workspace.Snapshot) {
	f.mu.Lock()
	f.snap = snap
	observers := append([]workspace.Observer(nil), f.observers...)
	f.mu.Unlock()
	for _, obs := range observers {
		obs(snap)
	}
}

// fakeConfigManager implements ConfigManager.
type fakeConfigManager struct {
	mu         sync.Mutex
	snap       config.Snapshot
	reloadSnap config.Snapshot
	reloadErr  error
	reloads    int
	observers  []config.Observer
	disposed   int
	disposeErr error
}

func (f *fakeConfigManager) Snapshot() config.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeConfigManager) Reload() (config.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	if f.reloadErr != nil {
		return config.Snapshot{}, f.reloadErr
	}
	f.snap = f.reloadSnap
	return f.reloadSnap, nil
}

func (f *fakeConfigManager) OnChange(obs config.Observer) *config.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, obs)
	return &config.Subscription{}
}

func (f *fakeConfigManager) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed++
	return f.disposeErr
}

func (f *fakeConfigManager) fireChange(ev config.Event) {
	f.mu.Lock()
	observers := append([]config.Observer(nil), f.observers...)
	f.mu.Unlock()
	for _, obs := range observers {
		obs(ev)
	}
}

// fakeTerminal implements TerminalManager.
type fakeTerminal struct {
	mu       sync.Mutex
	disposed int
}

func (f *fakeTerminal) Run(context.Context, string, ...string) (terminal.Result, error) {
	return terminal.Result{}, nil
}

func (f *fakeTerminal) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed++
	return nil
}

// fakeFileOps implements FileOperations.
type fakeFileOps struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeFileOps() *fakeFileOps {
	return &fakeFileOps{files: make(map[string]string)}
}

func (f *fakeFileOps) ReadFile(rel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[rel]
	if !ok {
		return "", fmt.Errorf("file %s not found", rel)
	}
	return content, nil
}

func (f *fakeFileOps) WriteFile(rel string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[rel] = content
	return nil
}

// fakeBoxClient implements BoxClient and remembers the snapshot it was
// built from so tests can check which configuration produced it.
type fakeBoxClient struct {
	cfg config.Snapshot
}

func (f *fakeBoxClient) Generate(context.Context, partybox.GenerateRequest) (*partybox.GenerateResponse, error) {
	return &partybox.GenerateResponse{Code: "generated by " + f.cfg.Backend.Endpoint}, nil
}

func (f *fakeBoxClient) Review(context.Context, partybox.ReviewRequest) (*partybox.ReviewResponse, error) {
	return &partybox.ReviewResponse{Summary: "ok"}, nil
}

// fakeProtocolClient implements ProtocolClient.
type fakeProtocolClient struct {
	cfg    config.Snapshot
	result protocol.ProbeResult
	err    error
	block  chan struct{}
	called chan struct{}
}

func (f *fakeProtocolClient) TestConnection(context.Context) (protocol.ProbeResult, error) {
	if f.block != nil {
		<-f.block
	}
	if f.called != nil {
		close(f.called)
	}
	return f.result, f.err
}

// fakeRequestHandler implements RequestHandler. Writes pass through to
// the harness file store so command flows can be checked end to end.
type fakeRequestHandler struct {
	mu      sync.Mutex
	files   *fakeFileOps
	client  backend.Client
	clients []backend.Client
	cleared int
}

func (f *fakeRequestHandler) SetClient(c backend.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client = c
	f.clients = append(f.clients, c)
}

func (f *fakeRequestHandler) ClearHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeRequestHandler) HandleGenerate(ctx context.Context, prompt string) (*partybox.GenerateResponse, error) {
	f.mu.Lock()
	client := f.client
	f.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("no client")
	}
	return client.Generate(ctx, partybox.GenerateRequest{Prompt: prompt})
}

func (f *fakeRequestHandler) HandleReview(ctx context.Context, path string) (*partybox.ReviewResponse, error) {
	f.mu.Lock()
	client := f.client
	f.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("no client")
	}
	return client.Review(ctx, partybox.ReviewRequest{Path: path})
}

func (f *fakeRequestHandler) WriteFile(rel string, content string) error {
	if f.files == nil {
		return nil
	}
	return f.files.WriteFile(rel, content)
}

func (f *fakeRequestHandler) currentClient() backend.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

// fakeCommandHandler implements CommandHandler.
type fakeCommandHandler struct {
	mu        sync.Mutex
	generated int
	reviewed  int
	updates   []config.Snapshot
	input     commands.InputSource
}

func (f *fakeCommandHandler) SetInputSource(input commands.InputSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = input
}

func (f *fakeCommandHandler) inputSource() commands.InputSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *fakeCommandHandler) GenerateCode(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated++
	return nil
}

func (f *fakeCommandHandler) ReviewCode(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewed++
	return nil
}

func (f *fakeCommandHandler) UpdateConfiguration(snap config.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, snap)
}

func (f *fakeCommandHandler) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// fakeChatPanel implements ChatPanel.
type fakeChatPanel struct {
	mu      sync.Mutex
	updates []config.Snapshot
	focused int
	send    chatpanel.SendFunc
}

func (f *fakeChatPanel) Focus() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused++
}

func (f *fakeChatPanel) UpdateConfiguration(snap config.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, snap)
}

func (f *fakeChatPanel) SetSendFunc(send chatpanel.SendFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.send = send
}

func (f *fakeChatPanel) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// testHarness bundles a coordinator wired to fakes.
type testHarness struct {
	coordinator *Coordinator
	hctx        *host.ExtensionContext
	notifier    *recordingNotifier
	opener      *recordingOpener

	workspaceSrc *fakeWorkspaceSource
	configMgr    *fakeConfigManager
	terminal     *fakeTerminal
	fileOps      *fakeFileOps
	requests     *fakeRequestHandler
	commands     *fakeCommandHandler
	chatPanel    *fakeChatPanel

	probeResult protocol.ProbeResult
	probeErr    error
	probeBlock  chan struct{}
	probeCalled chan struct{}

	mu           sync.Mutex
	boxClients   []*fakeBoxClient
	protoClients []*fakeProtocolClient
}

func newTestHarness(initialCfg config.Snapshot, workspaceRoot string) *testHarness {
	h := &testHarness{
		notifier:     &recordingNotifier{},
		opener:       &recordingOpener{},
		workspaceSrc: &fakeWorkspaceSource{},
		configMgr:    &fakeConfigManager{snap: initialCfg, reloadSnap: initialCfg},
		terminal:     &fakeTerminal{},
		fileOps:      newFakeFileOps(),
		commands:     &fakeCommandHandler{},
		chatPanel:    &fakeChatPanel{},
		probeResult:  protocol.ProbeResult{Success: true, Message: "ok"},
		probeCalled:  make(chan struct{}),
	}
	h.requests = &fakeRequestHandler{files: h.fileOps}

	h.hctx = host.NewExtensionContext("/opt/partybox", workspaceRoot,
		host.WithNotifier(h.notifier),
		host.WithExternalOpener(h.opener),
	)

	c := &Coordinator{}
	c.factories = factories{
		workspaceSource: func(root string) WorkspaceSource {
			h.workspaceSrc.snap = workspace.Snapshot{Root: root, Present: root != ""}
			return h.workspaceSrc
		},
		terminalManager: func(WorkspaceSource) TerminalManager { return h.terminal },
		fileOperations:  func(WorkspaceSource) FileOperations { return h.fileOps },
		configManager:   func(string) (ConfigManager, error) { return h.configMgr, nil },
		boxClient: func(cfg config.Snapshot) BoxClient {
			client := &fakeBoxClient{cfg: cfg}
			h.mu.Lock()
			h.boxClients = append(h.boxClients, client)
			h.mu.Unlock()
			return client
		},
		protocolClient: func(cfg config.Snapshot) ProtocolClient {
			client := &fakeProtocolClient{
				cfg:    cfg,
				result: h.probeResult,
				err:    h.probeErr,
			}
			h.mu.Lock()
			// Only the activation-time client probes.
			if len(h.protoClients) == 0 {
				client.block = h.probeBlock
				client.called = h.probeCalled
			}
			h.protoClients = append(h.protoClients, client)
			h.mu.Unlock()
			return client
		},
		requestHandler: func(WorkspaceSource, TerminalManager, FileOperations) RequestHandler {
			return h.requests
		},
		commandHandler: func(ConfigManager, WorkspaceSource, TerminalManager, RequestHandler) CommandHandler {
			return h.commands
		},
		chatPanel: func(string, config.Snapshot) ChatPanel { return h.chatPanel },
	}
	h.coordinator = c
	return h
}

func (h *testHarness) waitProbe(t *testing.T) {
	t.Helper()
	select {
	case <-h.probeCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("connectivity probe never ran")
	}
}

func (h *testHarness) boxClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boxClients)
}

func (h *testHarness) lastBoxClient() *fakeBoxClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.boxClients) == 0 {
		return nil
	}
	return h.boxClients[len(h.boxClients)-1]
}
