package extension

import (
	"context"

	"partybox/internal/backend"
	"partybox/internal/chatpanel"
	"partybox/internal/commands"
	"partybox/internal/config"
	"partybox/internal/fileops"
	"partybox/internal/partybox"
	"partybox/internal/protocol"
	"partybox/internal/terminal"
	"partybox/internal/workspace"
)

// The coordinator depends on collaborator interfaces rather than the
// concrete managers so tests can exercise the lifecycle with fakes.
// The real implementations live in the sibling internal packages.

// WorkspaceSource produces workspace snapshots and change events.
type WorkspaceSource interface {
	Current() workspace.Snapshot
	OnChange(workspace.Observer) *workspace.Subscription
	Dispose() error
}

// ConfigManager owns the current configuration snapshot.
type ConfigManager interface {
	Snapshot() config.Snapshot
	Reload() (config.Snapshot, error)
	OnChange(config.Observer) *config.Subscription
	Dispose() error
}

// TerminalManager runs workspace commands and is disposable.
type TerminalManager interface {
	Run(ctx context.Context, name string, args ...string) (terminal.Result, error)
	Dispose() error
}

// FileOperations performs workspace-confined file I/O. It is stateless
// and deliberately has no Dispose.
type FileOperations interface {
	ReadFile(rel string) (string, error)
	WriteFile(rel string, content string) error
}

// BoxClient is the configuration-sensitive Party Box backend client.
type BoxClient = backend.Client

// ProtocolClient is the configuration-sensitive MCP client.
type ProtocolClient interface {
	TestConnection(ctx context.Context) (protocol.ProbeResult, error)
}

// RequestHandler routes generate/review traffic to the current BoxClient.
type RequestHandler interface {
	SetClient(backend.Client)
	ClearHistory()
	HandleGenerate(ctx context.Context, prompt string) (*partybox.GenerateResponse, error)
	HandleReview(ctx context.Context, path string) (*partybox.ReviewResponse, error)
	WriteFile(rel string, content string) error
}

// CommandHandler implements the registered commands and accepts live
// reconfiguration.
type CommandHandler interface {
	GenerateCode(ctx context.Context) error
	ReviewCode(ctx context.Context) error
	UpdateConfiguration(config.Snapshot)
	SetInputSource(commands.InputSource)
}

// ChatPanel is the long-lived chat view provider. It is never rebuilt;
// it accepts live reconfiguration instead.
type ChatPanel interface {
	Focus()
	UpdateConfiguration(config.Snapshot)
	SetSendFunc(chatpanel.SendFunc)
}

// factories holds the constructors the coordinator uses. Production
// code runs with defaultFactories; tests swap individual entries.
type factories struct {
	workspaceSource func(root string) WorkspaceSource
	terminalManager func(ws WorkspaceSource) TerminalManager
	fileOperations  func(ws WorkspaceSource) FileOperations
	configManager   func(root string) (ConfigManager, error)
	boxClient       func(cfg config.Snapshot) BoxClient
	protocolClient  func(cfg config.Snapshot) ProtocolClient
	requestHandler  func(ws WorkspaceSource, term TerminalManager, fileOps FileOperations) RequestHandler
	commandHandler  func(cm ConfigManager, ws WorkspaceSource, term TerminalManager, requests RequestHandler) CommandHandler
	chatPanel       func(resourceDir string, cfg config.Snapshot) ChatPanel
}

func defaultFactories() factories {
	return factories{
		workspaceSource: func(root string) WorkspaceSource {
			return workspace.NewSource(root)
		},
		terminalManager: func(ws WorkspaceSource) TerminalManager {
			return terminal.NewManager(ws)
		},
		fileOperations: func(ws WorkspaceSource) FileOperations {
			return fileops.NewManager(ws)
		},
		configManager: func(root string) (ConfigManager, error) {
			return config.NewManager(root)
		},
		boxClient: func(cfg config.Snapshot) BoxClient {
			return partybox.NewClient(cfg)
		},
		protocolClient: func(cfg config.Snapshot) ProtocolClient {
			return protocol.NewClient(cfg)
		},
		requestHandler: func(ws WorkspaceSource, term TerminalManager, fileOps FileOperations) RequestHandler {
			return backend.NewRequestHandler(ws, term, fileOps)
		},
		commandHandler: func(cm ConfigManager, ws WorkspaceSource, term TerminalManager, requests RequestHandler) CommandHandler {
			return commands.NewHandler(cm, ws, term, requests)
		},
		chatPanel: func(resourceDir string, cfg config.Snapshot) ChatPanel {
			return chatpanel.NewProvider(resourceDir, cfg)
		},
	}
}
