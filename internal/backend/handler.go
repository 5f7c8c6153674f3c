// Package backend routes generate/review requests from the commands to
// the Party Box client, enriching them with workspace context and
// retaining a bounded request history.
package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"partybox/internal/partybox"
	"partybox/internal/terminal"
	"partybox/internal/workspace"
	"partybox/pkg/logging"
)

// Client is the slice of the Party Box client this handler needs.
type Client interface {
	Generate(ctx context.Context, req partybox.GenerateRequest) (*partybox.GenerateResponse, error)
	Review(ctx context.Context, req partybox.ReviewRequest) (*partybox.ReviewResponse, error)
}

// WorkspaceInfo supplies the current workspace snapshot.
type WorkspaceInfo interface {
	Current() workspace.Snapshot
}

// CommandRunner runs workspace-scoped terminal commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (terminal.Result, error)
}

// FileStore performs workspace-confined file operations.
type FileStore interface {
	ReadFile(rel string) (string, error)
	WriteFile(rel string, content string) error
}

// historyLimit bounds the retained request history.
const historyLimit = 50

// HistoryEntry records one completed request.
type HistoryEntry struct {
	Kind      string // "generate" or "review"
	Input     string
	Timestamp time.Time
	Err       error
}

// RequestHandler executes backend requests using workspace context.
type RequestHandler struct {
	ws       WorkspaceInfo
	terminal CommandRunner
	fileOps  FileStore

	mu      sync.Mutex
	client  Client
	history []HistoryEntry
}

// NewRequestHandler creates a request handler. The Party Box client is
// attached separately via SetClient because it is rebuilt on every
// configuration change while this handler lives on.
func NewRequestHandler(ws WorkspaceInfo, term CommandRunner, fileOps FileStore) *RequestHandler {
	return &RequestHandler{
		ws:       ws,
		terminal: term,
		fileOps:  fileOps,
	}
}

// SetClient swaps in a new Party Box client. The old client is dropped;
// it holds no resources between calls.
func (h *RequestHandler) SetClient(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = c
}

func (h *RequestHandler) currentClient() (Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil, fmt.Errorf("no backend client available")
	}
	return h.client, nil
}

// HandleGenerate sends a generation request enriched with workspace
// context and returns the generated code.
func (h *RequestHandler) HandleGenerate(ctx context.Context, prompt string) (*partybox.GenerateResponse, error) {
	client, err := h.currentClient()
	if err != nil {
		return nil, err
	}

	snap := h.ws.Current()
	req := partybox.GenerateRequest{
		Prompt:    prompt,
		Workspace: snap.Name,
		Language:  detectLanguage(prompt),
	}

	resp, err := client.Generate(ctx, req)
	h.record("generate", prompt, err)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}

	logging.Info("Backend", "Generated %d bytes of code (%d tokens)", len(resp.Code), resp.TokensUsed)
	return resp, nil
}

// HandleReview reads the named workspace file and sends it for review.
func (h *RequestHandler) HandleReview(ctx context.Context, path string) (*partybox.ReviewResponse, error) {
	client, err := h.currentClient()
	if err != nil {
		return nil, err
	}

	content, err := h.fileOps.ReadFile(path)
	if err != nil {
		h.record("review", path, err)
		return nil, err
	}

	resp, err := client.Review(ctx, partybox.ReviewRequest{Path: path, Content: content})
	h.record("review", path, err)
	if err != nil {
		return nil, fmt.Errorf("review request failed: %w", err)
	}

	logging.Info("Backend", "Review of %s produced %d comments", path, len(resp.Comments))
	return resp, nil
}

// WriteFile persists content into the workspace through the file
// operations manager.
func (h *RequestHandler) WriteFile(rel, content string) error {
	return h.fileOps.WriteFile(rel, content)
}

// RunCommand executes a terminal command in the workspace on behalf of a
// command implementation.
func (h *RequestHandler) RunCommand(ctx context.Context, name string, args ...string) (terminal.Result, error) {
	return h.terminal.Run(ctx, name, args...)
}

func (h *RequestHandler) record(kind, input string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, HistoryEntry{
		Kind:      kind,
		Input:     input,
		Timestamp: time.Now(),
		Err:       err,
	})
	if len(h.history) > historyLimit {
		h.history = h.history[len(h.history)-historyLimit:]
	}
}

// History returns a copy of the retained request history.
func (h *RequestHandler) History() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.history))
	copy(out, h.history)
	return out
}

// ClearHistory flushes the retained history. Called during deactivation.
func (h *RequestHandler) ClearHistory() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = nil
}

// detectLanguage guesses a language hint from a file-like token in the
// prompt. Best effort only; the backend treats it as a hint.
func detectLanguage(prompt string) string {
	for _, word := range strings.Fields(prompt) {
		switch filepath.Ext(word) {
		case ".go":
			return "go"
		case ".py":
			return "python"
		case ".ts", ".tsx":
			return "typescript"
		case ".js", ".jsx":
			return "javascript"
		case ".rs":
			return "rust"
		}
	}
	return ""
}
