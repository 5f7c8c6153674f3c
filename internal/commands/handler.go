// Package commands implements the host-invokable commands. The handlers
// gather input, delegate the actual work to the backend request handler,
// and write results into the workspace.
package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"partybox/internal/backend"
	"partybox/internal/config"
	"partybox/internal/partybox"
	"partybox/pkg/logging"
)

// ConfigSource is the slice of the configuration manager the commands
// need.
type ConfigSource interface {
	Snapshot() config.Snapshot
}

// RequestService is the slice of the backend request handler the
// commands delegate to.
type RequestService interface {
	HandleGenerate(ctx context.Context, prompt string) (*partybox.GenerateResponse, error)
	HandleReview(ctx context.Context, path string) (*partybox.ReviewResponse, error)
	WriteFile(rel string, content string) error
}

// InputSource supplies user input for commands invoked without
// arguments. The host harness wires an interactive implementation; tests
// use fakes.
type InputSource interface {
	Ask(prompt string) (string, error)
}

// Handler implements the generate/review commands.
type Handler struct {
	configSrc ConfigSource
	ws        backend.WorkspaceInfo
	terminal  backend.CommandRunner
	requests  RequestService

	mu    sync.RWMutex
	flags config.FeatureFlags
	input InputSource
}

// NewHandler creates a command handler. Feature flags are captured from
// the config source at construction and updated in place on
// configuration changes.
func NewHandler(configSrc ConfigSource, ws backend.WorkspaceInfo, term backend.CommandRunner, requests RequestService) *Handler {
	return &Handler{
		configSrc: configSrc,
		ws:        ws,
		terminal:  term,
		requests:  requests,
		flags:     configSrc.Snapshot().Features,
	}
}

// SetInputSource attaches the interactive input source.
func (h *Handler) SetInputSource(input InputSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = input
}

// UpdateConfiguration applies a new configuration snapshot in place.
func (h *Handler) UpdateConfiguration(snap config.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flags = snap.Features
	logging.Debug("Commands", "Feature flags updated (inlineSuggestions=%v, reviewOnSave=%v)", snap.Features.InlineSuggestions, snap.Features.ReviewOnSave)
}

// Flags returns the currently applied feature flags.
func (h *Handler) Flags() config.FeatureFlags {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.flags
}

func (h *Handler) ask(prompt string) (string, error) {
	h.mu.RLock()
	input := h.input
	h.mu.RUnlock()
	if input == nil {
		return "", fmt.Errorf("no input source attached")
	}
	return input.Ask(prompt)
}

// GenerateCode prompts for a description, asks the backend for code, and
// writes the result into the workspace.
func (h *Handler) GenerateCode(ctx context.Context) error {
	prompt, err := h.ask("What should I generate?")
	if err != nil {
		return err
	}

	resp, err := h.requests.HandleGenerate(ctx, prompt)
	if err != nil {
		return err
	}

	target, err := h.ask("Write generated code to (workspace-relative path)")
	if err != nil {
		return err
	}

	if err := h.writeGenerated(ctx, target, resp.Code); err != nil {
		return err
	}
	logging.Info("Commands", "Generated code written to %s", target)
	return nil
}

// writeGenerated persists generated code and, for Go files, formats the
// result in place.
func (h *Handler) writeGenerated(ctx context.Context, target, code string) error {
	snap := h.ws.Current()
	if !snap.Present {
		return fmt.Errorf("no workspace open to write into")
	}
	if err := h.requests.WriteFile(target, code); err != nil {
		return err
	}
	if strings.HasSuffix(target, ".go") {
		if _, err := h.terminal.Run(ctx, "gofmt", "-w", target); err != nil {
			// Formatting is best-effort; the file is already written.
			logging.Warn("Commands", "gofmt on %s failed: %v", target, err)
		}
	}
	return nil
}

// ReviewCode prompts for a file and logs the backend's review findings.
func (h *Handler) ReviewCode(ctx context.Context) error {
	path, err := h.ask("File to review (workspace-relative path)")
	if err != nil {
		return err
	}

	resp, err := h.requests.HandleReview(ctx, path)
	if err != nil {
		return err
	}

	logging.Info("Commands", "Review of %s: %s", path, resp.Summary)
	for _, comment := range resp.Comments {
		logging.Info("Commands", "  %s:%d [%s] %s", path, comment.Line, comment.Severity, comment.Message)
	}
	return nil
}
