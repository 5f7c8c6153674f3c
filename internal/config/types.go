package config

import (
	"time"
)

// Namespace is the configuration namespace owned by this extension.
// Change events whose namespace differs are ignored by the coordinator.
const Namespace = "partybox"

// Snapshot is the top-level, immutable configuration value. It is
// superseded wholesale on every change; nothing patches it in place.
type Snapshot struct {
	Backend  BackendConfig  `yaml:"backend"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Features FeatureFlags   `yaml:"features"`
	LogLevel string         `yaml:"logLevel,omitempty"`
}

// BackendConfig describes the Party Box remote backend.
type BackendConfig struct {
	Endpoint string        `yaml:"endpoint,omitempty"` // Base URL, e.g. "https://api.partybox.dev"
	APIKey   string        `yaml:"apiKey,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"` // Per-request timeout
}

const (
	// TransportStreamableHTTP is the streamable HTTP transport.
	TransportStreamableHTTP = "streamable-http"
	// TransportSSE is the Server-Sent Events transport.
	TransportSSE = "sse"
)

// ProtocolConfig describes the MCP endpoint the protocol client talks to.
type ProtocolConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Transport string `yaml:"transport,omitempty"` // "streamable-http" or "sse"
}

// FeatureFlags toggles optional extension behavior.
type FeatureFlags struct {
	InlineSuggestions bool `yaml:"inlineSuggestions"`
	ReviewOnSave      bool `yaml:"reviewOnSave"`
	Telemetry         bool `yaml:"telemetry"`
}

// Event is a configuration change notification.
type Event struct {
	// Namespace identifies which configuration namespace the change
	// touched. The host may deliver events for any installed extension.
	Namespace string
}

// Affects reports whether the event touched the given namespace.
func (e Event) Affects(namespace string) bool {
	return e.Namespace == namespace
}
