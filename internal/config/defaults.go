package config

import (
	"time"
)

// GetDefaultSnapshot returns the built-in defaults. Every loader run
// starts from these before user and workspace files are merged in.
func GetDefaultSnapshot() Snapshot {
	return Snapshot{
		Backend: BackendConfig{
			Endpoint: "https://api.partybox.dev",
			Model:    "party-large",
			Timeout:  30 * time.Second,
		},
		Protocol: ProtocolConfig{
			Endpoint:  "http://localhost:8811/mcp",
			Transport: TransportStreamableHTTP,
		},
		Features: FeatureFlags{
			InlineSuggestions: true,
		},
		LogLevel: "info",
	}
}
