// Package config provides configuration management for the Party Box
// extension.
//
// This package implements a layered configuration system driven by YAML
// files. Configuration is loaded from multiple sources and merged in a
// specific order, with later sources overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Provides sensible defaults for all settings
//     - Ensures the extension works out-of-the-box
//
//  2. User Configuration (~/.config/partybox/config.yaml)
//     - User-specific settings that apply to all workspaces
//
//  3. Workspace Configuration (<workspace>/.partybox/config.yaml)
//     - Workspace-specific settings, shareable via version control
//
// # Configuration Structure
//
//	backend:
//	  endpoint: "https://api.partybox.dev"
//	  apiKey: "${PARTYBOX_API_KEY}"
//	  model: "party-large"
//	  timeout: 30s
//
//	protocol:
//	  endpoint: "http://localhost:8811/mcp"
//	  transport: "streamable-http"  # or "sse"
//
//	features:
//	  inlineSuggestions: true
//	  reviewOnSave: false
//	  telemetry: false
//
// # Snapshots and Change Notification
//
// Loading produces an immutable Snapshot value; the Manager holds the
// current snapshot, reloads it on demand, and watches the configuration
// files so observers can react to edits. Change events carry the affected
// configuration namespace; consumers filter with Event.Affects.
package config
