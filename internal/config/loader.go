package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

const (
	userConfigDir      = ".config/partybox"
	workspaceConfigDir = ".partybox"
	configFileName     = "config.yaml"
)

// Load builds a Snapshot by layering default, user, and workspace
// settings. workspaceRoot may be empty when no workspace is open, in
// which case only defaults and the user file apply.
func Load(workspaceRoot string) (Snapshot, error) {
	// 1. Start with the default configuration
	snap := GetDefaultSnapshot()

	// 2. Merge the user-specific configuration, if present
	userPath, err := UserConfigPath()
	if err != nil {
		// User config is optional; don't fail on a missing home dir
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if fileExists(userPath) {
		userSnap, err := loadSnapshotFromFile(userPath)
		if err != nil {
			return Snapshot{}, fmt.Errorf("error loading user config from %s: %w", userPath, err)
		}
		snap = mergeSnapshots(snap, userSnap)
	}

	// 3. Merge the workspace-specific configuration, if present
	if workspaceRoot != "" {
		wsPath := WorkspaceConfigPath(workspaceRoot)
		if fileExists(wsPath) {
			wsSnap, err := loadSnapshotFromFile(wsPath)
			if err != nil {
				return Snapshot{}, fmt.Errorf("error loading workspace config from %s: %w", wsPath, err)
			}
			snap = mergeSnapshots(snap, wsSnap)
		}
	}

	return snap, nil
}

// UserConfigPath returns the path of the user-level configuration file.
func UserConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// WorkspaceConfigPath returns the path of the workspace-level
// configuration file under the given root.
func WorkspaceConfigPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, workspaceConfigDir, configFileName)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// fileSnapshot is the on-disk shape of an overlay file. Features is a
// pointer so an absent block leaves the lower layer untouched while an
// explicit block (including explicit "false" values) wins wholesale.
type fileSnapshot struct {
	Backend  BackendConfig  `yaml:"backend"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Features *FeatureFlags  `yaml:"features,omitempty"`
	LogLevel string         `yaml:"logLevel,omitempty"`
}

// loadSnapshotFromFile loads a configuration overlay from a YAML file.
// API keys support ${VAR} expansion from the environment.
func loadSnapshotFromFile(filePath string) (fileSnapshot, error) {
	var overlay fileSnapshot
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fileSnapshot{}, err
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fileSnapshot{}, err
	}
	overlay.Backend.APIKey = os.ExpandEnv(overlay.Backend.APIKey)
	return overlay, nil
}

// mergeSnapshots merges 'overlay' into 'base'. Scalar fields override
// only when set in the overlay.
func mergeSnapshots(base Snapshot, overlay fileSnapshot) Snapshot {
	merged := base

	if overlay.Backend.Endpoint != "" {
		merged.Backend.Endpoint = overlay.Backend.Endpoint
	}
	if overlay.Backend.APIKey != "" {
		merged.Backend.APIKey = overlay.Backend.APIKey
	}
	if overlay.Backend.Model != "" {
		merged.Backend.Model = overlay.Backend.Model
	}
	if overlay.Backend.Timeout != 0 {
		merged.Backend.Timeout = overlay.Backend.Timeout
	}

	if overlay.Protocol.Endpoint != "" {
		merged.Protocol.Endpoint = overlay.Protocol.Endpoint
	}
	if overlay.Protocol.Transport != "" {
		merged.Protocol.Transport = overlay.Protocol.Transport
	}

	if overlay.Features != nil {
		merged.Features = *overlay.Features
	}

	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}

	return merged
}
