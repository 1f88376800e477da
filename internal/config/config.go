// Package config loads the client configuration file and its environment
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "clawdeck"
	configFilename = "clawdeck.json"
)

// Options are behavior knobs that do not affect how to reach the gateway.
type Options struct {
	Debug bool `json:"debug,omitempty"`
	// QuietProgress hides the textual progress transcript, e.g. while the
	// UI is in voice-only mode. Buffers still accumulate.
	QuietProgress bool   `json:"quiet_progress,omitempty"`
	DataDirectory string `json:"data_directory,omitempty"`
}

// Config is the persisted client configuration.
type Config struct {
	// Host is the gateway address: "tcp://", "unix://", or "npipe://".
	Host  string `json:"host,omitempty"`
	Token string `json:"token,omitempty"`

	// GatewayCommand and GatewayArgs describe how to launch the gateway
	// process when it is not already running.
	GatewayCommand string   `json:"gateway_command,omitempty"`
	GatewayArgs    []string `json:"gateway_args,omitempty"`

	Options Options `json:"options,omitempty"`
}

// Load reads the config file from dataDir (created with defaults when
// missing) and applies environment overrides. Flags are applied by the
// caller and win over both.
func Load(dataDir string, debug bool) (*Config, error) {
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory: %w", err)
		}
		dataDir = filepath.Join(base, appName)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{}
	path := filepath.Join(dataDir, configFilename)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run; keep defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if host := os.Getenv("CLAWDECK_HOST"); host != "" {
		cfg.Host = host
	}
	if token := os.Getenv("CLAWDECK_TOKEN"); token != "" {
		cfg.Token = token
	}
	if gw := os.Getenv("CLAWDECK_GATEWAY"); gw != "" {
		cfg.GatewayCommand = gw
	}

	cfg.Options.DataDirectory = dataDir
	if debug {
		cfg.Options.Debug = true
	}
	return cfg, nil
}

// DataDir returns the resolved data directory.
func (c *Config) DataDir() string {
	return c.Options.DataDirectory
}

// LogFile returns the path of the rotated client log.
func (c *Config) LogFile() string {
	return filepath.Join(c.Options.DataDirectory, "logs", appName+".log")
}
