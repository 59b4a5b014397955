package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override values from the config file.
const (
	EnvSocket   = "DAZEUS_SOCKET"
	EnvLogLevel = "DAZEUS_LOG_LEVEL"
)

// DefaultSocket is the address the DaZeus core listens on in a stock installation.
const DefaultSocket = "unix:/tmp/dazeus.sock"

// Config represents plugin configuration
type Config struct {
	Socket                string `json:"socket" toml:"socket"`                                             // unix:PATH, tcp:HOST:PORT, ws://... or wss://...
	PluginName            string `json:"plugin_name" toml:"plugin_name"`                                   // Name announced in the handshake
	PluginVersion         string `json:"plugin_version" toml:"plugin_version"`                             // Version announced in the handshake
	ConfigGroupName       string `json:"config_group_name,omitempty" toml:"config_group_name"`             // Plugin config group in the core, defaults to PluginName
	LogLevel              string `json:"log_level" toml:"log_level"`                                       // debug, info, warn, error, none
	LogPath               string `json:"log_path,omitempty" toml:"log_path"`                               // File path or "stderr"
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty" toml:"request_timeout_seconds"` // 0 waits forever
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" toml:"connect_timeout_seconds"`
	WaitForSocket         bool   `json:"wait_for_socket" toml:"wait_for_socket"`               // Wait for a unix socket to appear before dialing
	NickCacheTTLSeconds   int    `json:"nick_cache_ttl_seconds" toml:"nick_cache_ttl_seconds"` // 0 disables the nick cache
	Highlight             bool   `json:"highlight" toml:"highlight"`                           // Address the sender when replying
	WrapWidth             int    `json:"wrap_width" toml:"wrap_width"`                         // Wrap outgoing messages, 0 disables wrapping
	PidFile               string `json:"pid_file,omitempty" toml:"pid_file"`                   // Guards long-running plugins against a second instance
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "dazeus")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "dazeus")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "dazeus")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "dazeus")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Socket:                DefaultSocket,
		PluginName:            "zeusctl",
		PluginVersion:         "1.0.0",
		LogLevel:              "info",
		LogPath:               "stderr",
		ConnectTimeoutSeconds: 10,
		NickCacheTTLSeconds:   300,
		Highlight:             true,
		WrapWidth:             400,
	}
}

// Load loads configuration from file. Files ending in .toml are decoded as TOML, anything else as
// JSON. A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, err
	}

	config.fillDefaults()
	config.ApplyEnv()
	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	if isTOML(path) {
		_, err := toml.Decode(string(data), config)
		return err
	}
	// Unmarshal into default config (overrides only provided fields)
	return json.Unmarshal(data, config)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// fillDefaults restores fields a config file explicitly blanked.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Socket == "" {
		c.Socket = defaults.Socket
	}
	if c.PluginName == "" {
		c.PluginName = defaults.PluginName
	}
	if c.PluginVersion == "" {
		c.PluginVersion = defaults.PluginVersion
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// ApplyEnv overrides fields with the DAZEUS_* environment variables that are set.
func (c *Config) ApplyEnv() {
	if socket := strings.TrimSpace(os.Getenv(EnvSocket)); socket != "" {
		c.Socket = socket
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.LogLevel = level
	}
}

// ConfigGroup returns the name the plugin's settings are stored under in the core.
func (c *Config) ConfigGroup() string {
	if c.ConfigGroupName != "" {
		return c.ConfigGroupName
	}
	return c.PluginName
}

// RequestTimeout returns the per-request timeout; zero means wait forever.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the dial timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// NickCacheTTL returns how long a looked up nick stays cached; zero disables caching.
func (c *Config) NickCacheTTL() time.Duration {
	return time.Duration(c.NickCacheTTLSeconds) * time.Second
}

// Validate reports settings that are suspicious but not fatal.
func (c *Config) Validate() []string {
	var warnings []string
	if !strings.HasPrefix(c.Socket, "unix:") && !strings.HasPrefix(c.Socket, "tcp:") &&
		!strings.HasPrefix(c.Socket, "ws://") && !strings.HasPrefix(c.Socket, "wss://") {
		warnings = append(warnings, fmt.Sprintf("socket %q has no known address prefix (unix:, tcp:, ws://, wss://)", c.Socket))
	}
	if c.RequestTimeoutSeconds < 0 {
		warnings = append(warnings, "request_timeout_seconds is negative, requests will wait forever")
	}
	if c.ConnectTimeoutSeconds <= 0 {
		warnings = append(warnings, "connect_timeout_seconds is not positive, dialing will not time out")
	}
	if c.NickCacheTTLSeconds < 0 {
		warnings = append(warnings, "nick_cache_ttl_seconds is negative, the nick cache is disabled")
	}
	if c.WrapWidth < 0 {
		warnings = append(warnings, "wrap_width is negative, messages will not be wrapped")
	}
	if c.WaitForSocket && !strings.HasPrefix(c.Socket, "unix:") {
		warnings = append(warnings, "wait_for_socket only applies to unix: sockets")
	}
	return warnings
}

// Save saves configuration to file, as TOML when the path ends in .toml.
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
