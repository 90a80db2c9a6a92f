package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete stride configuration
type Config struct {
	Watcher WatcherConfig `mapstructure:"watcher"`
	Hub     HubConfig     `mapstructure:"hub"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	TUI     TUIConfig     `mapstructure:"tui"`
}

// WatcherConfig controls the change observer
type WatcherConfig struct {
	// ProjectDocQuietMs is the debounce quiet period for project documents
	// (state file, task list, roadmap) in milliseconds
	ProjectDocQuietMs int `mapstructure:"project_doc_quiet_ms"`
	// TranscriptQuietMs is the debounce quiet period for session
	// transcripts in milliseconds; transcripts are written more often
	TranscriptQuietMs int `mapstructure:"transcript_quiet_ms"`
	// RegisterBackoffMs is how long to wait before re-attempting to watch
	// a path that does not exist yet
	RegisterBackoffMs int `mapstructure:"register_backoff_ms"`
}

// HubConfig controls the broadcast hub
type HubConfig struct {
	// QueueSize bounds each subscriber's event queue; a subscriber that
	// falls behind the bound is dropped and must resubscribe
	QueueSize int `mapstructure:"queue_size"`
	// HeartbeatSeconds is the per-subscriber heartbeat interval
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
}

// AgentConfig controls how the external agent CLI is invoked
type AgentConfig struct {
	// Binary is the agent executable name or path
	Binary string `mapstructure:"binary"`
	// Args are arguments placed before the skill and prompt
	Args []string `mapstructure:"args"`
}

// ServerConfig controls the event push server
type ServerConfig struct {
	// Addr is the listen address for the SSE server
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled turns file logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level"`
}

// TUIConfig controls the monitor dashboard
type TUIConfig struct {
	// MaxMessages limits how many recent session messages are displayed
	MaxMessages int `mapstructure:"max_messages"`
	// Theme is the color theme for the dashboard
	Theme string `mapstructure:"theme"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Watcher: WatcherConfig{
			ProjectDocQuietMs: 200,
			TranscriptQuietMs: 100,
			RegisterBackoffMs: 2000,
		},
		Hub: HubConfig{
			QueueSize:        64,
			HeartbeatSeconds: 15,
		},
		Agent: AgentConfig{
			Binary: "claude",
			Args:   []string{},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7477",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		TUI: TUIConfig{
			MaxMessages: 50,
			Theme:       "default",
		},
	}
}

// ProjectDocQuiet returns the project-document quiet period as a time.Duration
func (c *WatcherConfig) ProjectDocQuiet() time.Duration {
	return time.Duration(c.ProjectDocQuietMs) * time.Millisecond
}

// TranscriptQuiet returns the transcript quiet period as a time.Duration
func (c *WatcherConfig) TranscriptQuiet() time.Duration {
	return time.Duration(c.TranscriptQuietMs) * time.Millisecond
}

// RegisterBackoff returns the registration retry backoff as a time.Duration
func (c *WatcherConfig) RegisterBackoff() time.Duration {
	return time.Duration(c.RegisterBackoffMs) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat interval as a time.Duration
func (c *HubConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Watcher defaults
	viper.SetDefault("watcher.project_doc_quiet_ms", defaults.Watcher.ProjectDocQuietMs)
	viper.SetDefault("watcher.transcript_quiet_ms", defaults.Watcher.TranscriptQuietMs)
	viper.SetDefault("watcher.register_backoff_ms", defaults.Watcher.RegisterBackoffMs)

	// Hub defaults
	viper.SetDefault("hub.queue_size", defaults.Hub.QueueSize)
	viper.SetDefault("hub.heartbeat_seconds", defaults.Hub.HeartbeatSeconds)

	// Agent defaults
	viper.SetDefault("agent.binary", defaults.Agent.Binary)
	viper.SetDefault("agent.args", defaults.Agent.Args)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// TUI defaults
	viper.SetDefault("tui.max_messages", defaults.TUI.MaxMessages)
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
}

// Load unmarshals the current viper state into a Config
func Load() (*Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if dir := os.Getenv("STRIDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "stride")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
