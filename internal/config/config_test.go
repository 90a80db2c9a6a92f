package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Watcher.ProjectDocQuietMs != 200 {
		t.Errorf("ProjectDocQuietMs = %d, want 200", cfg.Watcher.ProjectDocQuietMs)
	}
	if cfg.Watcher.TranscriptQuietMs != 100 {
		t.Errorf("TranscriptQuietMs = %d, want 100", cfg.Watcher.TranscriptQuietMs)
	}
	if cfg.Hub.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.Hub.QueueSize)
	}
	if cfg.Agent.Binary != "claude" {
		t.Errorf("Binary = %q, want claude", cfg.Agent.Binary)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Watcher.ProjectDocQuiet(); got != 200*time.Millisecond {
		t.Errorf("ProjectDocQuiet() = %v, want 200ms", got)
	}
	if got := cfg.Watcher.TranscriptQuiet(); got != 100*time.Millisecond {
		t.Errorf("TranscriptQuiet() = %v, want 100ms", got)
	}
	if got := cfg.Watcher.RegisterBackoff(); got != 2*time.Second {
		t.Errorf("RegisterBackoff() = %v, want 2s", got)
	}
	if got := cfg.Hub.HeartbeatInterval(); got != 15*time.Second {
		t.Errorf("HeartbeatInterval() = %v, want 15s", got)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("default config should validate cleanly, got %v", ValidationErrors(errs))
	}
}
