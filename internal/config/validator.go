package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "hub.queue_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateWatcher()...)
	errors = append(errors, c.validateHub()...)
	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

func (c *Config) validateWatcher() []ValidationError {
	var errors []ValidationError

	if c.Watcher.ProjectDocQuietMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "watcher.project_doc_quiet_ms",
			Value:   c.Watcher.ProjectDocQuietMs,
			Message: "must be positive",
		})
	}
	if c.Watcher.TranscriptQuietMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "watcher.transcript_quiet_ms",
			Value:   c.Watcher.TranscriptQuietMs,
			Message: "must be positive",
		})
	}
	if c.Watcher.RegisterBackoffMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "watcher.register_backoff_ms",
			Value:   c.Watcher.RegisterBackoffMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateHub() []ValidationError {
	var errors []ValidationError

	if c.Hub.QueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "hub.queue_size",
			Value:   c.Hub.QueueSize,
			Message: "must be at least 1",
		})
	}
	if c.Hub.HeartbeatSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "hub.heartbeat_seconds",
			Value:   c.Hub.HeartbeatSeconds,
			Message: "must not be negative (0 disables heartbeats)",
		})
	}

	return errors
}

func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Agent.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.binary",
			Value:   c.Agent.Binary,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxMessages < 1 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_messages",
			Value:   c.TUI.MaxMessages,
			Message: "must be at least 1",
		})
	}

	return errors
}
