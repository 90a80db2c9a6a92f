package errors

import (
	"fmt"
	"testing"
)

func TestTransientIOError_Retryable(t *testing.T) {
	err := NewTransientIOError("read failed", ErrNotFound).WithPath("/tmp/tasks.md")

	if !IsRetryable(err) {
		t.Error("transient io errors should be retryable")
	}
	if !IsTransientIO(err) {
		t.Error("IsTransientIO should match")
	}
	if !Is(err, ErrNotFound) {
		t.Error("should unwrap to the cause sentinel")
	}
}

func TestParseError_Context(t *testing.T) {
	err := NewParseError("bad json", New("unexpected end of input")).
		WithPath("state.json").
		WithLine(3)

	msg := err.Error()
	if want := "parse error [path=state.json, line=3]"; len(msg) < len(want) || msg[:len(want)] != want {
		t.Errorf("unexpected message: %s", msg)
	}
	if IsRetryable(err) {
		t.Error("parse errors are not retryable")
	}
	if !IsParse(err) {
		t.Error("IsParse should match")
	}
}

func TestConflictError_Sentinel(t *testing.T) {
	err := NewConflictError("demo", "exec-1")

	if !IsConflict(err) {
		t.Error("IsConflict should match")
	}
	if !Is(err, ErrExecutionActive) {
		t.Error("conflict errors should match ErrExecutionActive")
	}

	// Wrapping must preserve classification.
	wrapped := Wrapf(err, "start %s", "demo")
	if !IsConflict(wrapped) {
		t.Error("IsConflict should match through wrapping")
	}
}

func TestSpawnError(t *testing.T) {
	cause := fmt.Errorf("exec: %q: executable file not found", "agent")
	err := NewSpawnError("failed to start agent", cause).WithBinary("agent")

	var spawnErr *SpawnError
	if !As(err, &spawnErr) {
		t.Fatal("As should match SpawnError")
	}
	if spawnErr.Binary != "agent" {
		t.Errorf("expected binary 'agent', got %q", spawnErr.Binary)
	}
}

func TestStaleSubscriberError(t *testing.T) {
	err := NewStaleSubscriberError("sub-3", 64)
	if err.SubscriberID != "sub-3" || err.QueueSize != 64 {
		t.Errorf("unexpected fields: %+v", err)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("execution", "abc123")
	if got, want := err.Error(), "execution 'abc123' not found"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !Is(err, ErrNotFound) {
		t.Error("should match ErrNotFound")
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}
