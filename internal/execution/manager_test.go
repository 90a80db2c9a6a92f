package execution

import (
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/store"
)

type capture struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *capture) Publish(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capture) statuses(executionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		if e, ok := ev.(event.ExecutionStatusChangedEvent); ok && e.ExecutionID == executionID {
			out = append(out, e.Status)
		}
	}
	return out
}

// pipeSpawn runs the command with a plain pipe instead of a pty, so tests
// work without a controlling terminal.
func pipeSpawn(cmd *exec.Cmd) (*os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, err
	}
	pw.Close()
	return pr, nil
}

func newTestManager(t *testing.T, script string) (*Manager, *capture) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pub := &capture{}
	cfg := Config{Binary: "sh", Args: []string{"-c", script}}
	m := NewManager("demo", cfg, fs, pub, logging.NopLogger())
	m.spawn = pipeSpawn
	return m, pub
}

func waitStatus(t *testing.T, m *Manager, executionID string, want Status) SessionExecution {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := m.Get(executionID)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Status == want {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := m.Get(executionID)
	t.Fatalf("execution never reached %q, stuck at %q", want, rec.Status)
	return SessionExecution{}
}

const sessionLine = `{"type":"message","session_id":"sess-1","role":"assistant","content":"starting"}`

func TestManager_SessionIDAssignedOnce(t *testing.T) {
	m, pub := newTestManager(t, "echo '"+sessionLine+"'")

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.SessionID != "" {
		t.Error("session id must not be set at start time")
	}

	final := waitStatus(t, m, rec.ID, StatusCompleted)
	if final.SessionID != "sess-1" {
		t.Errorf("session id should come from the first structured line, got %q", final.SessionID)
	}

	statuses := pub.statuses(rec.ID)
	if statuses[0] != "pending" || statuses[len(statuses)-1] != "completed" {
		t.Errorf("unexpected status sequence: %v", statuses)
	}
}

func TestManager_ExitBeforeFirstResponseFails(t *testing.T) {
	m, _ := newTestManager(t, "exit 0")

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}

	final := waitStatus(t, m, rec.ID, StatusFailed)
	if final.SessionID != "" {
		t.Errorf("no-first-response failure must leave session id empty, got %q", final.SessionID)
	}
}

func TestManager_SpawnFailure(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pub := &capture{}
	m := NewManager("demo", Config{Binary: "/nonexistent/agent-binary"}, fs, pub, logging.NopLogger())
	m.spawn = pipeSpawn

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err == nil {
		t.Fatal("expected spawn error")
	}
	var spawnErr *errors.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Errorf("expected SpawnError, got %T", err)
	}
	if rec.Status != StatusFailed || rec.SessionID != "" {
		t.Errorf("spawn failure should yield a failed record with no session id: %+v", rec)
	}
}

func TestManager_Conflict(t *testing.T) {
	m, _ := newTestManager(t, "sleep 5")

	first, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Start(StartRequest{Skill: "implement"})
	if !errors.IsConflict(err) {
		t.Errorf("second start must be rejected with a conflict, got %v", err)
	}

	if err := m.Cancel(first.ID); err != nil {
		t.Fatal(err)
	}

	// Once the first execution is terminal, a new start is accepted.
	if _, err := m.Start(StartRequest{Skill: "verify"}); err != nil {
		t.Errorf("start after cancel should succeed, got %v", err)
	}
}

func TestManager_CancelIsImmediatelyTerminal(t *testing.T) {
	m, _ := newTestManager(t, "sleep 5")

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Cancel(rec.ID); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("cancel must transition immediately, got %q", got.Status)
	}

	// The reaped exit must not overwrite the terminal state.
	time.Sleep(100 * time.Millisecond)
	got, _ = m.Get(rec.ID)
	if got.Status != StatusCancelled {
		t.Errorf("later exit notification must be a no-op, got %q", got.Status)
	}

	if err := m.Cancel(rec.ID); err == nil {
		t.Error("cancelling a terminal execution must fail")
	}
}

func TestManager_DetachedResolvedBySessionEnd(t *testing.T) {
	m, _ := newTestManager(t, "echo '"+sessionLine+"'; sleep 5")

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}
	waitStatus(t, m, rec.ID, StatusRunning)

	if err := m.MarkDetached(rec.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get(rec.ID)
	if got.Status != StatusDetached {
		t.Fatalf("expected detached, got %q", got.Status)
	}

	// Detached still blocks a new start: it is not terminal.
	if _, err := m.Start(StartRequest{Skill: "verify"}); !errors.IsConflict(err) {
		t.Errorf("detached execution must still hold the slot, got %v", err)
	}

	// A session-ended event observed on the stream confirms the agent
	// finished and resolves the detachment.
	m.HandleEvent(event.NewSessionEndedEvent("demo", "sess-1"))
	got, _ = m.Get(rec.ID)
	if got.Status != StatusCompleted {
		t.Errorf("session end should resolve detached to completed, got %q", got.Status)
	}
}

func TestManager_ResumeLinksPriorSession(t *testing.T) {
	m, _ := newTestManager(t, "exit 0")

	rec, err := m.Resume("sess-old", "continue from where you left off")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ResumedFrom != "sess-old" {
		t.Errorf("resume must link the prior session, got %q", rec.ResumedFrom)
	}

	if _, err := m.Resume("", "prompt"); err == nil {
		t.Error("resume without a session id must fail")
	}
}

func TestManager_BuildArgs(t *testing.T) {
	m := &Manager{cfg: Config{Binary: "claude", Args: []string{"--print"}}}

	args := m.buildArgs(StartRequest{Skill: "implement", Prompt: "do the thing"})
	want := []string{"--print", "implement", "do the thing"}
	if len(args) != len(want) {
		t.Fatalf("got %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: got %q, want %q", i, args[i], want[i])
		}
	}

	args = m.buildArgs(StartRequest{Skill: "resume", ResumeSessionID: "sess-old", Prompt: "go on"})
	if args[0] != "--print" || args[1] != "--resume" || args[2] != "sess-old" || args[3] != "go on" {
		t.Errorf("unexpected resume args: %v", args)
	}
}

func TestManager_IndexUpdatedOnTransitions(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pub := &capture{}
	m := NewManager("demo", Config{Binary: "sh", Args: []string{"-c", "echo '" + sessionLine + "'"}}, fs, pub, logging.NopLogger())
	m.spawn = pipeSpawn

	rec, err := m.Start(StartRequest{Skill: "implement"})
	if err != nil {
		t.Fatal(err)
	}
	waitStatus(t, m, rec.ID, StatusCompleted)

	index, err := store.LoadIndex(fs)
	if err != nil {
		t.Fatal(err)
	}
	entry := index.Find(rec.ID)
	if entry == nil {
		t.Fatal("execution missing from workflow index")
	}
	if entry.Status != "completed" || entry.SessionID != "sess-1" {
		t.Errorf("unexpected index entry: %+v", entry)
	}

	if !fs.Exists("sessions/sess-1.json") {
		t.Error("per-session metadata file missing")
	}
}
