package monitor

import (
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
)

func testModel(t *testing.T, snapshotFn hub.SnapshotFunc) Model {
	t.Helper()
	h := hub.New(hub.Config{QueueSize: 16}, snapshotFn, logging.NopLogger())
	t.Cleanup(h.Stop)
	return NewModel(h, 10)
}

func TestModel_SnapshotSeedsPanels(t *testing.T) {
	snapshotFn := func() hub.Snapshot {
		return hub.Snapshot{Generated: time.Now(), Projects: []hub.ProjectSnapshot{{Project: "demo"}}}
	}
	m := testModel(t, snapshotFn)

	if len(m.Projects) != 1 || m.Projects[0].Name != "demo" {
		t.Errorf("snapshot should seed the projects panel: %+v", m.Projects)
	}
}

func TestModel_ApplyEvents(t *testing.T) {
	m := testModel(t, nil)

	m.applyEvent(event.NewTaskProgressChangedEvent("demo", 2, 5))
	if len(m.Projects) != 1 || m.Projects[0].TasksDone != 2 || m.Projects[0].TasksTotal != 5 {
		t.Errorf("task progress not applied: %+v", m.Projects)
	}

	m.applyEvent(event.NewPhaseStatusChangedEvent("demo", "implement", "in_progress"))
	if m.Projects[0].Step != "implement" {
		t.Errorf("phase not applied: %+v", m.Projects[0])
	}

	m.applyEvent(event.NewSessionQuestionDetectedEvent("demo", "sess-1", "Proceed?"))
	if len(m.Activity) == 0 || m.Activity[0].Kind != "ask" {
		t.Errorf("question should land at the top of the activity feed: %+v", m.Activity)
	}

	m.applyEvent(event.NewExecutionStatusChangedEvent("demo", "exec-1", "", "pending"))
	m.applyEvent(event.NewExecutionStatusChangedEvent("demo", "exec-1", "sess-1", "running"))
	if len(m.History) != 1 || m.History[0].Status != "running" || m.History[0].SessionID != "sess-1" {
		t.Errorf("execution updates should merge into one history row: %+v", m.History)
	}
}

func TestModel_ActivityBounded(t *testing.T) {
	m := testModel(t, nil)

	for i := 0; i < 25; i++ {
		m.applyEvent(event.NewSessionMessageAppendedEvent("demo", "sess-1", "assistant", "line"))
	}
	if len(m.Activity) != m.MaxActivity {
		t.Errorf("activity feed should be bounded at %d, got %d", m.MaxActivity, len(m.Activity))
	}
}

func TestModel_SessionEndClearsActiveSession(t *testing.T) {
	m := testModel(t, nil)

	m.applyEvent(event.NewSessionMessageAppendedEvent("demo", "sess-1", "assistant", "hi"))
	if m.Projects[0].ActiveSession != "sess-1" {
		t.Fatalf("active session not set: %+v", m.Projects[0])
	}

	m.applyEvent(event.NewSessionEndedEvent("demo", "sess-1"))
	if m.Projects[0].ActiveSession != "" {
		t.Errorf("session end should clear the active session: %+v", m.Projects[0])
	}
}
