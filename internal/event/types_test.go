package event

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name     string
		ev       Event
		wantType string
	}{
		{"task progress", NewTaskProgressChangedEvent("demo", 1, 3), TypeTaskProgressChanged},
		{"roadmap progress", NewRoadmapProgressChangedEvent("demo", 2, 5), TypeRoadmapProgressChanged},
		{"artifact presence", NewArtifactPresenceChangedEvent("demo", "roadmap", true), TypeArtifactPresenceChanged},
		{"phase status", NewPhaseStatusChangedEvent("demo", "design", "in_progress"), TypePhaseStatusChanged},
		{"session message", NewSessionMessageAppendedEvent("demo", "sess-1", "assistant", "hi"), TypeSessionMessageAppended},
		{"session question", NewSessionQuestionDetectedEvent("demo", "sess-1", "proceed?"), TypeSessionQuestionDetected},
		{"session ended", NewSessionEndedEvent("demo", "sess-1"), TypeSessionEnded},
		{"execution status", NewExecutionStatusChangedEvent("demo", "exec-1", "sess-1", "running"), TypeExecutionStatusChanged},
		{"heartbeat", NewHeartbeatEvent(), TypeHeartbeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.EventType(); got != tt.wantType {
				t.Errorf("EventType() = %q, want %q", got, tt.wantType)
			}
			if tt.ev.Timestamp().IsZero() {
				t.Error("Timestamp() should be set by the constructor")
			}
			if time.Since(tt.ev.Timestamp()) > time.Minute {
				t.Error("Timestamp() should be close to now")
			}
		})
	}
}

func TestEventJSONCarriesTimestamp(t *testing.T) {
	data, err := json.Marshal(NewSessionEndedEvent("demo", "sess-1"))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Timestamp time.Time `json:"timestamp"`
		Project   string    `json:"project"`
		SessionID string    `json:"session_id"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("serialized event should carry its timestamp")
	}
	if decoded.Project != "demo" || decoded.SessionID != "sess-1" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}
