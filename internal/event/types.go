package event

import "time"

// Event is the interface implemented by every domain event.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.progress_changed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
// Time is exported so serialized events carry their timestamp; the event
// type travels out of band (the stream's frame header).
type baseEvent struct {
	eventType string
	Time      time.Time `json:"timestamp"`
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.Time }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		Time:      time.Now(),
	}
}

// Event type identifiers for the closed set of domain events.
const (
	TypeTaskProgressChanged     = "task.progress_changed"
	TypeRoadmapProgressChanged  = "roadmap.progress_changed"
	TypeArtifactPresenceChanged = "artifact.presence_changed"
	TypePhaseStatusChanged      = "phase.status_changed"
	TypeSessionMessageAppended  = "session.message_appended"
	TypeSessionQuestionDetected = "session.question_detected"
	TypeSessionEnded            = "session.ended"
	TypeExecutionStatusChanged  = "execution.status_changed"
	TypeHeartbeat               = "heartbeat"
	TypeSnapshot                = "snapshot"
)

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// TaskProgressChangedEvent is emitted when the completed/total task counts
// derived from the task list change.
type TaskProgressChangedEvent struct {
	baseEvent
	Project   string `json:"project"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// NewTaskProgressChangedEvent creates a TaskProgressChangedEvent.
func NewTaskProgressChangedEvent(project string, completed, total int) TaskProgressChangedEvent {
	return TaskProgressChangedEvent{
		baseEvent: newBaseEvent(TypeTaskProgressChanged),
		Project:   project,
		Completed: completed,
		Total:     total,
	}
}

// RoadmapProgressChangedEvent is emitted when the checked/total item counts
// derived from the roadmap document change.
type RoadmapProgressChangedEvent struct {
	baseEvent
	Project string `json:"project"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

// NewRoadmapProgressChangedEvent creates a RoadmapProgressChangedEvent.
func NewRoadmapProgressChangedEvent(project string, done, total int) RoadmapProgressChangedEvent {
	return RoadmapProgressChangedEvent{
		baseEvent: newBaseEvent(TypeRoadmapProgressChanged),
		Project:   project,
		Done:      done,
		Total:     total,
	}
}

// ArtifactPresenceChangedEvent is emitted when a tracked artifact appears
// for the first time or disappears. Existence of the design artifacts is an
// exit criterion for the design step.
type ArtifactPresenceChangedEvent struct {
	baseEvent
	Project  string `json:"project"`
	Artifact string `json:"artifact"`
	Exists   bool   `json:"exists"`
}

// NewArtifactPresenceChangedEvent creates an ArtifactPresenceChangedEvent.
func NewArtifactPresenceChangedEvent(project, artifact string, exists bool) ArtifactPresenceChangedEvent {
	return ArtifactPresenceChangedEvent{
		baseEvent: newBaseEvent(TypeArtifactPresenceChanged),
		Project:   project,
		Artifact:  artifact,
		Exists:    exists,
	}
}

// -----------------------------------------------------------------------------
// Phase Events
// -----------------------------------------------------------------------------

// PhaseStatusChangedEvent is emitted when a project's workflow step or step
// status changes, either from an observed state-document write or from a
// decision-loop transition.
type PhaseStatusChangedEvent struct {
	baseEvent
	Project string `json:"project"`
	Step    string `json:"step"`
	Status  string `json:"status"`
}

// NewPhaseStatusChangedEvent creates a PhaseStatusChangedEvent.
func NewPhaseStatusChangedEvent(project, step, status string) PhaseStatusChangedEvent {
	return PhaseStatusChangedEvent{
		baseEvent: newBaseEvent(TypePhaseStatusChanged),
		Project:   project,
		Step:      step,
		Status:    status,
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionMessageAppendedEvent is emitted for each record newly appended to a
// session transcript. Records are emitted in the order they appear in the
// transcript file.
type SessionMessageAppendedEvent struct {
	baseEvent
	Project   string `json:"project"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// NewSessionMessageAppendedEvent creates a SessionMessageAppendedEvent.
func NewSessionMessageAppendedEvent(project, sessionID, role, text string) SessionMessageAppendedEvent {
	return SessionMessageAppendedEvent{
		baseEvent: newBaseEvent(TypeSessionMessageAppended),
		Project:   project,
		SessionID: sessionID,
		Role:      role,
		Text:      text,
	}
}

// SessionQuestionDetectedEvent is emitted when a newly appended transcript
// record contains a question directed at the user. Each question record
// produces exactly one event.
type SessionQuestionDetectedEvent struct {
	baseEvent
	Project   string `json:"project"`
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// NewSessionQuestionDetectedEvent creates a SessionQuestionDetectedEvent.
func NewSessionQuestionDetectedEvent(project, sessionID, question string) SessionQuestionDetectedEvent {
	return SessionQuestionDetectedEvent{
		baseEvent: newBaseEvent(TypeSessionQuestionDetected),
		Project:   project,
		SessionID: sessionID,
		Question:  question,
	}
}

// SessionEndedEvent is emitted when a transcript gains a terminal result
// record, meaning the agent session has finished.
type SessionEndedEvent struct {
	baseEvent
	Project   string `json:"project"`
	SessionID string `json:"session_id"`
}

// NewSessionEndedEvent creates a SessionEndedEvent.
func NewSessionEndedEvent(project, sessionID string) SessionEndedEvent {
	return SessionEndedEvent{
		baseEvent: newBaseEvent(TypeSessionEnded),
		Project:   project,
		SessionID: sessionID,
	}
}

// -----------------------------------------------------------------------------
// Execution Events
// -----------------------------------------------------------------------------

// ExecutionStatusChangedEvent is emitted by the execution manager on every
// SessionExecution status transition, so observers see cancellations and
// detachments without re-reading the workflow index.
type ExecutionStatusChangedEvent struct {
	baseEvent
	Project     string `json:"project"`
	ExecutionID string `json:"execution_id"`
	SessionID   string `json:"session_id,omitempty"`
	Status      string `json:"status"`
}

// NewExecutionStatusChangedEvent creates an ExecutionStatusChangedEvent.
func NewExecutionStatusChangedEvent(project, executionID, sessionID, status string) ExecutionStatusChangedEvent {
	return ExecutionStatusChangedEvent{
		baseEvent:   newBaseEvent(TypeExecutionStatusChanged),
		Project:     project,
		ExecutionID: executionID,
		SessionID:   sessionID,
		Status:      status,
	}
}

// -----------------------------------------------------------------------------
// Hub Events
// -----------------------------------------------------------------------------

// HeartbeatEvent is sent by the hub on a fixed interval per subscriber so
// consumers can distinguish a dead connection from an idle one.
type HeartbeatEvent struct {
	baseEvent
}

// NewHeartbeatEvent creates a HeartbeatEvent.
func NewHeartbeatEvent() HeartbeatEvent {
	return HeartbeatEvent{baseEvent: newBaseEvent(TypeHeartbeat)}
}
