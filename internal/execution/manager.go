// Package execution owns the lifecycle of the external agent process: at
// most one non-terminal SessionExecution per project. The manager spawns
// the agent under a pty, discovers the session id from the agent's first
// structured output line, streams output to drive the running and
// waiting-for-input states, and persists per-session metadata plus the
// shared workflow index on every status change.
package execution

import (
	"bufio"
	"encoding/json"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/store"
)

// Publisher is the outbound side of the manager, satisfied by the hub.
type Publisher interface {
	Publish(event.Event)
}

// Config describes how the external agent CLI is invoked.
type Config struct {
	// Binary is the agent executable name or path.
	Binary string
	// Args are arguments placed before the skill and prompt.
	Args []string
	// WorkDir is the working directory for spawned processes; empty means
	// the manager process's own working directory.
	WorkDir string
}

// DefaultConfig returns the default agent invocation.
func DefaultConfig() Config {
	return Config{Binary: "claude"}
}

// StartRequest describes one execution to start.
type StartRequest struct {
	Skill  string
	Prompt string
	// ResumeSessionID links the new execution to a prior agent session.
	ResumeSessionID string
}

// running pairs a SessionExecution record with its live process handles.
// The record pointer is shared with the executions map, so transitions
// made through either view are observed by both.
type running struct {
	rec  *SessionExecution
	cmd  *exec.Cmd
	ptmx *os.File
}

// Manager runs executions for one project. All transitions for the
// project are serialized through the manager's mutex.
type Manager struct {
	project string
	cfg     Config
	files   *store.FileStore
	pub     Publisher
	logger  *logging.Logger
	now     func() time.Time
	newID   func() string
	spawn   func(*exec.Cmd) (*os.File, error)

	mu         sync.Mutex
	active     *running
	executions map[string]*SessionExecution
}

// NewManager creates an execution manager for one project.
func NewManager(project string, cfg Config, files *store.FileStore, pub Publisher, logger *logging.Logger) *Manager {
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	return &Manager{
		project:    project,
		cfg:        cfg,
		files:      files,
		pub:        pub,
		logger:     logger.WithComponent("execution").WithProject(project),
		now:        time.Now,
		newID:      uuid.NewString,
		spawn:      pty.Start,
		executions: make(map[string]*SessionExecution),
	}
}

// Start spawns the agent and returns as soon as the process is launched.
// The session id arrives asynchronously with the agent's first structured
// response; callers observe it through execution events, not the return
// value. A project with a non-terminal execution rejects Start with a
// ConflictError.
func (m *Manager) Start(req StartRequest) (SessionExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && !m.active.rec.Status.Terminal() {
		return SessionExecution{}, errors.NewConflictError(m.project, m.active.rec.ID)
	}

	now := m.now()
	rec := SessionExecution{
		ID:          m.newID(),
		Project:     m.project,
		Skill:       req.Skill,
		ResumedFrom: req.ResumeSessionID,
		Status:      StatusPending,
		Started:     now,
		Updated:     now,
	}

	cmd := exec.Command(m.cfg.Binary, m.buildArgs(req)...)
	cmd.Dir = m.cfg.WorkDir

	ptmx, err := m.spawn(cmd)
	if err != nil {
		spawnErr := errors.NewSpawnError("starting agent process", err).WithBinary(m.cfg.Binary)
		rec.Status = StatusFailed
		rec.Updated = m.now()
		m.recordLocked(&rec)
		m.logger.Error("agent spawn failed", "execution", rec.ID, "error", spawnErr)
		return rec, spawnErr
	}

	run := &running{rec: &rec, cmd: cmd, ptmx: ptmx}
	m.active = run
	m.recordLocked(&rec)
	m.logger.Info("agent spawned", "execution", rec.ID, "skill", req.Skill, "resumed_from", req.ResumeSessionID)

	go m.readLoop(run)
	go m.waitLoop(run)

	return rec, nil
}

// Resume starts a new execution linked to a prior agent session. The prior
// execution's record is untouched.
func (m *Manager) Resume(sessionID, prompt string) (SessionExecution, error) {
	if sessionID == "" {
		return SessionExecution{}, errors.New("resume requires a session id")
	}
	return m.Start(StartRequest{Skill: "resume", Prompt: prompt, ResumeSessionID: sessionID})
}

// Cancel signals the process to terminate and transitions the execution to
// cancelled immediately, without waiting for process reaping. A later exit
// notification against the already-terminal execution is a no-op.
func (m *Manager) Cancel(executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.executions[executionID]
	if !ok {
		return errors.NewNotFoundError("execution", executionID)
	}
	if rec.Status.Terminal() {
		return errors.Wrap(errors.ErrExecutionTerminal, "cancel")
	}

	if m.active != nil && m.active.rec.ID == executionID && m.active.cmd.Process != nil {
		// Best-effort kill. The wait loop reaps the process.
		if err := m.active.cmd.Process.Kill(); err != nil {
			m.logger.Warn("killing agent process", "execution", executionID, "error", err)
		}
	}
	m.transitionLocked(rec, StatusCancelled)
	return nil
}

// MarkDetached records that the manager can no longer confirm the
// process's liveness. Detached is recoverable: the transcript may still be
// growing, and a later confirmed exit resolves the true terminal state.
func (m *Manager) MarkDetached(executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.executions[executionID]
	if !ok {
		return errors.NewNotFoundError("execution", executionID)
	}
	if rec.Status.Terminal() {
		return errors.Wrap(errors.ErrExecutionTerminal, "mark detached")
	}
	m.transitionLocked(rec, StatusDetached)
	return nil
}

// Get returns a copy of an execution record.
func (m *Manager) Get(executionID string) (SessionExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.executions[executionID]
	if !ok {
		return SessionExecution{}, errors.NewNotFoundError("execution", executionID)
	}
	return *rec, nil
}

// Active returns the current non-terminal execution, if any.
func (m *Manager) Active() (SessionExecution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.rec.Status.Terminal() {
		return SessionExecution{}, false
	}
	return *m.active.rec, true
}

// HandleEvent lets the manager observe the event stream like any other
// subscriber. A session-ended event resolves a detached execution whose
// transcript confirms the session finished.
func (m *Manager) HandleEvent(ev event.Event) {
	ended, ok := ev.(event.SessionEndedEvent)
	if !ok || ended.Project != m.project {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.executions {
		if rec.SessionID == ended.SessionID && rec.Status == StatusDetached {
			m.transitionLocked(rec, StatusCompleted)
		}
	}
}

// Run consumes events from a hub subscription until the stream closes.
func (m *Manager) Run(events <-chan event.Event) {
	for ev := range events {
		m.HandleEvent(ev)
	}
}

func (m *Manager) buildArgs(req StartRequest) []string {
	args := append([]string(nil), m.cfg.Args...)
	if req.ResumeSessionID != "" {
		args = append(args, "--resume", req.ResumeSessionID)
	}
	if req.Skill != "" && req.Skill != "resume" {
		args = append(args, req.Skill)
	}
	if req.Prompt != "" {
		args = append(args, req.Prompt)
	}
	return args
}

// readLoop streams the agent's pty output. The first structured line
// carries the session id; the check-and-set on the empty field guarantees
// the id is assigned at most once per execution. Later records toggle
// running and waiting-for-input.
func (m *Manager) readLoop(run *running) {
	scanner := bufio.NewScanner(run.ptmx)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		m.handleOutputLine(run, line)
	}
	// Read errors here mean the pty closed; the wait loop resolves the
	// terminal state.
}

func (m *Manager) handleOutputLine(run *running, line []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.executions[run.rec.ID]
	if !ok || rec.Status.Terminal() {
		return
	}

	if rec.SessionID == "" {
		sessionID, err := artifact.ExtractSessionID(line)
		if err != nil {
			m.logger.Debug("agent line has no session id yet", "execution", rec.ID)
		} else {
			rec.SessionID = sessionID
			m.logger.Info("session id assigned", "execution", rec.ID, "session", sessionID)
			m.transitionLocked(rec, StatusRunning)
			return
		}
	}

	var record artifact.TranscriptRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return
	}
	if record.CostUSD > 0 {
		rec.CostUSD = record.CostUSD
	}

	switch {
	case record.IsQuestion() && rec.Status == StatusRunning:
		m.transitionLocked(rec, StatusWaitingForInput)
	case !record.IsQuestion() && rec.Status == StatusWaitingForInput:
		m.transitionLocked(rec, StatusRunning)
	default:
		m.persistLocked(rec)
	}
}

// waitLoop reaps the process and resolves the terminal state. Exiting
// before the first structured response means the session id was never
// assigned and the execution failed; that is a normal outcome, not a
// pipeline bug.
func (m *Manager) waitLoop(run *running) {
	err := run.cmd.Wait()
	run.ptmx.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.executions[run.rec.ID]
	if !ok || rec.Status.Terminal() {
		// Cancelled before exit, or otherwise already resolved.
		return
	}

	switch {
	case rec.SessionID == "":
		m.transitionLocked(rec, StatusFailed)
	case err != nil:
		m.logger.Warn("agent exited with error", "execution", rec.ID, "error", err)
		m.transitionLocked(rec, StatusFailed)
	default:
		m.transitionLocked(rec, StatusCompleted)
	}

	if m.active != nil && m.active.rec.ID == rec.ID {
		m.active = nil
	}
}

// transitionLocked applies a status change, persists it, and publishes an
// execution event. Transitions out of terminal states are rejected here as
// the last line of defense.
func (m *Manager) transitionLocked(rec *SessionExecution, status Status) {
	if rec.Status.Terminal() {
		return
	}
	m.logger.Info("execution transition",
		"execution", rec.ID, "from", string(rec.Status), "to", string(status))

	rec.Status = status
	rec.Updated = m.now()
	m.persistLocked(rec)
	m.pub.Publish(event.NewExecutionStatusChangedEvent(m.project, rec.ID, rec.SessionID, string(status)))
}

// recordLocked registers a new execution and persists its initial state.
func (m *Manager) recordLocked(rec *SessionExecution) {
	m.executions[rec.ID] = rec
	m.persistLocked(rec)
	m.pub.Publish(event.NewExecutionStatusChangedEvent(m.project, rec.ID, rec.SessionID, string(rec.Status)))
}

// persistLocked writes the per-session metadata file and updates the
// shared workflow index. Both writes go through the store's atomic
// replace, so external readers never observe a partial file.
func (m *Manager) persistLocked(rec *SessionExecution) {
	if rec.SessionID != "" {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err == nil {
			if err := m.files.Save("sessions/"+rec.SessionID+".json", append(data, '\n')); err != nil {
				m.logger.Error("persisting session metadata", "session", rec.SessionID, "error", err)
			}
		}
	}

	index, err := store.LoadIndex(m.files)
	if err != nil {
		m.logger.Error("loading workflow index", "error", err)
		return
	}
	index.Upsert(store.IndexEntry{
		ExecutionID: rec.ID,
		SessionID:   rec.SessionID,
		Skill:       rec.Skill,
		Status:      string(rec.Status),
		Started:     rec.Started,
		Updated:     rec.Updated,
		CostUSD:     rec.CostUSD,
	})
	if err := store.SaveIndex(m.files, index); err != nil {
		m.logger.Error("saving workflow index", "error", err)
	}
}
