// Package orchestrator runs the per-project decision loop: a state machine
// over the four workflow steps (design, analyze, implement, verify). The
// loop subscribes to domain events and, on each event that could affect the
// current step's exit criteria, recomputes the criteria from parsed
// artifacts alone. It never asks the agent process whether a step is done.
//
// Step advancement is monotonic. The only way backward is an explicit
// GoBack override, which bypasses monotonicity once and is logged.
package orchestrator

import (
	"sync"
	"time"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/store"
)

const stateKey = "state.json"

// Publisher is the outbound side of the loop, satisfied by the hub.
type Publisher interface {
	Publish(event.Event)
}

// ArtifactView is the read side of the normalizer the loop evaluates exit
// criteria against.
type ArtifactView interface {
	StateSnapshot() *artifact.OrchestrationState
	TaskSnapshot() *artifact.TaskList
	RoadmapSnapshot() *artifact.Roadmap
	DesignArtifactsPresent() bool
}

// Loop is the decision loop for one project. All evaluation for a project
// is serialized through the loop's mutex; different projects run loops
// independently.
type Loop struct {
	project string
	view    ArtifactView
	pub     Publisher
	files   *store.FileStore
	logger  *logging.Logger
	now     func() time.Time

	mu    sync.Mutex
	state *artifact.OrchestrationState
}

// New creates a decision loop for one project. The persisted state is
// loaded eagerly; a missing or legacy-encoded document is handled here so
// the loop never evaluates against a pre-migration step.
func New(project string, view ArtifactView, pub Publisher, files *store.FileStore, logger *logging.Logger) (*Loop, error) {
	l := &Loop{
		project: project,
		view:    view,
		pub:     pub,
		files:   files,
		logger:  logger.WithComponent("orchestrator").WithProject(project),
		now:     time.Now,
	}

	data, err := files.Load(stateKey)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		l.state = artifact.NewState(l.now())
		if err := l.persistLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errors.Wrap(err, "loading orchestration state")
	default:
		state, err := artifact.ParseState(data)
		if err != nil {
			return nil, errors.Wrap(err, "parsing orchestration state")
		}
		l.state = state
	}

	return l, nil
}

// State returns a copy of the current orchestration state.
func (l *Loop) State() artifact.OrchestrationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.state
}

// Run consumes the loop's hub subscription until the stream closes.
func (l *Loop) Run(sub *hub.Subscriber) {
	for ev := range sub.Events() {
		l.HandleEvent(ev)
	}
}

// HandleEvent re-evaluates the current step when the event could plausibly
// affect its exit criteria. Events for other projects and event kinds
// irrelevant to the current step are ignored without taking a parse.
func (l *Loop) HandleEvent(ev event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.relevantLocked(ev) {
		return
	}
	l.evaluateLocked()
}

// Evaluate forces one evaluation pass, used at pipeline startup so a
// project whose artifacts already satisfy the current step advances without
// waiting for a file write.
func (l *Loop) Evaluate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evaluateLocked()
}

// GoBack moves the project back to an earlier step, bypassing the
// monotonic rule once. Moving to the current or a later step is rejected;
// forward movement only ever happens through evaluation.
func (l *Loop) GoBack(step artifact.Step, reason string) error {
	if !artifact.ValidStep(step) {
		return errors.Newf("unknown step %q", step)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if artifact.StepIndex(step) >= artifact.StepIndex(l.state.Step) {
		return errors.Newf("go-back target %q is not before current step %q", step, l.state.Step)
	}

	l.logger.Warn("step override, moving backward",
		"from", string(l.state.Step), "to", string(step), "reason", reason)

	l.state.Step = step
	l.state.Status = artifact.StatusInProgress
	l.state.Updated = l.now()
	if err := l.persistLocked(); err != nil {
		return err
	}
	l.pub.Publish(event.NewPhaseStatusChangedEvent(l.project, string(l.state.Step), string(l.state.Status)))
	return nil
}

// relevantLocked reports whether an event could change the outcome of the
// current step's exit criteria.
func (l *Loop) relevantLocked(ev event.Event) bool {
	project := eventProject(ev)
	if project != "" && project != l.project {
		return false
	}

	switch ev.EventType() {
	case event.TypeArtifactPresenceChanged:
		return true
	case event.TypeTaskProgressChanged:
		return l.state.Step == artifact.StepImplement || l.state.Step == artifact.StepVerify
	case event.TypeRoadmapProgressChanged:
		return l.state.Step == artifact.StepAnalyze
	case event.TypeSessionEnded:
		// A finished session may have written artifacts the debounced
		// signals have not surfaced yet.
		return true
	default:
		return false
	}
}

// evaluateLocked recomputes the current step's completion predicate and
// advances while steps keep completing, so a single event can carry a
// project through several steps whose criteria already hold.
func (l *Loop) evaluateLocked() {
	for {
		if !l.stepCompleteLocked() {
			if l.state.Status == artifact.StatusPending {
				l.transitionLocked(l.state.Step, artifact.StatusInProgress)
			}
			return
		}

		next, ok := artifact.NextStep(l.state.Step)
		if !ok {
			if l.state.Status != artifact.StatusComplete {
				l.transitionLocked(l.state.Step, artifact.StatusComplete)
			}
			return
		}
		l.transitionLocked(next, artifact.StatusInProgress)
	}
}

// stepCompleteLocked is the completion predicate for the current step,
// derived from parsed artifacts only.
func (l *Loop) stepCompleteLocked() bool {
	switch l.state.Step {
	case artifact.StepDesign:
		return l.view.DesignArtifactsPresent()
	case artifact.StepAnalyze:
		roadmap := l.view.RoadmapSnapshot()
		return roadmap != nil && roadmap.Complete()
	case artifact.StepImplement, artifact.StepVerify:
		tasks := l.view.TaskSnapshot()
		return tasks != nil && tasks.AllDone()
	default:
		return false
	}
}

func (l *Loop) transitionLocked(step artifact.Step, status artifact.StepStatus) {
	l.logger.Info("step transition",
		"from", string(l.state.Step), "to", string(step), "status", string(status))

	l.state.Step = step
	l.state.Status = status
	l.state.Updated = l.now()
	if err := l.persistLocked(); err != nil {
		// The in-memory state stays authoritative; the next transition
		// retries the write.
		l.logger.Error("persisting orchestration state", "error", err)
	}
	l.pub.Publish(event.NewPhaseStatusChangedEvent(l.project, string(step), string(status)))
}

func (l *Loop) persistLocked() error {
	data, err := artifact.EncodeState(l.state)
	if err != nil {
		return err
	}
	return l.files.Save(stateKey, data)
}

func eventProject(ev event.Event) string {
	switch e := ev.(type) {
	case event.TaskProgressChangedEvent:
		return e.Project
	case event.RoadmapProgressChangedEvent:
		return e.Project
	case event.ArtifactPresenceChangedEvent:
		return e.Project
	case event.PhaseStatusChangedEvent:
		return e.Project
	case event.SessionMessageAppendedEvent:
		return e.Project
	case event.SessionQuestionDetectedEvent:
		return e.Project
	case event.SessionEndedEvent:
		return e.Project
	case event.ExecutionStatusChangedEvent:
		return e.Project
	default:
		return ""
	}
}
