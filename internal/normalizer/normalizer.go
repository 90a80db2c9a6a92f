// Package normalizer turns raw path-changed signals into typed domain
// events. For each signal it re-parses the affected artifact, diffs the new
// snapshot against the cached previous one, and publishes events only for
// detected deltas. Re-parsing an unchanged file produces no events.
//
// Signals for the same path are serialized so diffing stays monotonic;
// signals for different paths process concurrently.
package normalizer

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/watcher"
)

// Kind identifies which artifact parser applies to a tracked path.
type Kind int

const (
	KindState Kind = iota
	KindTasks
	KindRoadmap
	KindTranscript
)

// String returns a human-readable name for an artifact kind.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindTasks:
		return "tasks"
	case KindRoadmap:
		return "roadmap"
	case KindTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

// Publisher is the outbound side of the normalizer, satisfied by the hub.
type Publisher interface {
	Publish(event.Event)
}

// pathEntry holds the per-path cache and serialization lock.
type pathEntry struct {
	kind Kind
	mu   sync.Mutex // serializes processing for this path

	exists     bool
	state      *artifact.OrchestrationState
	tasks      *artifact.TaskList
	roadmap    *artifact.Roadmap
	transcript *artifact.TranscriptSnapshot
}

// Normalizer consumes signals for one project and emits domain events.
type Normalizer struct {
	project string
	pub     Publisher
	logger  *logging.Logger

	mu    sync.RWMutex
	paths map[string]*pathEntry
}

// New creates a Normalizer for one project.
func New(project string, pub Publisher, logger *logging.Logger) *Normalizer {
	return &Normalizer{
		project: project,
		pub:     pub,
		logger:  logger.WithComponent("normalizer").WithProject(project),
		paths:   make(map[string]*pathEntry),
	}
}

// Track registers a path with its artifact kind. Tracking an already
// tracked path is a no-op.
func (n *Normalizer) Track(path string, kind Kind) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.paths[abs]; !ok {
		n.paths[abs] = &pathEntry{kind: kind}
	}
}

// Untrack forgets a path and its cached snapshot.
func (n *Normalizer) Untrack(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.paths, abs)
}

// Run consumes signals until the channel closes. Each signal is processed
// on its own goroutine; the per-path lock keeps same-path work serialized.
func (n *Normalizer) Run(signals <-chan watcher.Signal) {
	for sig := range signals {
		go n.Process(sig.Path)
	}
}

// Process re-parses the artifact at path, diffs it against the cached
// snapshot, and publishes events for deltas. Parse failures and transient
// read failures are contained: the previous good snapshot is retained and
// no event is emitted.
func (n *Normalizer) Process(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	n.mu.RLock()
	entry, ok := n.paths[abs]
	n.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if entry.exists {
				entry.exists = false
				n.pub.Publish(event.NewArtifactPresenceChangedEvent(n.project, entry.kind.String(), false))
			}
			return
		}
		// Temporarily unreadable: keep the previous snapshot, the next
		// signal will retry.
		n.logger.Warn("artifact read failed", "path", abs, "error", err)
		return
	}

	if !entry.exists {
		entry.exists = true
		n.pub.Publish(event.NewArtifactPresenceChangedEvent(n.project, entry.kind.String(), true))
	}

	switch entry.kind {
	case KindState:
		n.processState(entry, abs, data)
	case KindTasks:
		n.processTasks(entry, data)
	case KindRoadmap:
		n.processRoadmap(entry, data)
	case KindTranscript:
		n.processTranscript(entry, abs, data)
	}
}

func (n *Normalizer) processState(entry *pathEntry, path string, data []byte) {
	state, err := artifact.ParseState(data)
	if err != nil {
		n.logger.Warn("state parse failed, keeping previous snapshot", "path", path, "error", err)
		return
	}

	prev := entry.state
	entry.state = state

	if prev == nil || prev.Step != state.Step || prev.Status != state.Status {
		n.pub.Publish(event.NewPhaseStatusChangedEvent(n.project, string(state.Step), string(state.Status)))
	}
}

func (n *Normalizer) processTasks(entry *pathEntry, data []byte) {
	tasks := artifact.ParseTaskList(data)

	prev := entry.tasks
	entry.tasks = tasks

	completed, total := tasks.Counts()
	if prev != nil {
		prevCompleted, prevTotal := prev.Counts()
		if prevCompleted == completed && prevTotal == total {
			return
		}
	}
	n.pub.Publish(event.NewTaskProgressChangedEvent(n.project, completed, total))
}

func (n *Normalizer) processRoadmap(entry *pathEntry, data []byte) {
	roadmap := artifact.ParseRoadmap(data)

	prev := entry.roadmap
	entry.roadmap = roadmap

	done, total := roadmap.ItemCounts()
	if prev != nil {
		prevDone, prevTotal := prev.ItemCounts()
		if prevDone == done && prevTotal == total {
			return
		}
	}
	n.pub.Publish(event.NewRoadmapProgressChangedEvent(n.project, done, total))
}

func (n *Normalizer) processTranscript(entry *pathEntry, path string, data []byte) {
	next := artifact.ParseTranscript(data)
	if next.SessionID == "" {
		// Transcript files are named after their session id.
		next.SessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	prev := entry.transcript
	entry.transcript = next

	// Events follow the order records appear in the file.
	for _, record := range artifact.DiffTranscripts(prev, next) {
		if record.Type == artifact.RecordMessage {
			n.pub.Publish(event.NewSessionMessageAppendedEvent(n.project, next.SessionID, record.Role, record.Content))
		}
		if record.IsQuestion() {
			n.pub.Publish(event.NewSessionQuestionDetectedEvent(n.project, next.SessionID, record.Content))
		}
	}

	if next.Ended && (prev == nil || !prev.Ended) {
		n.pub.Publish(event.NewSessionEndedEvent(n.project, next.SessionID))
	}
}

// StateSnapshot returns the cached orchestration state, or nil.
func (n *Normalizer) StateSnapshot() *artifact.OrchestrationState {
	for _, entry := range n.entriesOf(KindState) {
		entry.mu.Lock()
		state := entry.state
		entry.mu.Unlock()
		if state != nil {
			return state
		}
	}
	return nil
}

// TaskSnapshot returns the cached task list, or nil.
func (n *Normalizer) TaskSnapshot() *artifact.TaskList {
	for _, entry := range n.entriesOf(KindTasks) {
		entry.mu.Lock()
		tasks := entry.tasks
		entry.mu.Unlock()
		if tasks != nil {
			return tasks
		}
	}
	return nil
}

// RoadmapSnapshot returns the cached roadmap, or nil.
func (n *Normalizer) RoadmapSnapshot() *artifact.Roadmap {
	for _, entry := range n.entriesOf(KindRoadmap) {
		entry.mu.Lock()
		roadmap := entry.roadmap
		entry.mu.Unlock()
		if roadmap != nil {
			return roadmap
		}
	}
	return nil
}

// TranscriptFor returns the cached transcript snapshot for a session id,
// or nil.
func (n *Normalizer) TranscriptFor(sessionID string) *artifact.TranscriptSnapshot {
	for _, entry := range n.entriesOf(KindTranscript) {
		entry.mu.Lock()
		transcript := entry.transcript
		entry.mu.Unlock()
		if transcript != nil && transcript.SessionID == sessionID {
			return transcript
		}
	}
	return nil
}

// ActiveTranscript returns the most recently observed transcript that has
// not ended, or nil.
func (n *Normalizer) ActiveTranscript() *artifact.TranscriptSnapshot {
	for _, entry := range n.entriesOf(KindTranscript) {
		entry.mu.Lock()
		transcript := entry.transcript
		entry.mu.Unlock()
		if transcript != nil && !transcript.Ended {
			return transcript
		}
	}
	return nil
}

// DesignArtifactsPresent reports whether the task list and roadmap
// documents both exist on disk, the design-step exit criterion.
func (n *Normalizer) DesignArtifactsPresent() bool {
	tasks, roadmap := false, false
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, entry := range n.paths {
		entry.mu.Lock()
		exists := entry.exists
		entry.mu.Unlock()
		switch entry.kind {
		case KindTasks:
			tasks = tasks || exists
		case KindRoadmap:
			roadmap = roadmap || exists
		}
	}
	return tasks && roadmap
}

// entriesOf snapshots the entries of one kind. Entry locks are taken
// briefly by callers reading cached snapshots.
func (n *Normalizer) entriesOf(kind Kind) []*pathEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var entries []*pathEntry
	for _, entry := range n.paths {
		if entry.kind == kind {
			entries = append(entries, entry)
		}
	}
	return entries
}
