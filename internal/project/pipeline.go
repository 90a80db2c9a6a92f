package project

import (
	"github.com/stride-dev/stride/internal/config"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/execution"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/normalizer"
	"github.com/stride-dev/stride/internal/orchestrator"
	"github.com/stride-dev/stride/internal/store"
	"github.com/stride-dev/stride/internal/watcher"
)

// Pipeline is the full event-driven machinery for one project: observer →
// normalizer → hub, with the decision loop and the execution manager
// subscribed back to the hub. Different projects run pipelines fully in
// parallel; within one pipeline each stage enforces its own serialization.
type Pipeline struct {
	handle   Handle
	files    *store.FileStore
	observer *watcher.Observer
	norm     *normalizer.Normalizer
	loop     *orchestrator.Loop
	manager  *execution.Manager
	hub      *hub.Hub
	logger   *logging.Logger

	loopSub *hub.Subscriber
	execSub *hub.Subscriber
}

// NewPipeline assembles the pipeline for one project. Nothing runs until
// Start is called.
func NewPipeline(handle Handle, cfg *config.Config, h *hub.Hub, logger *logging.Logger) (*Pipeline, error) {
	files, err := store.NewFileStore(handle.StateDir())
	if err != nil {
		return nil, errors.Wrap(err, "creating project state dir")
	}

	observer, err := watcher.New(watcher.Config{
		ProjectDocQuiet: cfg.Watcher.ProjectDocQuiet(),
		TranscriptQuiet: cfg.Watcher.TranscriptQuiet(),
		RegisterBackoff: cfg.Watcher.RegisterBackoff(),
		SignalBuffer:    cfg.Hub.QueueSize,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "creating change observer")
	}

	norm := normalizer.New(handle.Name, h, logger)
	loop, err := orchestrator.New(handle.Name, norm, h, files, logger)
	if err != nil {
		observer.Stop()
		return nil, err
	}

	manager := execution.NewManager(handle.Name, execution.Config{
		Binary:  cfg.Agent.Binary,
		Args:    cfg.Agent.Args,
		WorkDir: handle.Root,
	}, files, h, logger)

	p := &Pipeline{
		handle:   handle,
		files:    files,
		observer: observer,
		norm:     norm,
		loop:     loop,
		manager:  manager,
		hub:      h,
		logger:   logger.WithComponent("pipeline").WithProject(handle.Name),
	}

	p.track(handle.StatePath(), watcher.ClassProjectDoc, normalizer.KindState)
	p.track(handle.TaskListPath(), watcher.ClassProjectDoc, normalizer.KindTasks)
	p.track(handle.RoadmapPath(), watcher.ClassProjectDoc, normalizer.KindRoadmap)

	return p, nil
}

// Start runs the observer and subscribes the decision loop and execution
// manager to the hub, then primes the caches with one pass over the
// tracked documents so a restart picks up where the files already are.
func (p *Pipeline) Start() {
	p.observer.Start()
	go p.norm.Run(p.observer.Signals())

	p.loopSub = p.hub.Subscribe()
	go p.loop.Run(p.loopSub)

	p.execSub = p.hub.Subscribe()
	go p.manager.Run(p.execSub.Events())

	p.norm.Process(p.handle.StatePath())
	p.norm.Process(p.handle.TaskListPath())
	p.norm.Process(p.handle.RoadmapPath())
	p.loop.Evaluate()

	p.logger.Info("pipeline started", "root", p.handle.Root)
}

// Stop halts the observer and detaches the loop and manager subscribers.
func (p *Pipeline) Stop() {
	p.observer.Stop()
	if p.loopSub != nil {
		p.hub.Unsubscribe(p.loopSub)
	}
	if p.execSub != nil {
		p.hub.Unsubscribe(p.execSub)
	}
	p.logger.Info("pipeline stopped")
}

// Handle returns the project's handle.
func (p *Pipeline) Handle() Handle { return p.handle }

// Loop returns the project's decision loop.
func (p *Pipeline) Loop() *orchestrator.Loop { return p.loop }

// Manager returns the project's execution manager.
func (p *Pipeline) Manager() *execution.Manager { return p.manager }

// WatchTranscript registers a session's transcript file with the observer
// and normalizer. Transcripts appear only after the agent creates them;
// the observer retries registration until the file's directory exists.
func (p *Pipeline) WatchTranscript(sessionID string) {
	p.track(p.handle.TranscriptPath(sessionID), watcher.ClassTranscript, normalizer.KindTranscript)
}

// Snapshot captures the project's full current derived state. The
// orchestration state comes from the decision loop, which owns the
// authoritative copy; the loop persists under the state directory, not the
// watched project document.
func (p *Pipeline) Snapshot() hub.ProjectSnapshot {
	state := p.loop.State()
	snap := hub.ProjectSnapshot{
		Project:    p.handle.Name,
		State:      &state,
		Tasks:      p.norm.TaskSnapshot(),
		Roadmap:    p.norm.RoadmapSnapshot(),
		Transcript: p.norm.ActiveTranscript(),
	}
	if index, err := store.LoadIndex(p.files); err == nil {
		snap.Index = index
	}
	return snap
}

func (p *Pipeline) track(path string, class watcher.Class, kind normalizer.Kind) {
	p.norm.Track(path, kind)
	p.observer.Watch(path, class)
}
