package project

import (
	"sort"
	"sync"
	"time"

	"github.com/stride-dev/stride/internal/config"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
)

// Registry owns the shared hub and one pipeline per registered project.
type Registry struct {
	cfg    *config.Config
	logger *logging.Logger
	h      *hub.Hub

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

// NewRegistry creates a registry and its hub. The hub's subscriber
// snapshot aggregates every registered project.
func NewRegistry(cfg *config.Config, logger *logging.Logger) *Registry {
	r := &Registry{
		cfg:       cfg,
		logger:    logger.WithComponent("registry"),
		pipelines: make(map[string]*Pipeline),
	}
	r.h = hub.New(hub.Config{
		QueueSize:         cfg.Hub.QueueSize,
		HeartbeatInterval: cfg.Hub.HeartbeatInterval(),
	}, r.snapshot, logger)
	return r
}

// Hub returns the shared broadcast hub.
func (r *Registry) Hub() *hub.Hub { return r.h }

// Start runs the hub's heartbeat.
func (r *Registry) Start() {
	r.h.Start()
}

// Stop halts every pipeline and shuts the hub down.
func (r *Registry) Stop() {
	r.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		pipelines = append(pipelines, p)
	}
	r.pipelines = make(map[string]*Pipeline)
	r.mu.Unlock()

	for _, p := range pipelines {
		p.Stop()
	}
	r.h.Stop()
}

// Register creates and starts a pipeline for a project root. Registering
// an already registered project returns the existing pipeline.
func (r *Registry) Register(root string) (*Pipeline, error) {
	handle, err := NewHandle(root)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.pipelines[handle.Name]; ok {
		r.mu.Unlock()
		return existing, nil
	}

	p, err := NewPipeline(handle, r.cfg, r.h, r.logger)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.pipelines[handle.Name] = p
	// Start outside the registry lock: subscribing to the hub triggers a
	// snapshot, which takes the registry lock again.
	r.mu.Unlock()
	p.Start()

	r.logger.Info("project registered", "project", handle.Name, "root", handle.Root)
	return p, nil
}

// Unregister stops and removes a project's pipeline. The project's
// operational state on disk is left intact.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	p, ok := r.pipelines[name]
	delete(r.pipelines, name)
	r.mu.Unlock()

	if !ok {
		return errors.NewNotFoundError("project", name)
	}
	p.Stop()
	r.logger.Info("project unregistered", "project", name)
	return nil
}

// Get returns a registered project's pipeline.
func (r *Registry) Get(name string) (*Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pipelines[name]
	if !ok {
		return nil, errors.NewNotFoundError("project", name)
	}
	return p, nil
}

// Names returns the registered project names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshot builds the hub snapshot across all registered projects.
func (r *Registry) snapshot() hub.Snapshot {
	r.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		pipelines = append(pipelines, p)
	}
	r.mu.Unlock()

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].handle.Name < pipelines[j].handle.Name
	})

	snap := hub.Snapshot{Generated: time.Now()}
	for _, p := range pipelines {
		snap.Projects = append(snap.Projects, p.Snapshot())
	}
	return snap
}
