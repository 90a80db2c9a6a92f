// Package watcher implements the change observer: it watches a bounded set
// of tracked files per project, coalesces bursts of writes per path into a
// single signal after a class-specific quiet period, and emits raw
// path-changed signals for the normalizer to consume.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stride-dev/stride/internal/logging"
)

// Class is the debounce policy applied to a tracked path based on its
// artifact type.
type Class int

const (
	// ClassProjectDoc covers the state file, task list, and roadmap.
	ClassProjectDoc Class = iota
	// ClassTranscript covers session transcript files, which are written
	// more frequently and get a shorter quiet period.
	ClassTranscript
)

// String returns a human-readable name for a debounce class.
func (c Class) String() string {
	switch c {
	case ClassProjectDoc:
		return "project_doc"
	case ClassTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

// Config holds tunables for the observer.
type Config struct {
	// ProjectDocQuiet is the quiet period for project documents.
	ProjectDocQuiet time.Duration
	// TranscriptQuiet is the quiet period for session transcripts.
	TranscriptQuiet time.Duration
	// RegisterBackoff is the fixed delay between re-attempts to register
	// a path whose directory does not exist yet.
	RegisterBackoff time.Duration
	// SignalBuffer is the capacity of the outgoing signal channel.
	SignalBuffer int
}

// DefaultConfig returns the default observer configuration.
func DefaultConfig() Config {
	return Config{
		ProjectDocQuiet: 200 * time.Millisecond,
		TranscriptQuiet: 100 * time.Millisecond,
		RegisterBackoff: 2 * time.Second,
		SignalBuffer:    64,
	}
}

func (c Config) quietFor(class Class) time.Duration {
	if class == ClassTranscript {
		return c.TranscriptQuiet
	}
	return c.ProjectDocQuiet
}

// Signal is one debounced path-changed notification. It carries only the
// path; consumers re-read and re-parse the file themselves.
type Signal struct {
	Path  string
	Class Class
}

// Observer watches tracked paths via fsnotify and emits debounced signals.
// Directories (not files) are registered with the OS watcher so atomic
// rename-over writes are still observed; events are filtered down to the
// tracked paths.
type Observer struct {
	cfg     Config
	logger  *logging.Logger
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	tracked     map[string]Class       // absolute path -> debounce class
	watchedDirs map[string]int         // directory -> tracked path refcount
	pending     map[string]Class       // paths whose directory watch failed
	timers      map[string]*time.Timer // per-path debounce timers

	signals     chan Signal
	unavailable chan Class
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// New creates an Observer. It fails only if the OS notification primitive
// itself cannot be created; per-path registration failures are reported
// through the Unavailable channel instead.
func New(cfg Config, logger *logging.Logger) (*Observer, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Observer{
		cfg:         cfg,
		logger:      logger.WithComponent("watcher"),
		watcher:     w,
		tracked:     make(map[string]Class),
		watchedDirs: make(map[string]int),
		pending:     make(map[string]Class),
		timers:      make(map[string]*time.Timer),
		signals:     make(chan Signal, cfg.SignalBuffer),
		unavailable: make(chan Class, 4),
		stopCh:      make(chan struct{}),
	}, nil
}

// Signals returns the channel of debounced path-changed signals.
func (o *Observer) Signals() <-chan Signal {
	return o.signals
}

// Unavailable returns a channel that receives the debounce class of any
// path whose OS watch could not be initialized. Callers may fall back to
// polling; the observer itself keeps running for other paths.
func (o *Observer) Unavailable() <-chan Class {
	return o.unavailable
}

// Watch registers a path for observation under the given class. The path
// does not need to exist yet: a transcript appears only after the external
// agent creates it. If its directory is also missing, registration is
// retried on a fixed backoff.
func (o *Observer) Watch(path string, class Class) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.tracked[abs]; ok {
		return
	}
	o.tracked[abs] = class
	o.registerLocked(abs, class)
}

// registerLocked adds the path's directory to the OS watcher. Callers must
// hold o.mu.
func (o *Observer) registerLocked(path string, class Class) {
	dir := filepath.Dir(path)

	if o.watchedDirs[dir] > 0 {
		o.watchedDirs[dir]++
		delete(o.pending, path)
		return
	}

	if err := o.watcher.Add(dir); err != nil {
		if os.IsNotExist(err) {
			// Directory not created yet; retry on backoff.
			o.pending[path] = class
			return
		}
		// Resource limits or another hard failure: degrade explicitly
		// rather than silently doing nothing.
		o.logger.Warn("watch unavailable", "path", path, "error", err)
		delete(o.pending, path)
		select {
		case o.unavailable <- class:
		default:
		}
		return
	}

	o.watchedDirs[dir]++
	delete(o.pending, path)
}

// Unwatch stops observing a path.
func (o *Observer) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.tracked[abs]; !ok {
		return
	}
	delete(o.tracked, abs)
	delete(o.pending, abs)

	if t, ok := o.timers[abs]; ok {
		t.Stop()
		delete(o.timers, abs)
	}

	dir := filepath.Dir(abs)
	if o.watchedDirs[dir] > 0 {
		o.watchedDirs[dir]--
		if o.watchedDirs[dir] == 0 {
			delete(o.watchedDirs, dir)
			_ = o.watcher.Remove(dir)
		}
	}
}

// Start begins processing filesystem events.
func (o *Observer) Start() {
	go o.eventLoop()
	go o.retryLoop()
}

// Stop shuts the observer down and releases the OS watcher.
func (o *Observer) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		_ = o.watcher.Close()

		o.mu.Lock()
		for path, t := range o.timers {
			t.Stop()
			delete(o.timers, path)
		}
		o.mu.Unlock()
	})
}

// eventLoop filters raw fsnotify events down to tracked paths and applies
// per-path debouncing.
func (o *Observer) eventLoop() {
	for {
		select {
		case <-o.stopCh:
			return

		case ev, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			// Writes, creates, and renames all count as content changes;
			// atomic replace surfaces as Create or Rename on the target.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			o.handleEvent(ev.Name)

		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			o.logger.Warn("watch error", "error", err)
		}
	}
}

// handleEvent debounces an event for a tracked path. Multiple writes within
// the class quiet period collapse into one signal.
func (o *Observer) handleEvent(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		abs = name
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	class, ok := o.tracked[abs]
	if !ok {
		return
	}

	if t, ok := o.timers[abs]; ok {
		t.Reset(o.cfg.quietFor(class))
		return
	}

	path := abs
	o.timers[abs] = time.AfterFunc(o.cfg.quietFor(class), func() {
		o.mu.Lock()
		delete(o.timers, path)
		o.mu.Unlock()

		select {
		case o.signals <- Signal{Path: path, Class: class}:
		case <-o.stopCh:
		}
	})
}

// retryLoop re-attempts registration for paths whose directories did not
// exist yet, on a fixed backoff.
func (o *Observer) retryLoop() {
	ticker := time.NewTicker(o.cfg.RegisterBackoff)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.mu.Lock()
			for path, class := range o.pending {
				o.registerLocked(path, class)
			}
			o.mu.Unlock()
		}
	}
}
