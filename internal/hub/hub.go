// Package hub implements the broadcast hub: a process-wide registry of
// subscriber queues. Normalized domain events are published once and
// delivered to every active subscriber; a new subscriber receives a full
// current snapshot before any incremental events.
//
// Publish never blocks on a slow consumer. Each subscriber owns a bounded
// queue; overflowing it drops the subscriber, which must resync with a
// fresh Subscribe. This makes backpressure an explicit, testable policy.
package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stride-dev/stride/internal/artifact"
	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/logging"
	"github.com/stride-dev/stride/internal/store"
)

// ProjectSnapshot is the full current derived state of one project.
type ProjectSnapshot struct {
	Project    string                       `json:"project"`
	State      *artifact.OrchestrationState `json:"state,omitempty"`
	Tasks      *artifact.TaskList           `json:"tasks,omitempty"`
	Roadmap    *artifact.Roadmap            `json:"roadmap,omitempty"`
	Index      *store.WorkflowIndex         `json:"index,omitempty"`
	Transcript *artifact.TranscriptSnapshot `json:"transcript,omitempty"`
}

// Snapshot is what a newly connected subscriber receives before any
// incremental events, so it never has to diff a partial history.
type Snapshot struct {
	Generated time.Time         `json:"generated"`
	Projects  []ProjectSnapshot `json:"projects"`
}

// SnapshotFunc produces the current full snapshot. It is called outside
// the hub lock, after the subscriber's queue is already registered, and may
// take the snapshot provider's own locks.
type SnapshotFunc func() Snapshot

// Config holds hub tunables.
type Config struct {
	// QueueSize bounds each subscriber's event queue.
	QueueSize int
	// HeartbeatInterval is how often a heartbeat event is sent to every
	// subscriber so consumers can tell a dead connection from an idle one.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns the default hub configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:         64,
		HeartbeatInterval: 15 * time.Second,
	}
}

// Subscriber is one registered consumer of the event stream.
type Subscriber struct {
	id       string
	snapshot Snapshot
	events   chan event.Event
}

// ID returns the subscriber's registry identifier.
func (s *Subscriber) ID() string { return s.id }

// Snapshot returns the full state captured at subscribe time.
func (s *Subscriber) Snapshot() Snapshot { return s.snapshot }

// Events returns the subscriber's event stream. The channel is closed when
// the subscriber is unsubscribed or dropped for falling behind; a consumer
// seeing the close must resync with a fresh Subscribe.
func (s *Subscriber) Events() <-chan event.Event { return s.events }

// Hub fans published events out to all subscribers. Safe under concurrent
// publish, subscribe, and unsubscribe.
type Hub struct {
	cfg        Config
	logger     *logging.Logger
	snapshotFn SnapshotFunc

	mu     sync.Mutex
	subs   map[string]*Subscriber
	nextID atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Hub. snapshotFn may be nil, in which case subscribers
// receive an empty snapshot.
func New(cfg Config, snapshotFn SnapshotFunc, logger *logging.Logger) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Hub{
		cfg:        cfg,
		logger:     logger.WithComponent("hub"),
		snapshotFn: snapshotFn,
		subs:       make(map[string]*Subscriber),
		stopCh:     make(chan struct{}),
	}
}

// Start begins the per-subscriber heartbeat ticker.
func (h *Hub) Start() {
	if h.cfg.HeartbeatInterval <= 0 {
		return
	}
	go h.heartbeatLoop()
}

// Stop shuts the hub down and closes every subscriber stream.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, sub := range h.subs {
			close(sub.events)
			delete(h.subs, id)
		}
	})
}

// Subscribe registers a new consumer. The queue is registered before the
// snapshot is built, so no event published in between is lost. An event
// whose effect is already reflected in the snapshot may sit in the queue;
// every event carries absolute values, so folding it again is a no-op for
// the consumer.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		id:     fmt.Sprintf("sub-%d", h.nextID.Add(1)),
		events: make(chan event.Event, h.cfg.QueueSize),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	// Snapshot providers publish while holding their own locks, so the
	// snapshot must be built without holding the hub lock.
	if h.snapshotFn != nil {
		sub.snapshot = h.snapshotFn()
	}
	return sub
}

// Unsubscribe removes a subscriber and closes its stream.
// Returns true if the subscriber was registered.
func (h *Hub) Unsubscribe(sub *Subscriber) bool {
	if sub == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return false
	}
	delete(h.subs, sub.id)
	close(sub.events)
	return true
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish fans an event out to every subscriber without blocking. A
// subscriber whose queue is full is dropped; remaining subscribers are
// unaffected and lose no events.
func (h *Hub) Publish(ev event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(ev)
}

func (h *Hub) publishLocked(ev event.Event) {
	for id, sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			// Queue overflow: the subscriber fell behind its bound and
			// must resync via a fresh subscribe.
			staleErr := errors.NewStaleSubscriberError(id, h.cfg.QueueSize)
			h.logger.Warn("dropping stale subscriber", "subscriber", id, "error", staleErr)
			delete(h.subs, id)
			close(sub.events)
		}
	}
}

// heartbeatLoop sends a heartbeat event to every subscriber on a fixed
// interval. Heartbeats count against the queue bound like any other event,
// so a consumer that never drains is still detected and dropped.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.mu.Lock()
			h.publishLocked(event.NewHeartbeatEvent())
			h.mu.Unlock()
		}
	}
}
