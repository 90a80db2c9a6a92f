package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/logging"
)

func testHub(queueSize int, snapshotFn SnapshotFunc) *Hub {
	return New(Config{QueueSize: queueSize}, snapshotFn, logging.NopLogger())
}

func TestHub_SnapshotBeforeEvents(t *testing.T) {
	snapshotFn := func() Snapshot {
		return Snapshot{
			Generated: time.Now(),
			Projects:  []ProjectSnapshot{{Project: "demo"}},
		}
	}
	h := testHub(8, snapshotFn)
	defer h.Stop()

	sub := h.Subscribe()
	if len(sub.Snapshot().Projects) != 1 || sub.Snapshot().Projects[0].Project != "demo" {
		t.Errorf("subscriber should receive the full snapshot: %+v", sub.Snapshot())
	}

	h.Publish(event.NewTaskProgressChangedEvent("demo", 1, 3))

	select {
	case ev := <-sub.Events():
		if ev.EventType() != event.TypeTaskProgressChanged {
			t.Errorf("unexpected event: %s", ev.EventType())
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_FanOut(t *testing.T) {
	h := testHub(8, nil)
	defer h.Stop()

	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(event.NewSessionEndedEvent("demo", "sess-1"))

	for _, sub := range []*Subscriber{a, b} {
		select {
		case ev := <-sub.Events():
			if ev.EventType() != event.TypeSessionEnded {
				t.Errorf("unexpected event: %s", ev.EventType())
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive the event", sub.ID())
		}
	}
}

func TestHub_SlowSubscriberIsolation(t *testing.T) {
	h := testHub(2, nil)
	defer h.Stop()

	slow := h.Subscribe() // never drained
	fast := h.Subscribe()

	// Publish past the slow subscriber's bound. The fast subscriber drains
	// as it goes and must see every event.
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range fast.Events() {
			received++
			if received == 5 {
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		h.Publish(event.NewTaskProgressChangedEvent("demo", i, 5))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("fast subscriber received only %d of 5 events", received)
	}

	// The slow subscriber must have been dropped and its stream closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-slow.Events():
			if !ok {
				if h.SubscriberCount() != 1 {
					t.Errorf("expected 1 remaining subscriber, got %d", h.SubscriberCount())
				}
				return
			}
		case <-deadline:
			t.Fatal("slow subscriber stream was never closed")
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := testHub(4, nil)
	defer h.Stop()

	sub := h.Subscribe()
	if !h.Unsubscribe(sub) {
		t.Error("Unsubscribe should return true for a registered subscriber")
	}
	if h.Unsubscribe(sub) {
		t.Error("double unsubscribe should return false")
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("stream should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	h.Publish(event.NewHeartbeatEvent())
}

func TestHub_Heartbeat(t *testing.T) {
	h := New(Config{QueueSize: 4, HeartbeatInterval: 20 * time.Millisecond}, nil, logging.NopLogger())
	h.Start()
	defer h.Stop()

	sub := h.Subscribe()

	select {
	case ev := <-sub.Events():
		if ev.EventType() != event.TypeHeartbeat {
			t.Errorf("expected heartbeat, got %s", ev.EventType())
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat received")
	}
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	h := testHub(256, nil)
	defer h.Stop()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				h.Publish(event.NewHeartbeatEvent())
			}
		}
	}()

	for i := 0; i < 50; i++ {
		sub := h.Subscribe()
		h.Unsubscribe(sub)
	}
	close(stop)
}

func TestHub_SnapshotSourceContention(t *testing.T) {
	// The snapshot source and the publishers share a lock, the way pipeline
	// publishers hold artifact locks that the registry snapshot also reads
	// under. Subscribe must not hold the hub lock while the snapshot is
	// built, or the two paths deadlock against each other.
	var srcMu sync.Mutex
	h := New(Config{QueueSize: 8}, func() Snapshot {
		srcMu.Lock()
		defer srcMu.Unlock()
		return Snapshot{Generated: time.Now()}
	}, logging.NopLogger())
	defer h.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				srcMu.Lock()
				h.Publish(event.NewHeartbeatEvent())
				srcMu.Unlock()
			}
		}()
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				sub := h.Subscribe()
				h.Unsubscribe(sub)
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publish and subscribe deadlocked against the snapshot source")
	}
}
