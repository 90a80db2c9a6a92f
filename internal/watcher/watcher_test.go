package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/logging"
)

func testConfig() Config {
	return Config{
		ProjectDocQuiet: 50 * time.Millisecond,
		TranscriptQuiet: 25 * time.Millisecond,
		RegisterBackoff: 50 * time.Millisecond,
		SignalBuffer:    16,
	}
}

func newTestObserver(t *testing.T) *Observer {
	t.Helper()
	o, err := New(testConfig(), logging.NopLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(o.Stop)
	o.Start()
	return o
}

func waitSignal(t *testing.T, o *Observer, timeout time.Duration) (Signal, bool) {
	t.Helper()
	select {
	case sig := <-o.Signals():
		return sig, true
	case <-time.After(timeout):
		return Signal{}, false
	}
}

func TestObserver_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.md")
	if err := os.WriteFile(path, []byte("- [ ] T1 a\n"), 0644); err != nil {
		t.Fatal(err)
	}

	o := newTestObserver(t)
	o.Watch(path, ClassProjectDoc)

	// Burst of writes within the quiet period.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("- [x] T1 a\n"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	sig, ok := waitSignal(t, o, time.Second)
	if !ok {
		t.Fatal("expected a signal after the quiet period")
	}
	if sig.Path != path || sig.Class != ClassProjectDoc {
		t.Errorf("unexpected signal: %+v", sig)
	}

	// The burst must collapse to exactly one signal.
	if extra, ok := waitSignal(t, o, 150*time.Millisecond); ok {
		t.Errorf("burst should coalesce to one signal, got extra %+v", extra)
	}
}

func TestObserver_SeparateBurstsSeparateSignals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	os.WriteFile(path, []byte("{}"), 0644)

	o := newTestObserver(t)
	o.Watch(path, ClassProjectDoc)

	os.WriteFile(path, []byte(`{"a":1}`), 0644)
	if _, ok := waitSignal(t, o, time.Second); !ok {
		t.Fatal("first signal missing")
	}

	os.WriteFile(path, []byte(`{"a":2}`), 0644)
	if _, ok := waitSignal(t, o, time.Second); !ok {
		t.Fatal("second signal missing")
	}
}

func TestObserver_PathCreatedLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")

	o := newTestObserver(t)
	o.Watch(path, ClassTranscript)

	// File does not exist at registration time; the directory does, so the
	// create event must be observed.
	if err := os.WriteFile(path, []byte(`{"type":"message"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sig, ok := waitSignal(t, o, time.Second)
	if !ok {
		t.Fatal("expected a signal for the created file")
	}
	if sig.Class != ClassTranscript {
		t.Errorf("unexpected class: %v", sig.Class)
	}
}

func TestObserver_DirectoryCreatedLater(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "sessions")
	path := filepath.Join(dir, "sess-1.jsonl")

	o := newTestObserver(t)
	o.Watch(path, ClassTranscript)

	// Directory appears after registration; backoff retry must pick it up.
	time.Sleep(20 * time.Millisecond)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the retry loop a cycle to register the new directory.
	time.Sleep(150 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"type":"message"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := waitSignal(t, o, 2*time.Second); !ok {
		t.Fatal("expected a signal once the directory and file exist")
	}
}

func TestObserver_AtomicRenameObserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	os.WriteFile(path, []byte("{}"), 0644)

	o := newTestObserver(t)
	o.Watch(path, ClassProjectDoc)

	// Write-temp-then-rename, the persistence protocol used by the pipeline.
	tmp := filepath.Join(dir, ".tmp-state")
	os.WriteFile(tmp, []byte(`{"step":"analyze"}`), 0644)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	if _, ok := waitSignal(t, o, time.Second); !ok {
		t.Fatal("atomic rename over a tracked path should produce a signal")
	}
}

func TestObserver_UnwatchStopsSignals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadmap.md")
	os.WriteFile(path, []byte("# r\n"), 0644)

	o := newTestObserver(t)
	o.Watch(path, ClassProjectDoc)
	o.Unwatch(path)

	os.WriteFile(path, []byte("# changed\n"), 0644)
	if sig, ok := waitSignal(t, o, 150*time.Millisecond); ok {
		t.Errorf("unwatched path should not signal, got %+v", sig)
	}
}
