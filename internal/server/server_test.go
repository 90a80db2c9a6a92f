package server

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
)

func startTestServer(t *testing.T, snapshotFn hub.SnapshotFunc) (*Server, *hub.Hub) {
	t.Helper()
	h := hub.New(hub.Config{QueueSize: 16}, snapshotFn, logging.NopLogger())
	t.Cleanup(h.Stop)

	s := New("127.0.0.1:0", h, logging.NopLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, h
}

func TestServer_Health(t *testing.T) {
	s, _ := startTestServer(t, nil)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestServer_EventsSnapshotFirst(t *testing.T) {
	snapshotFn := func() hub.Snapshot {
		return hub.Snapshot{
			Generated: time.Now(),
			Projects:  []hub.ProjectSnapshot{{Project: "demo"}},
		}
	}
	s, h := startTestServer(t, snapshotFn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+s.Addr()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readFrame := func() (string, string) {
		t.Helper()
		var eventLine, dataLine string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading frame: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				eventLine = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				dataLine = strings.TrimPrefix(line, "data:")
			case line == "" && eventLine != "":
				return eventLine, dataLine
			}
		}
	}

	// The snapshot frame must arrive before any incremental event.
	eventType, data := readFrame()
	if eventType != event.TypeSnapshot {
		t.Fatalf("first frame should be the snapshot, got %q", eventType)
	}
	if !strings.Contains(data, `"demo"`) {
		t.Errorf("snapshot payload missing project: %s", data)
	}

	h.Publish(event.NewTaskProgressChangedEvent("demo", 1, 3))

	eventType, data = readFrame()
	if eventType != event.TypeTaskProgressChanged {
		t.Fatalf("expected task progress frame, got %q", eventType)
	}
	if !strings.Contains(data, `"completed":1`) {
		t.Errorf("unexpected payload: %s", data)
	}
}

func TestServer_EventsRejectsPost(t *testing.T) {
	s, _ := startTestServer(t, nil)

	resp, err := http.Post("http://"+s.Addr()+"/events", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_DoubleStartRejected(t *testing.T) {
	s, _ := startTestServer(t, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("second start must fail")
	}
}
