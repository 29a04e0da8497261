package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowcanvas/internal/service"
)

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// nextFrame returns the event name and data of the next non-comment frame
func nextFrame(r *bufio.Reader) (string, string, error) {
	var name, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			return name, data, nil
		}
	}
}

func readFrame(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	name, data, err := nextFrame(r)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return name, data
}

func TestEncode(t *testing.T) {
	frame, err := encode(service.Event{Type: service.EventNodeDeleted, ProjectID: "p1", Payload: map[string]string{"node_id": "a"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "event: node_deleted\ndata: {\"type\":\"node_deleted\",\"projectId\":\"p1\",\"payload\":{\"node_id\":\"a\"}}\n\n"
	if string(frame) != want {
		t.Errorf("expected %q, got %q", want, frame)
	}
}

func TestStreamFiltersByProject(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?project=p1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
	waitForClients(t, h, 1)

	h.Broadcast(service.Event{Type: service.EventNodeCreated, ProjectID: "p2"})
	h.Broadcast(service.Event{Type: service.EventNodeMoved, ProjectID: "p1"})

	name, data := readFrame(t, bufio.NewReader(resp.Body))
	if name != "node_moved" {
		t.Errorf("expected node_moved, got %q", name)
	}
	var got service.Event
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ProjectID != "p1" {
		t.Errorf("expected project p1, got %q", got.ProjectID)
	}
}

func TestForward(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)
	bus := service.NewEventBus()
	go h.Forward(ctx, bus)

	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	waitForClients(t, h, 1)

	// Forward subscribes asynchronously; publish until the frame arrives
	frames := make(chan string, 1)
	go func() {
		name, _, _ := nextFrame(bufio.NewReader(resp.Body))
		frames <- name
	}()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case name := <-frames:
			if name != "edge_created" {
				t.Errorf("expected edge_created, got %q", name)
			}
			return
		case <-ticker.C:
			bus.Publish(service.Event{Type: service.EventEdgeCreated, ProjectID: "any"})
		case <-timeout:
			t.Fatal("expected a forwarded event")
		}
	}
}

func TestRunStopsAndDropsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	waitForClients(t, h, 1)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return")
	}
	if n := h.ClientCount(); n != 0 {
		t.Errorf("expected clients dropped, got %d", n)
	}
}

func TestServeHTTPReturnsAfterShutdown(t *testing.T) {
	// The request and the hub end together, so the handler may leave
	// through either path
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		h := New()
		stopped := make(chan struct{})
		go func() {
			h.Run(ctx)
			close(stopped)
		}()

		reqCtx, reqCancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(reqCtx)
		served := make(chan struct{})
		go func() {
			h.ServeHTTP(httptest.NewRecorder(), req)
			close(served)
		}()
		waitForClients(t, h, 1)

		reqCancel()
		cancel()
		<-stopped

		select {
		case <-served:
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: ServeHTTP did not return after shutdown", i)
		}
	}
}

func TestServeHTTPAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	cancel()
	h.Run(ctx)

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected ServeHTTP to refuse a stopped hub")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
