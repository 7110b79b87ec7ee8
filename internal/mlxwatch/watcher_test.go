package mlxwatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

func TestEventsURLRewritesSchemeAndPath(t *testing.T) {
	cases := map[string]string{
		"http://127.0.0.1:8765":      "ws://127.0.0.1:8765/events",
		"https://mlx.example.com":    "wss://mlx.example.com/events",
		"http://127.0.0.1:8765/api/": "ws://127.0.0.1:8765/api/events",
	}
	for in, want := range cases {
		if got := eventsURL(in); got != want {
			t.Errorf("eventsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeConn struct {
	messages []events.MLXModelStateChangedPayload
	pos      int
	closed   bool
}

func (f *fakeConn) readJSON(ctx context.Context, v any) error {
	if f.pos >= len(f.messages) {
		return errors.New("connection closed")
	}
	raw, _ := json.Marshal(f.messages[f.pos])
	f.pos++
	return json.Unmarshal(raw, v)
}

func (f *fakeConn) close() { f.closed = true }

func TestWatcherRunPublishesDecodedEvents(t *testing.T) {
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	progress := 0.5
	conn := &fakeConn{messages: []events.MLXModelStateChangedPayload{
		{EventType: "download_progress", ModelID: "qwen-7b", Progress: &progress},
	}}

	w := &Watcher{url: "ws://example", bus: bus}
	w.dial = func(ctx context.Context, url string) (wsConn, error) {
		return conn, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go w.Run(ctx)

	select {
	case ev := <-ch:
		payload, ok := ev.Payload.(events.MLXModelStateChangedPayload)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Payload)
		}
		if payload.ModelID != "qwen-7b" || payload.Progress == nil || *payload.Progress != 0.5 {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatcherRunRetriesOnDialFailure(t *testing.T) {
	bus := events.NewBus()
	attempts := 0
	w := &Watcher{url: "ws://example", bus: bus}
	w.dial = func(ctx context.Context, url string) (wsConn, error) {
		attempts++
		return nil, errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if attempts == 0 {
		t.Fatal("expected at least one dial attempt")
	}
}
