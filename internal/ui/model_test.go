package ui

import (
	"testing"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

func TestApplyEventSessionStartedSetsRecording(t *testing.T) {
	m := Model{State: StateIdle}
	m = m.applyEvent(events.Event{Kind: events.SessionStarted, Payload: "sess-1"})
	if m.State != StateRecording {
		t.Fatalf("got state %v, want StateRecording", m.State)
	}
}

func TestApplyEventHideOverlayResetsToIdle(t *testing.T) {
	m := Model{State: StateRecording, MicBuckets: []float32{0.5}, Elapsed: 3}
	m = m.applyEvent(events.Event{Kind: events.HideOverlay})
	if m.State != StateIdle {
		t.Fatalf("got state %v, want StateIdle", m.State)
	}
	if m.MicBuckets != nil {
		t.Fatal("expected mic buckets cleared")
	}
	if m.Elapsed != 0 {
		t.Fatal("expected elapsed reset")
	}
}

func TestApplyEventShowOverlayTracksCancelling(t *testing.T) {
	m := Model{State: StateRecording}
	m = m.applyEvent(events.Event{Kind: events.ShowOverlay, Payload: "Cancelling"})
	if m.State != StateCancelling {
		t.Fatalf("got state %v, want StateCancelling", m.State)
	}
}

func TestApplyEventMicLevelStoresBuckets(t *testing.T) {
	m := Model{}
	buckets := []float32{0.1, 0.5, 0.9}
	m = m.applyEvent(events.Event{Kind: events.MicLevel, Payload: buckets})
	if len(m.MicBuckets) != 3 {
		t.Fatalf("got %v", m.MicBuckets)
	}
}

func TestApplyEventMicrophonePermissionDeniedSetsError(t *testing.T) {
	m := Model{}
	m = m.applyEvent(events.Event{Kind: events.MicrophonePermissionDenied})
	if m.State != StateError {
		t.Fatalf("got state %v, want StateError", m.State)
	}
	if m.LastError == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestApplyEventUndoMainToastRecordsKind(t *testing.T) {
	m := Model{}
	m = m.applyEvent(events.Event{
		Kind:    events.UndoMainToast,
		Payload: events.UndoMainToastPayload{Kind: events.UndoToastDone},
	})
	if m.UndoToast != string(events.UndoToastDone) {
		t.Fatalf("got %q", m.UndoToast)
	}
}

func TestLogfTrimsToMaxDebugLines(t *testing.T) {
	m := Model{}
	for i := 0; i < maxDebugLines+10; i++ {
		m.logf("test", "line")
	}
	if len(m.DebugEntries) != maxDebugLines {
		t.Fatalf("got %d entries, want %d", len(m.DebugEntries), maxDebugLines)
	}
}

func TestNewSubscribesAndCloseUnsubscribes(t *testing.T) {
	bus := events.NewBus()
	m := New(bus, 4)
	bus.Publish(events.SessionStarted, "sess-1")

	select {
	case ev, ok := <-m.ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		if ev.Kind != events.SessionStarted {
			t.Fatalf("got kind %v", ev.Kind)
		}
	default:
		t.Fatal("expected a buffered event")
	}

	m.Close()
	if _, ok := <-m.ch; ok {
		t.Fatal("expected channel closed after Close")
	}
}
