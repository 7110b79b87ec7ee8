// Package events implements the renderer-facing event bus described in
// spec §6. The core never talks to a concrete UI; it publishes named,
// typed events and any number of subscribers (the debug TUI, the tray menu,
// a future real frontend) drain them independently.
package events

import "sync"

// Kind identifies one of the named events emitted to the renderer.
type Kind string

const (
	SessionStarted            Kind = "session-started"
	ShowOverlay                Kind = "show-overlay"
	HideOverlay                Kind = "hide-overlay"
	MicLevel                   Kind = "mic-level"
	RecordingTime               Kind = "recording-time"
	HistoryUpdated             Kind = "history-updated"
	SettingsChanged             Kind = "settings-changed"
	MicrophonePermissionDenied Kind = "microphone-permission-denied"
	CheckForUpdates            Kind = "check-for-updates"
	UndoMainToast              Kind = "undo-main-toast"
	MLXModelStateChanged       Kind = "mlx-model-state-changed"
)

// Event is one published occurrence. Payload is one of the *Payload types
// below, chosen by Kind; consumers type-assert it.
type Event struct {
	Kind    Kind
	Payload any
}

// RecordingTimePayload is the payload for RecordingTime events.
type RecordingTimePayload struct {
	ElapsedSeconds uint32
	MaxSeconds     uint32
}

// SettingsChangedPayload is the payload for SettingsChanged events.
type SettingsChangedPayload struct {
	Setting string
	Value   any
}

// UndoToastKind enumerates the kinds of undo-main-toast events.
type UndoToastKind string

const (
	UndoToastDone         UndoToastKind = "undo_done"
	UndoToastNoopEmpty    UndoToastKind = "undo_noop_empty"
	UndoToastNoopExpired  UndoToastKind = "undo_noop_expired"
	UndoToastDiscoverHint UndoToastKind = "undo_discover_hint"
)

// UndoMainToastPayload is the payload for UndoMainToast events.
type UndoMainToastPayload struct {
	Kind     UndoToastKind
	Code     string
	Shortcut string
}

// MLXModelStateChangedPayload is the payload for MLXModelStateChanged events.
type MLXModelStateChangedPayload struct {
	EventType        string
	ModelID          string
	Progress         *float64
	TotalBytes       *int64
	CurrentFile      string
	SpeedBytesPerSec *float64
	Error            string
}

// Bus fans out published events to any number of subscribers. A subscriber
// that does not keep up with its channel simply misses events rather than
// blocking the publisher — the event bus must never be able to stall the
// recording/transcription critical path.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns the channel to read from plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish emits an event to every current subscriber. Full subscriber
// buffers drop the event for that subscriber rather than block.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev := Event{Kind: kind, Payload: payload}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
