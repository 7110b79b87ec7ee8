// Package ui is the debug/status renderer the core ships as the stand-in
// for the out-of-scope "frontend renderer" (spec §6, SPEC_FULL.md §6): a
// Bubble Tea program that subscribes to internal/events.Bus and renders
// the overlay state, mic level, and a scrolling debug log. No bus event
// sets LastTranscript, so the last-transcription panel shows "(none yet)".
// It never drives the core — it only observes it.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

// State mirrors the overlay lifecycle this renderer displays.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateCancelling
	StateError
)

// DebugEntry is one line of the scrolling debug log.
type DebugEntry struct {
	Time     string
	Category string
	Message  string
}

const maxDebugLines = 50

// eventMsg wraps a bus event for the Bubble Tea update loop.
type eventMsg events.Event

// busClosedMsg signals the subscription channel was closed (unsubscribe).
type busClosedMsg struct{}

// Model is the Bubble Tea model for the debug/status view.
type Model struct {
	ch    <-chan events.Event
	unsub func()

	State          State
	LastTranscript string
	LastError      string
	MicBuckets     []float32
	Elapsed        uint32
	MaxSeconds     uint32
	UndoToast      string
	DebugEntries   []DebugEntry
}

// New builds a Model subscribed to bus with the given event buffer size.
func New(bus *events.Bus, buffer int) Model {
	ch, unsub := bus.Subscribe(buffer)
	return Model{ch: ch, unsub: unsub, State: StateIdle}
}

// Close unsubscribes from the event bus. Call when the program exits.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Init starts the event-pump command.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// listen reads the next bus event as a tea.Cmd; Update re-arms it so the
// model keeps draining the channel for the life of the program.
func (m Model) listen() tea.Cmd {
	ch := m.ch
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return busClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles bus events and key input.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case busClosedMsg:
		return m, nil

	case eventMsg:
		m = m.applyEvent(events.Event(msg))
		return m, m.listen()
	}
	return m, nil
}

func (m Model) applyEvent(ev events.Event) Model {
	switch ev.Kind {
	case events.SessionStarted:
		m.State = StateRecording
		m.LastError = ""
		m.logf("transcribe", "session started")

	case events.ShowOverlay:
		if state, ok := ev.Payload.(string); ok {
			m = m.applyOverlayState(state)
		}

	case events.HideOverlay:
		m.State = StateIdle
		m.MicBuckets = nil
		m.Elapsed = 0

	case events.MicLevel:
		if buckets, ok := ev.Payload.([]float32); ok {
			m.MicBuckets = buckets
		}

	case events.RecordingTime:
		if payload, ok := ev.Payload.(events.RecordingTimePayload); ok {
			m.Elapsed = payload.ElapsedSeconds
			m.MaxSeconds = payload.MaxSeconds
		}

	case events.HistoryUpdated:
		m.logf("history", "history updated")

	case events.SettingsChanged:
		if payload, ok := ev.Payload.(events.SettingsChangedPayload); ok {
			m.logf("settings", fmt.Sprintf("%s changed", payload.Setting))
		}

	case events.MicrophonePermissionDenied:
		m.State = StateError
		m.LastError = "microphone permission denied"
		m.logf("device", "microphone permission denied")

	case events.CheckForUpdates:
		m.logf("update", "checking for updates")

	case events.UndoMainToast:
		if payload, ok := ev.Payload.(events.UndoMainToastPayload); ok {
			m.UndoToast = string(payload.Kind)
			m.logf("undo", string(payload.Kind))
		}

	case events.MLXModelStateChanged:
		if payload, ok := ev.Payload.(events.MLXModelStateChangedPayload); ok {
			if payload.Error != "" {
				m.logf("mlx", "error: "+payload.Error)
			} else {
				m.logf("mlx", payload.EventType+" "+payload.ModelID)
			}
		}
	}
	return m
}

func (m Model) applyOverlayState(state string) Model {
	switch strings.ToLower(state) {
	case "recording":
		m.State = StateRecording
	case "cancelling":
		m.State = StateCancelling
	case "hidden":
		m.State = StateIdle
	}
	return m
}

func (m *Model) logf(category, message string) {
	m.DebugEntries = append(m.DebugEntries, DebugEntry{
		Time:     time.Now().Format("15:04:05"),
		Category: category,
		Message:  message,
	})
	if len(m.DebugEntries) > maxDebugLines {
		m.DebugEntries = m.DebugEntries[len(m.DebugEntries)-maxDebugLines:]
	}
}
