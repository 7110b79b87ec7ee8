package dispatch

import (
	"fmt"
	"sync"
)

// Well-known binding IDs (spec §3).
const (
	BindingTranscribe         = "transcribe"          // always push-to-talk
	BindingTranscribeHandsFree = "transcribe_handsfree" // always toggle
	BindingCancel             = "cancel"
)

// ActionHandler is implemented by whatever owns the actual start/stop
// semantics for a binding — in cmd/codictate, a handler that routes to the
// Transcription Orchestrator, the undo manager and the correction
// pipeline. The
// Dispatcher never starts or stops recording itself; it only decides,
// given PTT/toggle rules and a process-wide lock, when start/stop should
// fire (the Design Notes' mediator guidance applied to four independent
// input sources).
type ActionHandler interface {
	Start(source, bindingID, shortcut string)
	Stop(source, bindingID, shortcut string)
}

// OSShortcutRegistrar registers/unregisters a single global shortcut with
// the operating system, invoking onDown/onUp as it fires.
type OSShortcutRegistrar interface {
	Register(bindingID, shortcut string, onDown, onUp func()) error
	Unregister(bindingID string) error
}

// Dispatcher unifies the four input sources from spec §4.D (OS global
// shortcuts, Fn alone, Fn+Space, SIGUSR2/tray/CLI) behind one
// start/stop Action call per binding, and owns the PTT-vs-toggle
// mutual-exclusion rule.
type Dispatcher struct {
	handler  ActionHandler
	registry *Registry
	os       OSShortcutRegistrar

	mu            sync.Mutex
	activeToggles map[string]bool // binding id -> toggle-on state
	pttHeld       map[string]bool // binding id -> currently held (PTT sources)
	cancelRegistered bool
	linuxCancelDisabled bool
}

// NewDispatcher builds a Dispatcher over handler and registry. os may be
// nil if OS-level global shortcut registration is not wired (tests, or a
// platform where it has been disabled).
func NewDispatcher(handler ActionHandler, registry *Registry, os OSShortcutRegistrar) *Dispatcher {
	return &Dispatcher{
		handler:       handler,
		registry:      registry,
		os:            os,
		activeToggles: make(map[string]bool),
		pttHeld:       make(map[string]bool),
	}
}

// DisableLinuxCancelShortcut marks the cancel binding as never dynamically
// registered, per spec §4.D's Linux carve-out ("dynamic re-registration is
// unreliable... cancel-by-shortcut is simply disabled").
func (d *Dispatcher) DisableLinuxCancelShortcut() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.linuxCancelDisabled = true
}

// press is called by every dispatch source on a logical "press" of
// bindingID — a PTT key-down, a toggle invocation, a SIGUSR2, a tray
// click, or a CLI command. source identifies which.
func (d *Dispatcher) press(source, bindingID string) {
	b, ok := d.registry.Get(bindingID)
	if !ok {
		return
	}

	d.mu.Lock()
	switch bindingID {
	case BindingTranscribeHandsFree:
		// Toggle: flip active state; release is ignored entirely.
		newState := !d.activeToggles[bindingID]
		d.activeToggles[bindingID] = newState
		// Starting hands-free resets any PTT toggle state (mutual exclusion).
		d.activeToggles[BindingTranscribe] = false
		d.mu.Unlock()
		if newState {
			d.handler.Start(source, bindingID, b.Current)
		} else {
			d.handler.Stop(source, bindingID, b.Current)
		}
		return
	case BindingCancel:
		// Momentary action, not a held key: fires once per press with no
		// hold-state to track.
		d.mu.Unlock()
		d.handler.Start(source, bindingID, b.Current)
		return
	default:
		// Push-to-talk: press = start, guarded against double-press.
		if d.pttHeld[bindingID] {
			d.mu.Unlock()
			return
		}
		d.pttHeld[bindingID] = true
		// Starting PTT resets the hands-free toggle (mutual exclusion).
		d.activeToggles[BindingTranscribeHandsFree] = false
		d.mu.Unlock()
		d.handler.Start(source, bindingID, b.Current)
	}
}

// release is called on a logical "release" — ignored for toggle bindings,
// stops for PTT bindings.
func (d *Dispatcher) release(source, bindingID string) {
	b, ok := d.registry.Get(bindingID)
	if !ok {
		return
	}
	if bindingID == BindingTranscribeHandsFree {
		return // toggle bindings ignore release entirely
	}
	d.mu.Lock()
	if !d.pttHeld[bindingID] {
		d.mu.Unlock()
		return
	}
	d.pttHeld[bindingID] = false
	d.mu.Unlock()
	d.handler.Stop(source, bindingID, b.Current)
}

// StartSession marks a session active, registering the cancel shortcut
// (unless disabled on Linux) for the duration of the session.
func (d *Dispatcher) StartSession() {
	d.mu.Lock()
	disabled := d.linuxCancelDisabled
	already := d.cancelRegistered
	d.mu.Unlock()
	if disabled || already || d.os == nil {
		return
	}
	b, ok := d.registry.Get(BindingCancel)
	if !ok || b.Current == "" {
		return
	}
	if err := d.os.Register(BindingCancel, b.Current, func() { d.press("cancel_shortcut", BindingCancel) }, func() {}); err == nil {
		d.mu.Lock()
		d.cancelRegistered = true
		d.mu.Unlock()
	}
}

// EndSession unregisters the cancel shortcut if it was registered.
func (d *Dispatcher) EndSession() {
	d.mu.Lock()
	registered := d.cancelRegistered
	d.cancelRegistered = false
	d.mu.Unlock()
	if registered && d.os != nil {
		_ = d.os.Unregister(BindingCancel)
	}
}

// RegisterGlobalShortcuts installs every non-Fn, non-cancel binding with
// the OS registrar.
func (d *Dispatcher) RegisterGlobalShortcuts() error {
	if d.os == nil {
		return nil
	}
	for id, b := range d.registry.All() {
		if id == BindingCancel || IsFn(b.Current) {
			continue
		}
		bindingID := id
		if err := d.os.Register(bindingID, b.Current, func() { d.press("global_shortcut", bindingID) }, func() { d.release("global_shortcut", bindingID) }); err != nil {
			return fmt.Errorf("register binding %q: %w", bindingID, err)
		}
	}
	return nil
}

// ChangeShortcut suspends the existing OS registration for bindingID,
// validates and applies the new shortcut, and resumes registration
// (spec §4.D: "Editing a binding suspends the existing registration and
// resumes on confirm").
func (d *Dispatcher) ChangeShortcut(bindingID, shortcut string) error {
	if d.os != nil && bindingID != BindingCancel {
		_ = d.os.Unregister(bindingID)
	}
	if err := d.registry.ChangeBinding(bindingID, shortcut); err != nil {
		return err
	}
	if d.os == nil || bindingID == BindingCancel || IsFn(shortcut) {
		return nil
	}
	return d.os.Register(bindingID, shortcut, func() { d.press("global_shortcut", bindingID) }, func() { d.release("global_shortcut", bindingID) })
}

// SIGUSR2 dispatches a single SIGUSR2-sourced press (no release) to
// bindingID —
// used by the CLI/tray path too (spec §4.D: "SIGUSR2 and tray menu and
// CLI" share one Action abstraction).
func (d *Dispatcher) SIGUSR2(bindingID string) {
	d.press("signal", bindingID)
}

// TrayOrCLI dispatches a single tray-menu-click or CLI-invoked press (no
// release).
func (d *Dispatcher) TrayOrCLI(bindingID string) {
	d.press("tray_cli", bindingID)
}

// cancelPTT discards an already-started push-to-talk recording (spec §4.D
// step 4, Fn+Space arriving after PTT started): it clears the same
// pttHeld state a normal release would, so a later StartPTT is not seen
// as a double-press, and fires BindingCancel's momentary action through
// the handler — the same path BindingCancel takes from any other source
// — instead of StopPTT's stop-and-transcribe path.
func (d *Dispatcher) cancelPTT(source string) {
	d.mu.Lock()
	d.pttHeld[BindingTranscribe] = false
	d.mu.Unlock()

	b, ok := d.registry.Get(BindingCancel)
	if !ok {
		return
	}
	d.handler.Start(source, BindingCancel, b.Current)
}

// fnActions adapts the Dispatcher to the FnActions interface consumed by
// FnMonitor, so the Fn source goes through the same press/release path as
// every other source.
type fnActions struct {
	d *Dispatcher
}

func (f fnActions) StartPTT()        { f.d.press("fn", BindingTranscribe) }
func (f fnActions) StopPTT()         { f.d.release("fn", BindingTranscribe) }
func (f fnActions) CancelPTT()       { f.d.cancelPTT("fn_space") }
func (f fnActions) ToggleHandsFree() { f.d.press("fn_space", BindingTranscribeHandsFree) }

// NewFnActions returns the FnActions adapter wired to d, for constructing
// a FnMonitor with NewFnMonitor(d.NewFnActions()).
func (d *Dispatcher) NewFnActions() FnActions {
	return fnActions{d: d}
}
