package undo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

const (
	modifierReleaseDelay = 350 * time.Millisecond
	discoverHintDelay    = 2500 * time.Millisecond
)

// Injector presses the platform-specific undo keystroke (Cmd+Z / Ctrl+Z).
type Injector interface {
	PressUndo() error
}

// ErrStatsPending signals the stats contribution for a token has not
// landed yet; the rollback is deferred and retried with backoff until the
// slot's own TTL would have elapsed.
var ErrStatsPending = errors.New("undo: stats contribution not arrived yet")

// StatsRollback reverses a prior stats contribution (word count, effective
// duration, filler count, date key) keyed by token.
type StatsRollback interface {
	Rollback(token string) error
}

// Noop reasons a Trigger call can return without having attempted a press.
var (
	ErrNoopEmpty   = errors.New("undo_noop_empty")
	ErrNoopExpired = errors.New("undo_noop_expired")
)

// Manager implements spec §4.J end to end, except step 1 ("if a recording
// or transcription is active, cancel instead"): that decision belongs to
// the caller, which already knows session state.
type Manager struct {
	injector Injector
	rollback StatsRollback
	bus      *events.Bus

	undoBound func() bool
	shortcut  func() string

	now   func() time.Time
	sleep func(time.Duration)

	mu          sync.Mutex
	slot        *Slot
	pasteCount  int
	hasSeenHint bool
	hasUsedUndo bool
	hintTimer   *time.Timer
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithUndoBoundChecker overrides how Manager decides whether the undo
// shortcut is currently registered, for the discoverability hint gate.
// Defaults to always-bound.
func WithUndoBoundChecker(fn func() bool) Option {
	return func(m *Manager) { m.undoBound = fn }
}

// WithShortcutText supplies the current undo shortcut string for the
// discoverability hint payload.
func WithShortcutText(fn func() string) Option {
	return func(m *Manager) { m.shortcut = fn }
}

// New builds a Manager over injector (the platform undo keystroke) and
// rollback (stats reversal), publishing toast events on bus.
func New(injector Injector, rollback StatsRollback, bus *events.Bus, opts ...Option) *Manager {
	m := &Manager{
		injector:  injector,
		rollback:  rollback,
		bus:       bus,
		undoBound: func() bool { return true },
		shortcut:  func() string { return "" },
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterSlot records a successful paste as the sole undoable action,
// replacing any slot that preceded it, and arms the discoverability hint
// after the 2nd successful paste if the conditions in spec §4.J hold.
func (m *Manager) RegisterSlot(sourceAction, pastedText, suggestionText, statsToken string) {
	m.mu.Lock()
	m.slot = &Slot{
		SourceAction:   sourceAction,
		PastedText:     pastedText,
		SuggestionText: suggestionText,
		StatsToken:     statsToken,
		createdAt:      m.now(),
	}
	m.pasteCount++
	shouldHint := m.pasteCount == 2 && m.undoBound() && !m.hasSeenHint && !m.hasUsedUndo
	if shouldHint {
		m.hasSeenHint = true
	}
	m.mu.Unlock()

	if shouldHint {
		m.hintTimer = time.AfterFunc(discoverHintDelay, func() {
			m.bus.Publish(events.UndoMainToast, events.UndoMainToastPayload{
				Kind:     events.UndoToastDiscoverHint,
				Shortcut: m.shortcut(),
			})
		})
	}
}

// Trigger runs the undo shortcut's steps 2-3: reject if the slot is
// missing, consumed, or expired (publishing the matching noop toast);
// else wait out the modifier-release delay, press undo, mark the slot
// consumed, request a stats rollback, and record that undo has been used.
func (m *Manager) Trigger(ctx context.Context) error {
	m.mu.Lock()
	slot := m.slot
	var noop error
	switch {
	case slot == nil || slot.consumed:
		noop = ErrNoopEmpty
	case slot.expired(m.now()):
		noop = ErrNoopExpired
	}
	m.mu.Unlock()

	if noop != nil {
		kind := events.UndoToastNoopEmpty
		if errors.Is(noop, ErrNoopExpired) {
			kind = events.UndoToastNoopExpired
		}
		m.bus.Publish(events.UndoMainToast, events.UndoMainToastPayload{Kind: kind})
		return noop
	}

	m.sleep(modifierReleaseDelay)

	if err := m.injector.PressUndo(); err != nil {
		return err
	}

	m.mu.Lock()
	slot.consumed = true
	m.hasUsedUndo = true
	if m.hintTimer != nil {
		m.hintTimer.Stop()
	}
	m.mu.Unlock()

	if slot.StatsToken != "" && m.rollback != nil {
		m.runRollback(slot)
	}

	m.bus.Publish(events.UndoMainToast, events.UndoMainToastPayload{Kind: events.UndoToastDone})
	return nil
}

// runRollback attempts the stats rollback, backing off and retrying while
// the contribution has not arrived yet, bounded by the slot's own TTL
// (spec §4.J step 3 / §8 scenario 6: a slow history write landing any time
// before the slot would have expired on its own must still roll back,
// not just whatever lands within a single fixed retry window).
func (m *Manager) runRollback(slot *Slot) {
	token := slot.StatsToken
	deadline := slot.createdAt.Add(slotTTL)
	backoff := 2 * time.Second

	var attempt func()
	attempt = func() {
		if !errors.Is(m.rollback.Rollback(token), ErrStatsPending) {
			return
		}
		if !m.now().Add(backoff).Before(deadline) {
			return
		}
		time.AfterFunc(backoff, attempt)
		if backoff < 16*time.Second {
			backoff *= 2
		}
	}
	attempt()
}

// HasPendingUndo reports whether a live, unconsumed slot exists.
func (m *Manager) HasPendingUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot != nil && !m.slot.consumed && !m.slot.expired(m.now())
}
