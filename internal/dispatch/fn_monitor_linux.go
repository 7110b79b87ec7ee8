//go:build linux

package dispatch

import (
	"fmt"
	"strings"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// Linux keyboards rarely expose a dedicated Fn scancode — it is usually
// intercepted by embedded controller firmware before it reaches evdev —
// so this tap is reduced capability relative to the darwin CGEventTap:
// it degrades to watching KEY_SPACE (for the Fn+Space hands-free signal)
// and, on keyboards that do report it, evdev code 464 (KEY_FN). Globe-key
// filtering is a no-op here since no such duplicate-event quirk exists on
// evdev.
const (
	evdevKeyFn    = evdev.EvCode(464)
	evdevKeySpace = evdev.EvCode(57)
)

type linuxFnTap struct {
	mu     sync.Mutex
	dev    *evdev.InputDevice
	closed bool
}

func newPlatformFnTap() fnTap {
	return &linuxFnTap{}
}

func (t *linuxFnTap) Run(onEvent func(fnSignal)) error {
	dev, err := FindKeyboard("")
	if err != nil {
		return fmt.Errorf("fn monitor: %w", err)
	}
	t.mu.Lock()
	t.dev = dev
	t.mu.Unlock()

	fnHeld := false
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed || strings.Contains(err.Error(), "closed") {
				return nil
			}
			return err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		switch ev.Code {
		case evdevKeyFn:
			if ev.Value == 1 {
				fnHeld = true
				onEvent(fnDown)
			} else if ev.Value == 0 {
				fnHeld = false
				onEvent(fnUp)
			}
		case evdevKeySpace:
			if ev.Value == 1 && fnHeld {
				onEvent(spaceDownWhileFn)
			}
		}
	}
}

func (t *linuxFnTap) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed && t.dev != nil {
		t.closed = true
		_ = t.dev.Close()
	}
}
