package dispatch

import (
	"fmt"
	"strings"
	"sync"

	"golang.design/x/hotkey"
	"golang.design/x/mainthread"
)

// hotkeyModifiers maps this package's modifier vocabulary (spec §6) to
// golang.design/x/hotkey's platform-specific Modifier constants.
var hotkeyModifiers = map[string]hotkey.Modifier{
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.ModOption,
	"meta":    hotkey.ModCmd,
}

// hotkeyKeys maps single-character/name keys to golang.design/x/hotkey's
// Key constants, mirroring the teacher's keyMap in internal/hotkey.
var hotkeyKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "escape": hotkey.KeyEscape,
	"tab": hotkey.KeyTab, "left": hotkey.KeyLeft, "right": hotkey.KeyRight,
	"up": hotkey.KeyUp, "down": hotkey.KeyDown,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
}

// toHotkey translates one of our shortcut strings into the mods/key pair
// golang.design/x/hotkey expects.
func toHotkey(shortcut string) ([]hotkey.Modifier, hotkey.Key, error) {
	p, err := Parse(shortcut)
	if err != nil {
		return nil, 0, err
	}
	var mods []hotkey.Modifier
	for m := range p.Modifiers {
		hm, ok := hotkeyModifiers[m]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %q has no OS-hotkey equivalent", m)
		}
		mods = append(mods, hm)
	}
	key, ok := hotkeyKeys[strings.ToLower(p.Key)]
	if !ok {
		return nil, 0, fmt.Errorf("key %q has no OS-hotkey equivalent", p.Key)
	}
	return mods, key, nil
}

// GlobalRegistrar is the real OSShortcutRegistrar, backed by
// golang.design/x/hotkey. All registration/unregistration calls are
// marshaled onto the OS main thread via golang.design/x/mainthread,
// since hotkey requires it on several platforms.
type GlobalRegistrar struct {
	mu    sync.Mutex
	active map[string]*hotkey.Hotkey
}

// NewGlobalRegistrar constructs an empty GlobalRegistrar.
func NewGlobalRegistrar() *GlobalRegistrar {
	return &GlobalRegistrar{active: make(map[string]*hotkey.Hotkey)}
}

// Register installs shortcut for bindingID, spawning a goroutine that
// bridges hotkey's Keydown()/Keyup() channels to onDown/onUp until
// Unregister is called.
func (g *GlobalRegistrar) Register(bindingID, shortcut string, onDown, onUp func()) error {
	mods, key, err := toHotkey(shortcut)
	if err != nil {
		return err
	}

	g.mu.Lock()
	if _, exists := g.active[bindingID]; exists {
		g.mu.Unlock()
		return fmt.Errorf("binding %q already registered", bindingID)
	}
	g.mu.Unlock()

	hk := hotkey.New(mods, key)
	var regErr error
	mainthread.Call(func() { regErr = hk.Register() })
	if regErr != nil {
		return fmt.Errorf("register %q: %w", bindingID, regErr)
	}

	g.mu.Lock()
	g.active[bindingID] = hk
	g.mu.Unlock()

	go func() {
		down, up := hk.Keydown(), hk.Keyup()
		for {
			select {
			case _, ok := <-down:
				if !ok {
					return
				}
				if onDown != nil {
					onDown()
				}
			case _, ok := <-up:
				if !ok {
					return
				}
				if onUp != nil {
					onUp()
				}
			}
		}
	}()
	return nil
}

// Unregister tears down bindingID's OS-level registration.
func (g *GlobalRegistrar) Unregister(bindingID string) error {
	g.mu.Lock()
	hk, ok := g.active[bindingID]
	delete(g.active, bindingID)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	var err error
	mainthread.Call(func() { err = hk.Unregister() })
	return err
}

// Init runs fn on a goroutine while reserving the calling goroutine as the
// OS main thread, required by golang.design/x/hotkey/mainthread on
// platforms with a native event loop. Call this from func main.
func Init(fn func()) {
	mainthread.Init(fn)
}
