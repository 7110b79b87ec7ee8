// Package dispatch implements the Shortcut Dispatcher (component D, spec
// §4.D): binding validation/registration, PTT-vs-toggle arbitration, the
// Fn-key monitor, and the SIGUSR2/tray/CLI dispatch sources, all unified
// behind one Action abstraction.
package dispatch

import (
	"fmt"
	"runtime"
	"strings"
)

// Binding is the Shortcut Binding triple from spec §3.
type Binding struct {
	ID      string
	Current string
	Default string
}

// modifierAliases normalizes the recognized modifier spellings (spec §6).
var modifierAliases = map[string]string{
	"control": "control", "ctrl": "control",
	"shift": "shift",
	"alt":   "alt", "option": "alt",
	"meta": "meta", "command": "meta", "cmd": "meta",
	"super": "super", "win": "super",
}

// IsFn reports whether a shortcut string is the bare "fn" literal or
// begins with "fn+" — serviced by the Fn monitor, never registered with
// the OS (spec §3).
func IsFn(shortcut string) bool {
	lower := strings.ToLower(strings.TrimSpace(shortcut))
	return lower == "fn" || strings.HasPrefix(lower, "fn+")
}

// ParsedShortcut is a shortcut string split into its normalized
// modifier set and a single non-modifier key, case-insensitive and
// order-independent for comparison.
type ParsedShortcut struct {
	Modifiers map[string]bool
	Key       string
}

// Parse normalizes a "+"-joined, case-insensitive shortcut string into its
// modifier set and trailing key (spec §6).
func Parse(shortcut string) (ParsedShortcut, error) {
	parts := strings.Split(shortcut, "+")
	if len(parts) == 0 {
		return ParsedShortcut{}, fmt.Errorf("empty shortcut")
	}
	p := ParsedShortcut{Modifiers: make(map[string]bool)}
	for i, raw := range parts {
		part := strings.ToLower(strings.TrimSpace(raw))
		if part == "" {
			return ParsedShortcut{}, fmt.Errorf("empty shortcut segment in %q", shortcut)
		}
		if norm, ok := modifierAliases[part]; ok {
			p.Modifiers[norm] = true
			continue
		}
		if i != len(parts)-1 {
			return ParsedShortcut{}, fmt.Errorf("unknown modifier %q in %q", part, shortcut)
		}
		p.Key = part
	}
	if p.Key == "" {
		return ParsedShortcut{}, fmt.Errorf("shortcut %q has no non-modifier key", shortcut)
	}
	return p, nil
}

// Equal reports whether two shortcut strings denote the same combination,
// independent of modifier order or case.
func Equal(a, b string) bool {
	pa, errA := Parse(a)
	pb, errB := Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if pa.Key != pb.Key || len(pa.Modifiers) != len(pb.Modifiers) {
		return false
	}
	for m := range pa.Modifiers {
		if !pb.Modifiers[m] {
			return false
		}
	}
	return true
}

// reservedShortcuts lists OS-reserved global combinations per platform
// (spec §4.D). Checked case-insensitively via Equal.
var reservedShortcuts = map[string][]string{
	"darwin":  {"meta+space", "meta+tab", "meta+q", "meta+control+space", "control+meta+q"},
	"windows": {"super+l", "alt+tab", "control+alt+delete", "super+d"},
	"linux":   {"alt+tab", "super+l", "control+alt+delete", "super+d"},
}

// IsReserved reports whether shortcut collides with an OS-reserved global
// combination on the current platform.
func IsReserved(shortcut string) bool {
	return isReservedFor(runtime.GOOS, shortcut)
}

func isReservedFor(goos, shortcut string) bool {
	for _, r := range reservedShortcuts[goos] {
		if Equal(r, shortcut) {
			return true
		}
	}
	return false
}

// Registry holds the current set of bindings and enforces the duplicate
// and reserved-shortcut checks from spec §4.D and §7 (ShortcutConflict).
type Registry struct {
	bindings map[string]*Binding
}

// NewRegistry builds a Registry from an initial set of bindings, keyed by
// ID (not validated — callers are expected to load previously-valid
// settings; validation applies to subsequent ChangeBinding calls).
func NewRegistry(initial map[string]Binding) *Registry {
	r := &Registry{bindings: make(map[string]*Binding, len(initial))}
	for id, b := range initial {
		cp := b
		r.bindings[id] = &cp
	}
	return r
}

// Get returns the binding for id, or false if unknown.
func (r *Registry) Get(id string) (Binding, bool) {
	b, ok := r.bindings[id]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// All returns a snapshot of every binding.
func (r *Registry) All() map[string]Binding {
	out := make(map[string]Binding, len(r.bindings))
	for id, b := range r.bindings {
		out[id] = *b
	}
	return out
}

// ChangeBinding validates shortcut (not reserved, no duplicate against any
// other binding) and, if valid, updates bindingID's Current value. It does
// not perform OS (un)registration — the caller suspends the old
// registration and resumes the new one around this call (spec §4.D).
func (r *Registry) ChangeBinding(bindingID, shortcut string) error {
	b, ok := r.bindings[bindingID]
	if !ok {
		return fmt.Errorf("unknown binding %q", bindingID)
	}
	if !IsFn(shortcut) {
		if IsReserved(shortcut) {
			return fmt.Errorf("%q is reserved by the operating system", shortcut)
		}
		for otherID, other := range r.bindings {
			if otherID == bindingID {
				continue
			}
			if Equal(other.Current, shortcut) {
				return fmt.Errorf("%q is already bound to %q", shortcut, otherID)
			}
		}
	}
	b.Current = shortcut
	return nil
}

// ResetBinding restores bindingID's Current value to its Default.
func (r *Registry) ResetBinding(bindingID string) error {
	b, ok := r.bindings[bindingID]
	if !ok {
		return fmt.Errorf("unknown binding %q", bindingID)
	}
	b.Current = b.Default
	return nil
}
