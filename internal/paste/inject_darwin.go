//go:build darwin

package paste

/*
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>

// postKeyWithModifiers posts a key-down then key-up CGEvent for keycode
// with the given modifier flags set, at the HID event tap location. Raw
// virtual keycodes are layout-independent (spec §4.G).
static void postKeyWithModifiers(CGKeyCode keycode, CGEventFlags flags) {
	CGEventSourceRef src = CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
	CGEventRef down = CGEventCreateKeyboardEvent(src, keycode, true);
	CGEventSetFlags(down, flags);
	CGEventRef up = CGEventCreateKeyboardEvent(src, keycode, false);
	CGEventSetFlags(up, flags);
	CGEventPost(kCGHIDEventTap, down);
	CGEventPost(kCGHIDEventTap, up);
	CFRelease(down);
	CFRelease(up);
	CFRelease(src);
}

static void postUnicodeString(const UniChar *chars, int length) {
	CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
	CGEventKeyboardSetUnicodeString(down, length, chars);
	CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
	CGEventKeyboardSetUnicodeString(up, length, chars);
	CGEventPost(kCGHIDEventTap, down);
	CGEventPost(kCGHIDEventTap, up);
	CFRelease(down);
	CFRelease(up);
}
*/
import "C"

import (
	"time"
	"unsafe"
)

// Virtual keycodes (layout-independent), from Carbon's HIToolbox/Events.h.
const (
	vkV      C.CGKeyCode = 0x09
	vkInsert C.CGKeyCode = 0x72 // kVK_Help doubles as Insert/Help on ANSI keyboards
	vkZ      C.CGKeyCode = 0x06
	vkC      C.CGKeyCode = 0x08
)

const (
	maskCmd   C.CGEventFlags = 0x100000
	maskShift C.CGEventFlags = 0x20000
	maskCtrl  C.CGEventFlags = 0x40000
)

const keyPressSettle = 100 * time.Millisecond

type darwinInjector struct{}

// NewInjector returns the darwin keystroke injector.
func NewInjector() Injector { return darwinInjector{} }

func (darwinInjector) PressCtrlV() error {
	C.postKeyWithModifiers(vkV, maskCmd)
	time.Sleep(keyPressSettle)
	return nil
}

func (darwinInjector) PressShiftInsert() error {
	C.postKeyWithModifiers(vkInsert, maskShift)
	time.Sleep(keyPressSettle)
	return nil
}

func (darwinInjector) PressCtrlShiftV() error {
	C.postKeyWithModifiers(vkV, maskCtrl|maskShift)
	time.Sleep(keyPressSettle)
	return nil
}

func (darwinInjector) PressUndo() error {
	C.postKeyWithModifiers(vkZ, maskCmd)
	time.Sleep(keyPressSettle)
	return nil
}

func (darwinInjector) PressCopy() error {
	C.postKeyWithModifiers(vkC, maskCmd)
	time.Sleep(keyPressSettle)
	return nil
}

func (darwinInjector) TypeDirect(text string) error {
	utf16 := utf16Encode(text)
	if len(utf16) == 0 {
		return nil
	}
	C.postUnicodeString((*C.UniChar)(unsafe.Pointer(&utf16[0])), C.int(len(utf16)))
	return nil
}

// utf16Encode converts text to UTF-16 code units for CGEventKeyboardSetUnicodeString.
func utf16Encode(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, uint16(r))
			continue
		}
		r -= 0x10000
		out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return out
}
