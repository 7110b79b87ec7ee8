//go:build darwin

package dispatch

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation

#include <CoreGraphics/CoreGraphics.h>
#include <stdint.h>

extern void fnTapEventCallback(int eventType, int64_t keycode, uint64_t flags);

static CFMachPortRef fnTapPort = NULL;
static CFRunLoopSourceRef fnTapSource = NULL;

static CGEventRef fnTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
	if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
		if (fnTapPort != NULL) {
			CGEventTapEnable(fnTapPort, true);
		}
		return event;
	}
	int64_t keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
	uint64_t flags = (uint64_t)CGEventGetFlags(event);
	fnTapEventCallback((int)type, keycode, flags);
	return event;
}

// startFnEventTap installs a session-level event tap observing
// FlagsChanged and KeyDown events, returning 0 on success.
static int startFnEventTap(void) {
	CGEventMask mask = CGEventMaskBit(kCGEventFlagsChanged) | CGEventMaskBit(kCGEventKeyDown);
	fnTapPort = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, kCGEventTapOptionListenOnly, mask, fnTapCallback, NULL);
	if (fnTapPort == NULL) {
		return 1;
	}
	fnTapSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, fnTapPort, 0);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), fnTapSource, kCFRunLoopCommonModes);
	CGEventTapEnable(fnTapPort, true);
	CFRunLoopRun();
	return 0;
}

static void stopFnEventTap(void) {
	if (fnTapPort != NULL) {
		CGEventTapEnable(fnTapPort, false);
	}
	CFRunLoopStop(CFRunLoopGetCurrent());
}
*/
import "C"

import (
	"fmt"
	"runtime"
)

// CGEvent type and flag constants relevant to the Fn monitor.
const (
	cgEventKeyDown        = 10 // kCGEventKeyDown
	cgEventFlagsChanged   = 12 // kCGEventFlagsChanged
	cgEventFlagMaskFn     = 0x800000 // kCGEventFlagMaskSecondaryFn
	cgKeycodeSpace        = 0x31
)

// darwinFnTap is the CGEventTap-backed fnTap, adapted from the teacher's
// CGEventTap registration/run-loop pattern: one process-wide callback
// dispatches to whichever *darwinFnTap instance is currently registered.
type darwinFnTap struct {
	onEvent func(fnSignal)
}

func newPlatformFnTap() fnTap {
	return &darwinFnTap{}
}

var activeDarwinFnTap *darwinFnTap

func (t *darwinFnTap) Run(onEvent func(fnSignal)) error {
	t.onEvent = onEvent
	activeDarwinFnTap = t

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ret := C.startFnEventTap()
	activeDarwinFnTap = nil
	if ret != 0 {
		return fmt.Errorf("failed to create Fn-key event tap (grant Input Monitoring permission in System Settings > Privacy & Security > Input Monitoring)")
	}
	return nil
}

func (t *darwinFnTap) Close() {
	C.stopFnEventTap()
}

//export fnTapEventCallback
func fnTapEventCallback(eventType C.int, keycode C.int64_t, flags C.uint64_t) {
	t := activeDarwinFnTap
	if t == nil || t.onEvent == nil {
		return
	}

	if int64(keycode) == globeKeycode {
		t.onEvent(globeKeyEvent)
		return
	}

	switch int(eventType) {
	case cgEventFlagsChanged:
		if uint64(flags)&cgEventFlagMaskFn != 0 {
			t.onEvent(fnDown)
		} else {
			t.onEvent(fnUp)
		}
	case cgEventKeyDown:
		if int64(keycode) == cgKeycodeSpace && uint64(flags)&cgEventFlagMaskFn != 0 {
			t.onEvent(spaceDownWhileFn)
		}
	}
}
