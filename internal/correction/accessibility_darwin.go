//go:build darwin

package correction

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation -framework CoreGraphics
#include <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>

static AXUIElementRef corr_focused_element(void) {
	AXUIElementRef systemWide = AXUIElementCreateSystemWide();
	if (!systemWide) return NULL;
	CFTypeRef focusedApp = NULL;
	AXError err = AXUIElementCopyAttributeValue(systemWide, kAXFocusedApplicationAttribute, &focusedApp);
	CFRelease(systemWide);
	if (err != kAXErrorSuccess || !focusedApp) return NULL;
	CFTypeRef focusedElement = NULL;
	err = AXUIElementCopyAttributeValue((AXUIElementRef)focusedApp, kAXFocusedUIElementAttribute, &focusedElement);
	CFRelease(focusedApp);
	if (err != kAXErrorSuccess || !focusedElement) return NULL;
	return (AXUIElementRef)focusedElement;
}

static char *corr_cfstring_to_cstr(CFStringRef s) {
	if (!s) return NULL;
	CFIndex len = CFStringGetLength(s);
	CFIndex maxSize = CFStringGetMaximumSizeForEncoding(len, kCFStringEncodingUTF8) + 1;
	char *buf = malloc(maxSize);
	if (!buf) return NULL;
	if (!CFStringGetCString(s, buf, maxSize, kCFStringEncodingUTF8)) {
		free(buf);
		return NULL;
	}
	return buf;
}

char *corr_get_selected_text(void) {
	AXUIElementRef el = corr_focused_element();
	if (!el) return NULL;
	CFTypeRef value = NULL;
	AXError err = AXUIElementCopyAttributeValue(el, kAXSelectedTextAttribute, &value);
	CFRelease(el);
	if (err != kAXErrorSuccess || !value) return NULL;
	char *result = corr_cfstring_to_cstr((CFStringRef)value);
	CFRelease(value);
	return result;
}

char *corr_get_full_text(void) {
	AXUIElementRef el = corr_focused_element();
	if (!el) return NULL;
	CFTypeRef value = NULL;
	AXError err = AXUIElementCopyAttributeValue(el, kAXValueAttribute, &value);
	CFRelease(el);
	if (err != kAXErrorSuccess || !value) return NULL;
	char *result = corr_cfstring_to_cstr((CFStringRef)value);
	CFRelease(value);
	return result;
}

int corr_get_selected_range(long *location, long *length) {
	AXUIElementRef el = corr_focused_element();
	if (!el) return 0;
	CFTypeRef value = NULL;
	AXError err = AXUIElementCopyAttributeValue(el, kAXSelectedTextRangeAttribute, &value);
	CFRelease(el);
	if (err != kAXErrorSuccess || !value) return 0;
	CFRange range;
	Boolean ok = AXValueGetValue((AXValueRef)value, kAXValueCFRangeType, &range);
	CFRelease(value);
	if (!ok) return 0;
	*location = (long)range.location;
	*length = (long)range.length;
	return 1;
}

int corr_set_selected_range(long location, long length) {
	AXUIElementRef el = corr_focused_element();
	if (!el) return 0;
	CFRange range;
	range.location = (CFIndex)location;
	range.length = (CFIndex)length;
	AXValueRef value = AXValueCreate(kAXValueCFRangeType, &range);
	if (!value) {
		CFRelease(el);
		return 0;
	}
	AXError err = AXUIElementSetAttributeValue(el, kAXSelectedTextRangeAttribute, value);
	CFRelease(value);
	CFRelease(el);
	return err == kAXErrorSuccess;
}

void corr_get_cursor_position(double *x, double *y) {
	*x = 0;
	*y = 0;
	AXUIElementRef el = corr_focused_element();
	int gotPoint = 0;
	CGPoint point = CGPointZero;
	if (el) {
		CFTypeRef rangeValue = NULL;
		if (AXUIElementCopyAttributeValue(el, kAXSelectedTextRangeAttribute, &rangeValue) == kAXErrorSuccess && rangeValue) {
			CFRange range;
			if (AXValueGetValue((AXValueRef)rangeValue, kAXValueCFRangeType, &range)) {
				range.length = 0;
				AXValueRef zeroRange = AXValueCreate(kAXValueCFRangeType, &range);
				if (zeroRange) {
					CFTypeRef boundsValue = NULL;
					AXError boundsErr = AXUIElementCopyParameterizedAttributeValue(
						el, kAXBoundsForRangeParameterizedAttribute, zeroRange, &boundsValue);
					CFRelease(zeroRange);
					if (boundsErr == kAXErrorSuccess && boundsValue) {
						CGRect rect;
						if (AXValueGetValue((AXValueRef)boundsValue, kAXValueCGRectType, &rect)) {
							point = rect.origin;
							gotPoint = 1;
						}
						CFRelease(boundsValue);
					}
				}
			}
			CFRelease(rangeValue);
		}
		CFRelease(el);
	}
	if (!gotPoint) {
		CGEventRef event = CGEventCreate(NULL);
		if (event) {
			point = CGEventGetLocation(event);
			CFRelease(event);
		}
	}
	*x = point.x;
	*y = point.y;
}

void corr_free(char *s) { free(s); }

void corr_press_cmd_c(void) {
	CGEventSourceRef src = CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
	CGEventRef down = CGEventCreateKeyboardEvent(src, (CGKeyCode)0x08, true);
	CGEventRef up = CGEventCreateKeyboardEvent(src, (CGKeyCode)0x08, false);
	CGEventSetFlags(down, kCGEventFlagMaskCommand);
	CGEventSetFlags(up, kCGEventFlagMaskCommand);
	CGEventPost(kCGHIDEventTap, down);
	CGEventPost(kCGHIDEventTap, up);
	CFRelease(down);
	CFRelease(up);
	if (src) CFRelease(src);
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/paste"
)

const (
	contextRadius  = 500
	maxContextRune = 1000
	copySettle     = 50 * time.Millisecond
)

// axReader captures context and replaces text via the macOS Accessibility
// (AXUIElement) API, falling back to a simulated Cmd+C/clipboard read when
// the focused element does not expose AX text attributes (spec §4.H).
type axReader struct {
	clipboard paste.Clipboard
	injector  paste.Injector
}

// NewContextReader builds the darwin accessibility-backed ContextReader
// and TextReplacer. clipboard/injector are reused from the Paste Engine's
// collaborators for the Cmd+C fallback and the replacement paste.
func NewContextReader(clipboard paste.Clipboard, injector paste.Injector) interface {
	ContextReader
	TextReplacer
} {
	return &axReader{clipboard: clipboard, injector: injector}
}

func (r *axReader) CaptureContext(ctx context.Context) (*CapturedContext, error) {
	cursorX, cursorY := getCursorPosition()

	selected := cStringOrEmpty(C.corr_get_selected_text())
	fullText := cStringOrEmpty(C.corr_get_full_text())

	var location, length C.long
	gotRange := C.corr_get_selected_range(&location, &length) != 0

	contextStr := ""
	switch {
	case fullText != "" && gotRange:
		contextStr = extractContext(fullText, int(location), contextRadius)
	case fullText != "":
		runes := []rune(fullText)
		if len(runes) > maxContextRune {
			runes = runes[:maxContextRune]
		}
		contextStr = string(runes)
	}

	hasSelection := strings.TrimSpace(selected) != ""
	if !hasSelection {
		if fullText != "" && gotRange {
			if word, _, ok := expandToWordBoundaries(fullText, int(location)); ok {
				selected = word
				hasSelection = true
			}
		}
		if !hasSelection {
			if text, ok := r.copyFallback(); ok {
				selected = text
				hasSelection = text != ""
				if contextStr == "" {
					contextStr = text
				}
			}
		}
	}

	return &CapturedContext{
		SelectedText:          selected,
		HasSelection:           hasSelection,
		Context:                contextStr,
		CursorScreenPositionX: cursorX,
		CursorScreenPositionY: cursorY,
	}, nil
}

// copyFallback simulates Cmd+C and reads the result from the clipboard,
// restoring whatever was there before (spec §4.H step 3).
func (r *axReader) copyFallback() (string, bool) {
	backup, _ := r.clipboard.ReadAll()
	C.corr_press_cmd_c()
	time.Sleep(copySettle)
	text, err := r.clipboard.ReadAll()
	_ = r.clipboard.WriteAll(backup)
	if err != nil {
		return "", false
	}
	return text, true
}

func (r *axReader) ReplaceText(ctx context.Context, original, replacement string) error {
	if fullText := cStringOrEmpty(C.corr_get_full_text()); fullText != "" {
		if idx := strings.Index(fullText, original); idx >= 0 {
			runeStart := len([]rune(fullText[:idx]))
			runeLen := len([]rune(original))
			C.corr_set_selected_range(C.long(runeStart), C.long(runeLen))
			time.Sleep(30 * time.Millisecond)
		}
	}

	backup, _ := r.clipboard.ReadAll()
	if err := r.clipboard.WriteAll(replacement); err != nil {
		return fmt.Errorf("write replacement to clipboard: %w", err)
	}
	time.Sleep(copySettle)

	if err := r.injector.PressCtrlV(); err != nil {
		return fmt.Errorf("paste replacement: %w", err)
	}

	time.Sleep(restoreDelay)
	_ = r.clipboard.WriteAll(backup)
	return nil
}

const restoreDelay = 300 * time.Millisecond

func getCursorPosition() (float64, float64) {
	var x, y C.double
	C.corr_get_cursor_position(&x, &y)
	return float64(x), float64(y)
}

func cStringOrEmpty(s *C.char) string {
	if s == nil {
		return ""
	}
	defer C.corr_free(s)
	return C.GoString(s)
}
