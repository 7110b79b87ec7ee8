// Package coreerr defines the error taxonomy recognized by the codictate
// core (spec §7). Each kind wraps an underlying cause and is distinguished
// with errors.As so callers can decide whether to notify the user, log
// silently, or both — without string-matching error messages.
package coreerr

import "fmt"

// Kind identifies one of the abstract failure categories the core reacts to.
type Kind int

const (
	// KindPermissionDenied covers accessibility or microphone permission
	// refusals.
	KindPermissionDenied Kind = iota
	// KindDeviceUnavailable covers a chosen mic failing to open or
	// yielding zero samples within the open timeout.
	KindDeviceUnavailable
	// KindTranscriptionEmpty covers a recognizer returning an empty string.
	KindTranscriptionEmpty
	// KindTranscriptionFailed covers the recognizer erroring outright.
	KindTranscriptionFailed
	// KindPostProcessFailed covers a post-process provider error.
	KindPostProcessFailed
	// KindPasteFailed covers keystroke injection failure.
	KindPasteFailed
	// KindCorrectionNoText covers a correction attempt with nothing to
	// correct (no selection, no smart-selection, no clipboard fallback).
	KindCorrectionNoText
	// KindCorrectionReplaceFailed covers a correction whose replacement
	// could not be applied back into the focused element.
	KindCorrectionReplaceFailed
	// KindShortcutConflict covers a duplicate or reserved binding.
	KindShortcutConflict
	// KindFatal covers initialization failures that prevent startup.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindTranscriptionEmpty:
		return "transcription_empty"
	case KindTranscriptionFailed:
		return "transcription_failed"
	case KindPostProcessFailed:
		return "post_process_failed"
	case KindPasteFailed:
		return "paste_failed"
	case KindCorrectionNoText:
		return "correction_no_text"
	case KindCorrectionReplaceFailed:
		return "correction_replace_failed"
	case KindShortcutConflict:
		return "shortcut_conflict"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a coreerr-classified error. It wraps an underlying cause (which
// may be nil for kinds that are self-explanatory, e.g. TranscriptionEmpty)
// and carries a human-readable message suitable for a native notification.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a coreerr.Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a coreerr.Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// UserVisible reports whether errors of this kind should surface to the
// user as a native notification (spec §7 propagation policy). Kinds not
// listed here are logged and counted internally only.
func (k Kind) UserVisible() bool {
	switch k {
	case KindPermissionDenied, KindDeviceUnavailable, KindTranscriptionFailed,
		KindPostProcessFailed, KindCorrectionNoText, KindCorrectionReplaceFailed,
		KindShortcutConflict:
		return true
	default:
		return false
	}
}
