// Package undo implements the Undo Slot and stats rollback (spec §4.J):
// a single most-recent-paste slot with a 120s TTL, the dedicated undo
// shortcut action, and paste-count-driven discoverability hints.
package undo

import "time"

const slotTTL = 120 * time.Second

// Slot is the RecentPasteSlot registered after every successful paste of
// transcription output. At most one slot is live at a time: registering a
// new one replaces whatever preceded it, consumed or not.
type Slot struct {
	SourceAction   string
	PastedText     string
	SuggestionText string
	StatsToken     string

	createdAt time.Time
	consumed  bool
}

func (s *Slot) expired(now time.Time) bool {
	return now.Sub(s.createdAt) > slotTTL
}
