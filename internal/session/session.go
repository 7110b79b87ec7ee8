// Package session generates the short correlation id that tags every log
// line and downstream event between a shortcut press and the eventual
// paste (spec §3 invariant 4).
package session

import (
	"crypto/rand"
	"encoding/hex"
)

const idBytes = 4 // 4 bytes -> 8 hex chars

// New returns a new 8-character lowercase-hex session id.
func New() string {
	var b [idBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real OS;
		// fall back to a fixed-but-distinguishable id rather than panicking
		// the caller.
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}
