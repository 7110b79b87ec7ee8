//go:build !darwin

package correction

import (
	"github.com/aidynamicsolutions/codictate/internal/paste"
)

// NewContextReader builds the ContextReader/TextReplacer for platforms with
// no AX-equivalent accessibility API wired (no AT-SPI/UI Automation binding
// exists in the retrieved pack for Linux or Windows): it falls straight to
// the clipboard path spec §4.H step 3 documents as the fallback for the
// darwin build, using the same Paste Engine collaborators. CapturedContext.Context
// is therefore always empty here — there is no surrounding-sentence text to
// read without an accessibility API, so the pipeline runs in selection-only
// mode rather than the full surrounding-context mode darwin gets.
func NewContextReader(clipboard paste.Clipboard, injector paste.Injector) interface {
	ContextReader
	TextReplacer
} {
	return NewClipboardAccessibility(injector, injector, clipboard)
}
