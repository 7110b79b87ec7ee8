package smartinsert

import (
	"strings"
	"unicode"
)

// Context describes the insertion point: the characters immediately to
// the left and right of the caret, and whether there is an active
// selection being replaced (spec §4.G).
type Context struct {
	Before       rune // 0 if at the start of the field
	After        rune // 0 if at the end of the field
	HasSelection bool
}

// Transform rewrites text for insertion at ctx, per the profile resolved
// from selectedLanguage (spec §4.G). Punctuation-artifact collapsing runs
// unconditionally afterward via CollapsePunctuationArtifacts.
func Transform(text, selectedLanguage string, ctx Context) string {
	if text == "" {
		return text
	}
	profile := ResolveProfile(selectedLanguage)

	switch profile {
	case CasedWhitespace, UncasedWhitespace:
		text = adjustCase(text, ctx, profile)
		text = stripTrailingPunctuationIfContinuationAllows(text, ctx, profile)
		text = addBoundarySpacing(text, ctx)
	case NoBoundarySpacing:
		text = compactCJKWhitespace(text)
	default: // Conservative
		text = addTrailingSpaceAtWordBoundary(text, ctx)
	}

	return CollapsePunctuationArtifacts(text)
}

// adjustCase capitalizes the first letter when the caret sits at a
// sentence start, or decapitalizes a title-case start otherwise (spec
// §4.G: "capitalize after sentence terminators; decapitalize title-case
// starts mid-sentence").
func adjustCase(text string, ctx Context, profile Profile) string {
	if profile == UncasedWhitespace {
		return text
	}
	if isSentenceStart(ctx, profile) {
		return withFirstAlpha(text, unicode.ToUpper)
	}
	return withFirstAlpha(text, decapitalizeIfTitleCase(text))
}

func isSentenceStart(ctx Context, profile Profile) bool {
	if ctx.Before == 0 {
		return true
	}
	return isSentenceTerminator(ctx.Before, profile)
}

// withFirstAlpha applies f to the first alphabetic rune in text, leaving
// everything else unchanged.
func withFirstAlpha(text string, f func(rune) rune) string {
	runes := []rune(text)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = f(r)
			return string(runes)
		}
	}
	return text
}

// decapitalizeIfTitleCase returns a function that lowercases r only when
// text looks like "Word " (capitalized first letter, rest of the first
// token lowercase) rather than an acronym or proper noun the caller
// should leave alone.
func decapitalizeIfTitleCase(text string) func(rune) rune {
	return func(r rune) rune {
		if !isTitleLikeStart(text) {
			return r
		}
		return unicode.ToLower(r)
	}
}

func isTitleLikeStart(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	first := []rune(fields[0])
	if len(first) == 0 || !unicode.IsUpper(first[0]) {
		return false
	}
	for _, r := range first[1:] {
		if unicode.IsUpper(r) {
			return false // looks like an acronym, leave it alone
		}
	}
	return len(first) > 1
}

// stripTrailingPunctuationIfContinuationAllows removes a single trailing
// sentence-terminator when the character after the caret is lowercase or
// numeric (meaning the spoken sentence continues) and the last token is
// not abbreviation-like (spec §4.G).
func stripTrailingPunctuationIfContinuationAllows(text string, ctx Context, profile Profile) string {
	if ctx.After == 0 || !continuationAllowsStrip(ctx.After, profile) {
		return text
	}
	trimmed := strings.TrimRight(text, " \t")
	if trimmed == "" {
		return text
	}
	runes := []rune(trimmed)
	last := runes[len(runes)-1]
	if !isSentenceTerminator(last, profile) {
		return text
	}
	if hasAbbreviationLikeInternalDots(trimmed, profile) {
		return text
	}
	trailingWhitespace := text[len(trimmed):]
	return string(runes[:len(runes)-1]) + trailingWhitespace
}

func continuationAllowsStrip(r rune, profile Profile) bool {
	switch profile {
	case CasedWhitespace:
		return unicode.IsLower(r) || unicode.IsDigit(r)
	case UncasedWhitespace:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	default:
		return false
	}
}

func hasAbbreviationLikeInternalDots(text string, profile Profile) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	lastToken := fields[len(fields)-1]
	trimmed := strings.TrimRightFunc(lastToken, func(r rune) bool { return isSentenceTerminator(r, profile) })
	hasDot := strings.ContainsRune(trimmed, '.')
	hasAlpha := strings.IndexFunc(trimmed, unicode.IsLetter) >= 0
	return hasDot && hasAlpha
}

// addBoundarySpacing adds a leading space when the caret has a non-space
// character immediately to its left and no active selection, and a
// trailing space when the character to the right is non-space.
func addBoundarySpacing(text string, ctx Context) string {
	if ctx.Before != 0 && !unicode.IsSpace(ctx.Before) && !ctx.HasSelection {
		text = " " + text
	}
	if ctx.After != 0 && !unicode.IsSpace(ctx.After) {
		text = text + " "
	}
	return text
}

// addTrailingSpaceAtWordBoundary is the conservative fallback profile:
// append a single trailing space when there isn't already a boundary, and
// otherwise leave the text alone.
func addTrailingSpaceAtWordBoundary(text string, ctx Context) string {
	if ctx.After == 0 || unicode.IsSpace(ctx.After) {
		return text
	}
	if strings.HasSuffix(text, " ") {
		return text
	}
	return text + " "
}

// compactCJKWhitespace removes whitespace dictation introduces around CJK
// characters (Han↔Han, and the ASCII↔CJK boundary), while leaving
// ASCII-to-ASCII spacing untouched ("Open AI" stays "Open AI") (spec
// §4.G).
func compactCJKWhitespace(text string) string {
	runes := []rune(text)
	var out []rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if unicode.IsSpace(r) {
			prev := lastNonSpace(out)
			next := nextNonSpace(runes, i+1)
			if prev != 0 && next != 0 && !(isASCII(prev) && isASCII(next)) {
				continue // drop whitespace at any boundary touching a CJK character
			}
		}
		out = append(out, r)
	}
	return string(out)
}

func isASCII(r rune) bool { return r < 0x80 }

func lastNonSpace(runes []rune) rune {
	if len(runes) == 0 {
		return 0
	}
	return runes[len(runes)-1]
}

func nextNonSpace(runes []rune, from int) rune {
	for i := from; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return runes[i]
		}
	}
	return 0
}
