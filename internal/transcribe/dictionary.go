package transcribe

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

// maxNgram is the widest run of words tried as a single match candidate,
// so that a spoken phrase split across words ("Chat G P T") can still hit
// a dictionary entry written as one token ("ChatGPT").
const maxNgram = 3

// applyDictionary rewrites text using the user's dictionary entries,
// step 0 of the non-empty-result pipeline (run before language conversion
// and post-processing). Entries marked IsReplacement match case-insensitively
// on the exact concatenated phrase; all entries additionally match fuzzily
// by normalized Levenshtein similarity against threshold. Matching is
// greedy longest-ngram-first, left to right.
func applyDictionary(text string, entries []settings.DictionaryEntry, threshold float64) string {
	if len(entries) == 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	candidates := make([]dictCandidate, 0, len(entries))
	for _, e := range entries {
		matchText := e.Input
		if strings.TrimSpace(matchText) == "" {
			matchText = e.Replacement
		}
		candidates = append(candidates, dictCandidate{
			entry:      e,
			normalized: concatAlnum(matchText),
		})
	}

	var out []string
	for i := 0; i < len(words); {
		matched := false
		for n := maxNgram; n >= 1; n-- {
			if i+n > len(words) {
				continue
			}
			ngram := strings.Join(words[i:i+n], " ")
			normalized := concatAlnum(ngram)
			if normalized == "" {
				continue
			}
			if best, ok := bestDictMatch(normalized, candidates, threshold); ok {
				out = append(out, best.entry.Replacement)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

type dictCandidate struct {
	entry      settings.DictionaryEntry
	normalized string
}

// bestDictMatch returns the candidate matching normalized most closely,
// preferring an exact match over a fuzzy one above threshold. Both sides
// are already lowercased by concatAlnum, so exact matching is
// case-insensitive for every entry.
func bestDictMatch(normalized string, candidates []dictCandidate, threshold float64) (dictCandidate, bool) {
	var fuzzyBest dictCandidate
	fuzzyScore := -1.0
	for _, c := range candidates {
		if c.normalized == "" {
			continue
		}
		exact := c.normalized == normalized
		if !exact && c.entry.IsReplacement {
			exact = strings.EqualFold(c.normalized, normalized)
		}
		if exact {
			return c, true
		}
		if score := similarity(normalized, c.normalized); score >= threshold && score > fuzzyScore {
			fuzzyBest, fuzzyScore = c, score
		}
	}
	if fuzzyScore >= 0 {
		return fuzzyBest, true
	}
	return dictCandidate{}, false
}

// similarity returns a 0..1 score, 1 meaning identical, derived from
// Levenshtein edit distance normalized by the longer string's length.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func concatAlnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
