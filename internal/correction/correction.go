// Package correction implements the Correction Pipeline (spec §4.H): a
// dedicated shortcut that captures focused-app text via accessibility,
// sends it to the Post-Process Dispatcher for a grammar/word-choice fix,
// and re-selects and replaces the original text with the result.
package correction

import (
	_ "embed"
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/aidynamicsolutions/codictate/internal/settings"
)

//go:embed prompts/correct-text.md
var promptTemplate string

const maxDictionaryHints = 50

// CapturedContext is the accessibility snapshot from spec §3: the
// selection (if any), up to ~1000 characters of surrounding text, and a
// screen position to anchor the result overlay.
type CapturedContext struct {
	SelectedText         string
	HasSelection         bool
	Context              string
	CursorScreenPositionX float64
	CursorScreenPositionY float64
}

// Result is a completed correction awaiting accept/dismiss.
type Result struct {
	Original   string
	Corrected  string
	HasChanges bool
}

// ContextReader captures the focused application's text context.
type ContextReader interface {
	CaptureContext(ctx context.Context) (*CapturedContext, error)
}

// TextReplacer re-selects original in the focused application and pastes
// replacement in its place.
type TextReplacer interface {
	ReplaceText(ctx context.Context, original, replacement string) error
}

// Dispatcher is the subset of the Post-Process Dispatcher the correction
// pipeline needs (spec §4.I).
type Dispatcher interface {
	Dispatch(ctx context.Context, providerID, model, prompt string) (string, error)
}

// Notifier surfaces a failure to the user.
type Notifier interface {
	Notify(title, message string)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}

// Manager runs the correction pipeline, guarding against concurrent runs
// and holding the last result for the accept/dismiss flow.
type Manager struct {
	reader     ContextReader
	replacer   TextReplacer
	dispatcher Dispatcher
	store      settings.Store
	notifier   Notifier

	mu          sync.Mutex
	inProgress  bool
	lastResult  *Result
}

// New builds a Manager. notifier may be nil, in which case failures are
// silently dropped.
func New(reader ContextReader, replacer TextReplacer, dispatcher Dispatcher, store settings.Store, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Manager{reader: reader, replacer: replacer, dispatcher: dispatcher, store: store, notifier: notifier}
}

var (
	errInProgress = fmt.Errorf("correction_in_progress")
	errNoText     = fmt.Errorf("no_text")
)

// Run executes the full pipeline: capture → prompt → dispatch → extract.
// At most one run proceeds at a time; a concurrent call returns
// errInProgress immediately.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	if m.inProgress {
		m.mu.Unlock()
		return nil, errInProgress
	}
	m.inProgress = true
	m.mu.Unlock()

	result, err := m.runInner(ctx)

	m.mu.Lock()
	m.inProgress = false
	if err == nil {
		m.lastResult = result
	}
	m.mu.Unlock()

	return result, err
}

func (m *Manager) runInner(ctx context.Context) (*Result, error) {
	captured, err := m.reader.CaptureContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture context: %w", err)
	}
	if strings.TrimSpace(captured.SelectedText) == "" {
		return nil, errNoText
	}

	useFullContext := captured.Context != "" && strings.Contains(captured.Context, captured.SelectedText)
	textForLLM := captured.SelectedText
	if useFullContext {
		textForLLM = captured.Context
	}

	snap := m.store.Snapshot()
	prompt := buildPrompt(snap, textForLLM, captured)

	providerID := snap.PostProcessProviderID
	providerCfg := snap.PostProcessProviders[providerID]
	correctedFull, err := m.dispatcher.Dispatch(ctx, providerID, providerCfg.Model, prompt)
	if err != nil {
		m.notifier.Notify("Correction failed", err.Error())
		return nil, fmt.Errorf("dispatch correction: %w", err)
	}
	correctedFull = strings.TrimSpace(correctedFull)

	var correctedForResult string
	if useFullContext {
		_, correctedForResult = extractSelectedCorrection(captured.Context, captured.SelectedText, correctedFull)
	} else {
		correctedForResult = correctedFull
	}

	hasSuffix := false
	if useFullContext {
		if idx := strings.Index(captured.Context, captured.SelectedText); idx >= 0 {
			after := captured.Context[idx+len(captured.SelectedText):]
			hasSuffix = strings.TrimSpace(after) != ""
		}
	}
	correctedForResult = stripTrailingPeriod(captured.SelectedText, correctedForResult, hasSuffix)

	result := &Result{
		Original:   captured.SelectedText,
		Corrected:  strings.TrimSpace(correctedForResult),
		HasChanges: strings.TrimSpace(correctedForResult) != strings.TrimSpace(captured.SelectedText),
	}
	return result, nil
}

// Accept replaces the original text with the last result's correction.
func (m *Manager) Accept(ctx context.Context) error {
	m.mu.Lock()
	result := m.lastResult
	m.mu.Unlock()
	if result == nil {
		return fmt.Errorf("no correction to accept")
	}
	if err := m.replacer.ReplaceText(ctx, result.Original, result.Corrected); err != nil {
		m.notifier.Notify("Correction replace failed", err.Error())
		return err
	}
	return nil
}

// Dismiss discards the last result; the overlay hide is the caller's
// responsibility.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	m.lastResult = nil
	m.mu.Unlock()
}

func buildPrompt(snap *settings.Settings, target string, captured *CapturedContext) string {
	hints := formatDictionaryHints(snap.Dictionary)
	return interpolatePrompt(promptTemplate, target, captured.Context, captured.SelectedText, hints)
}

// interpolatePrompt substitutes ${output}, ${context}, ${selection}, and
// ${hints} (with ${dictionary} as a legacy alias) into template.
func interpolatePrompt(template, output, context, selection, hints string) string {
	r := strings.NewReplacer(
		"${output}", output,
		"${context}", context,
		"${selection}", selection,
		"${hints}", hints,
		"${dictionary}", hints,
	)
	return r.Replace(template)
}

// formatDictionaryHints renders at most 50 dictionary entries as LLM
// hints, distinguishing strict replacements from biasing vocabulary.
func formatDictionaryHints(entries []settings.DictionaryEntry) string {
	n := len(entries)
	if n > maxDictionaryHints {
		n = maxDictionaryHints
	}
	lines := make([]string, 0, n)
	for _, e := range entries[:n] {
		switch {
		case e.IsReplacement:
			lines = append(lines, fmt.Sprintf("- Use %q instead of %q", e.Replacement, e.Input))
		case strings.EqualFold(e.Input, e.Replacement):
			lines = append(lines, fmt.Sprintf("- Vocabulary: %q", e.Replacement))
		default:
			lines = append(lines, fmt.Sprintf("- Use %q contextually for %q", e.Replacement, e.Input))
		}
	}
	return strings.Join(lines, "\n")
}

// expandToWordBoundaries scans outward from cursorPos (a rune index)
// across alphanumeric characters to smart-select the word under the
// caret. Returns the word and its rune offset, or ok=false if the
// caret sits between non-alphanumeric characters.
func expandToWordBoundaries(text string, cursorPos int) (word string, offset int, ok bool) {
	runes := []rune(text)
	if len(runes) == 0 || cursorPos > len(runes) {
		return "", 0, false
	}
	start, end := cursorPos, cursorPos
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	if start == end {
		return "", 0, false
	}
	return string(runes[start:end]), start, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// extractContext returns up to radius runes on each side of cursorPos
// (a rune index into fullText).
func extractContext(fullText string, cursorPos, radius int) string {
	runes := []rune(fullText)
	start := cursorPos - radius
	if start < 0 {
		start = 0
	}
	end := cursorPos + radius
	if end > len(runes) {
		end = len(runes)
	}
	if start > len(runes) {
		start = len(runes)
	}
	if start > end {
		start = end
	}
	return string(runes[start:end])
}

// extractSelectedCorrection finds the word-offset of selectedText within
// originalContext and extracts the corresponding words from
// correctedContext, falling back to suffix matching when the LLM changed
// the sentence's word count (spec §4.H step 6).
func extractSelectedCorrection(originalContext, selectedText, correctedContext string) (string, string) {
	idx := strings.Index(originalContext, selectedText)
	if idx < 0 {
		return selectedText, correctedContext
	}
	prefix := originalContext[:idx]
	suffix := originalContext[idx+len(selectedText):]

	prefixWords := len(strings.Fields(prefix))
	selectedWords := len(strings.Fields(selectedText))
	correctedWords := strings.Fields(correctedContext)

	if prefixWords+selectedWords <= len(correctedWords) {
		extracted := strings.Join(correctedWords[prefixWords:prefixWords+selectedWords], " ")
		return selectedText, extracted
	}

	if trimmedSuffix := strings.TrimSpace(suffix); trimmedSuffix != "" {
		if suffixPos := strings.Index(correctedContext, trimmedSuffix); suffixPos >= 0 {
			prefixEnd := byteOffsetAfterNWords(correctedContext, prefixWords)
			if prefixEnd <= suffixPos {
				return selectedText, strings.TrimSpace(correctedContext[prefixEnd:suffixPos])
			}
		}
	}
	return selectedText, correctedContext
}

// byteOffsetAfterNWords returns the byte offset in text immediately after
// the nth whitespace-separated word (n==0 skips leading whitespace only).
func byteOffsetAfterNWords(text string, n int) int {
	if n == 0 {
		return len(text) - len(strings.TrimLeft(text, " \t\n\r"))
	}
	count := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				if count == n {
					return i
				}
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	return len(text)
}

// stripTrailingPeriod removes a period the LLM appended to a mid-sentence
// correction: only when the corrected text gained a trailing period the
// original selection lacked, and text follows the selection in context.
func stripTrailingPeriod(original, corrected string, hasSuffix bool) string {
	trimmed := strings.TrimRight(corrected, " \t")
	if hasSuffix && strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(strings.TrimRight(original, " \t"), ".") {
		return trimmed[:len(trimmed)-1]
	}
	return corrected
}
