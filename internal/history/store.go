// Package history implements the history collaborator the core calls
// into after a successful transcription (spec §4.F step 3, §6, §9): it
// writes the raw recording to a WAV file and inserts one row per
// transcription into a SQLite-backed history.db. The core never reads
// this store back or owns its schema migrations beyond this insert path.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/aidynamicsolutions/codictate/internal/audio"
	"github.com/aidynamicsolutions/codictate/internal/events"
)

// sampleRate matches internal/audio's capture target and the recognizer's
// required input rate (spec §4.A/§4.F); history does not receive it from
// the orchestrator, so it is duplicated here rather than imported from
// internal/transcribe (which depends on this package's interface, not the
// reverse).
const sampleRate = 16000

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name            TEXT NOT NULL,
	timestamp            INTEGER NOT NULL,
	saved                INTEGER NOT NULL DEFAULT 1,
	title                TEXT NOT NULL DEFAULT '',
	transcription_text   TEXT NOT NULL,
	post_processed_text  TEXT,
	post_process_prompt  TEXT,
	duration_ms          INTEGER NOT NULL
);
`

const titleMaxRunes = 60

// Record is one row of history.db (spec §6's on-disk layout).
type Record struct {
	FileName          string
	Timestamp         time.Time
	Saved             bool
	Title             string
	TranscriptionText string
	PostProcessedText string
	PostProcessPrompt string
	DurationMs        int64
}

// Store is the SQLite-backed history collaborator.
type Store struct {
	db            *sql.DB
	recordingsDir string
	bus           *events.Bus
	logger        *log.Logger
}

// Open creates (or reuses) history.db and a recordings/ directory under
// dataDir, running the single CREATE TABLE IF NOT EXISTS migration the
// core owns (spec §9: no migrations beyond this).
func Open(dataDir string, bus *events.Bus, logger *log.Logger) (*Store, error) {
	recordingsDir := filepath.Join(dataDir, "recordings")
	if err := os.MkdirAll(recordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db, recordingsDir: recordingsDir, bus: bus, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveTranscription inserts one row. This is the core's only call into
// the history collaborator's schema.
func (s *Store) SaveTranscription(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions
			(file_name, timestamp, saved, title, transcription_text, post_processed_text, post_process_prompt, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileName, rec.Timestamp.UnixMilli(), boolToInt(rec.Saved), rec.Title,
		rec.TranscriptionText, nullable(rec.PostProcessedText), nullable(rec.PostProcessPrompt), rec.DurationMs)
	return err
}

// SaveAsync implements internal/transcribe.HistorySaver: it writes the
// raw samples to a WAV file under the recordings directory and inserts
// the row in the background, off the paste-critical path (spec §4.F
// step 3). Failures are logged, never surfaced to the user — a missed
// history write is not worth interrupting dictation for.
func (s *Store) SaveAsync(raw []float32, original, postProcessed, prompt string) {
	go func() {
		fileName := uuid.NewString() + ".wav"
		if wavData, err := audio.EncodeWAV(raw, sampleRate); err == nil {
			if err := os.WriteFile(filepath.Join(s.recordingsDir, fileName), wavData, 0o644); err != nil {
				s.logf("write recording %s: %v", fileName, err)
				fileName = ""
			}
		} else {
			s.logf("encode recording wav: %v", err)
			fileName = ""
		}

		rec := Record{
			FileName:          fileName,
			Timestamp:         time.Now(),
			Saved:             true,
			Title:             deriveTitle(original),
			TranscriptionText: original,
			PostProcessedText: postProcessed,
			PostProcessPrompt: prompt,
			DurationMs:        durationMs(len(raw)),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.SaveTranscription(ctx, rec); err != nil {
			s.logf("save transcription: %v", err)
			return
		}
		if s.bus != nil {
			s.bus.Publish(events.HistoryUpdated, nil)
		}
	}()
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("history: "+format, args...)
	}
}

func durationMs(sampleCount int) int64 {
	return int64(sampleCount) * 1000 / int64(sampleRate)
}

// deriveTitle takes the first titleMaxRunes runes of text, trimmed to a
// word boundary, as a list-view label.
func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	truncated := string(runes[:titleMaxRunes])
	if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated) + "…"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
