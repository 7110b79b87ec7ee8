package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

func TestOpenCreatesSchemaAndRecordingsDir(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, events.NewBus(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.db.Exec("SELECT file_name, timestamp, saved, title, transcription_text, post_processed_text, post_process_prompt, duration_ms FROM transcriptions"); err != nil {
		t.Fatalf("schema missing expected columns: %v", err)
	}
}

func TestSaveTranscriptionInsertsRow(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, events.NewBus(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	rec := Record{
		FileName:          "abc.wav",
		Timestamp:         time.Now(),
		Saved:             true,
		Title:             "hello",
		TranscriptionText: "hello world",
		PostProcessedText: "Hello, world.",
		PostProcessPrompt: "default",
		DurationMs:        1500,
	}
	if err := store.SaveTranscription(context.Background(), rec); err != nil {
		t.Fatalf("SaveTranscription: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM transcriptions").Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d rows, want 1", count)
	}
}

func TestSaveTranscriptionStoresNullForEmptyOptionalFields(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, events.NewBus(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	rec := Record{
		FileName:          "abc.wav",
		Timestamp:         time.Now(),
		Saved:             true,
		TranscriptionText: "raw only",
		DurationMs:        500,
	}
	if err := store.SaveTranscription(context.Background(), rec); err != nil {
		t.Fatalf("SaveTranscription: %v", err)
	}

	var postProcessed, prompt sql.NullString
	row := store.db.QueryRow("SELECT post_processed_text, post_process_prompt FROM transcriptions WHERE file_name = ?", "abc.wav")
	if err := row.Scan(&postProcessed, &prompt); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if postProcessed.Valid || prompt.Valid {
		t.Fatalf("expected NULL optional fields, got %+v %+v", postProcessed, prompt)
	}
}

func TestSaveAsyncWritesRecordingAndPublishesHistoryUpdated(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus()
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	store, err := Open(dir, bus, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	samples := make([]float32, sampleRate) // 1 second of silence
	store.SaveAsync(samples, "hello world", "Hello, world.", "default")

	select {
	case ev := <-ch:
		if ev.Kind != events.HistoryUpdated {
			t.Fatalf("got event kind %v, want HistoryUpdated", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for HistoryUpdated event")
	}

	var fileName string
	row := store.db.QueryRow("SELECT file_name FROM transcriptions WHERE transcription_text = ?", "hello world")
	if err := row.Scan(&fileName); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if fileName == "" {
		t.Fatal("expected a non-empty recorded file name")
	}

	wavPath := filepath.Join(dir, "recordings", fileName)
	if _, err := os.Stat(wavPath); err != nil {
		t.Fatalf("expected wav file at %s: %v", wavPath, err)
	}
}

func TestDeriveTitleTruncatesLongText(t *testing.T) {
	long := "this is a very long piece of transcribed text that should be truncated at a word boundary before reaching the title limit for display purposes"
	title := deriveTitle(long)
	if len([]rune(title)) > titleMaxRunes+1 {
		t.Fatalf("title too long: %q (%d runes)", title, len([]rune(title)))
	}
	if title == long {
		t.Fatal("expected truncation")
	}
}

func TestDeriveTitlePassesThroughShortText(t *testing.T) {
	short := "hello world"
	if got := deriveTitle(short); got != short {
		t.Fatalf("got %q, want %q", got, short)
	}
}

func TestDurationMsMatchesSampleCount(t *testing.T) {
	if got := durationMs(sampleRate); got != 1000 {
		t.Fatalf("got %d ms, want 1000", got)
	}
}
