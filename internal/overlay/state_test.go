package overlay

import (
	"testing"
	"time"
)

func TestShowTransitionsAndHide(t *testing.T) {
	o := New(nil, nil)
	if !o.ShowRecording("sess1") {
		t.Fatal("expected ShowRecording to succeed from Hidden")
	}
	st, sid := o.State()
	if st != Recording || sid != "sess1" {
		t.Fatalf("expected Recording/sess1, got %v/%s", st, sid)
	}
	if !o.Hide() {
		t.Fatal("expected Hide to succeed")
	}
	st, _ = o.State()
	if st != Hidden {
		t.Fatalf("expected Hidden, got %v", st)
	}
}

func TestHideIfRecordingRejectsStaleSession(t *testing.T) {
	o := New(nil, nil)
	o.ShowRecording("sess1")
	if o.HideIfRecording("sess0") {
		t.Fatal("expected stale session hide-if-recording to be rejected")
	}
	st, _ := o.State()
	if st != Recording {
		t.Fatal("expected Recording to survive a stale hide-if-recording race")
	}
	if !o.HideIfRecording("sess1") {
		t.Fatal("expected matching session hide-if-recording to succeed")
	}
}

func TestCancelForSessionRejectsOlderSession(t *testing.T) {
	o := New(nil, nil)
	o.ShowTranscribing("sess1")
	if o.CancelForSession("sess0") {
		t.Fatal("expected stale-session cancel to be rejected")
	}
	st, _ := o.State()
	if st != Transcribing {
		t.Fatal("expected Transcribing to survive a stale cancel signal")
	}
}

func TestCancelNeverLeavesRecordingWhenItReturns(t *testing.T) {
	o := New(nil, nil)
	o.ShowRecording("sess1")
	o.CancelForSession("sess1")
	st, _ := o.State()
	if st == Recording {
		t.Fatal("overlay must never be Recording immediately after cancel returns")
	}
	if st != Cancelling {
		t.Fatalf("expected Cancelling, got %v", st)
	}
}

func TestCancellingFloorBlocksImmediateOverwrite(t *testing.T) {
	o := New(nil, nil)
	o.ShowRecording("sess1")
	o.CancelForSession("sess1")

	if o.ShowRecording("sess2") {
		t.Fatal("expected a new start press to be suppressed during the Cancelling floor")
	}
	st, _ := o.State()
	if st != Cancelling {
		t.Fatalf("expected Cancelling to persist, got %v", st)
	}
}

func TestCancellingAutoHidesAfterFloor(t *testing.T) {
	o := New(nil, nil)
	o.ShowRecording("sess1")
	o.CancelForSession("sess1")

	st, _ := o.State()
	if st != Cancelling {
		t.Fatal("expected Cancelling immediately")
	}

	time.Sleep(cancellingFloor + 100*time.Millisecond)
	st, _ = o.State()
	if st != Hidden {
		t.Fatalf("expected auto-hide after the floor, got %v", st)
	}
}

func TestCancellingNeverHiddenBeforeFloor(t *testing.T) {
	o := New(nil, nil)
	o.ShowRecording("sess1")
	o.CancelForSession("sess1")

	time.Sleep(cancellingFloor / 2)
	st, _ := o.State()
	if st == Hidden {
		t.Fatal("overlay must not be Hidden less than the Cancelling floor after entering Cancelling")
	}
}

func TestWaitReadyReturnsAfterMarkReady(t *testing.T) {
	o := New(nil, nil)
	done := make(chan struct{})
	go func() {
		o.WaitReady()
		close(done)
	}()
	o.MarkReady()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected WaitReady to return promptly after MarkReady")
	}
}

func TestWaitReadyTimesOutWithoutReady(t *testing.T) {
	o := New(nil, nil)
	start := time.Now()
	o.WaitReady()
	if time.Since(start) < readyPollTimeout {
		t.Fatal("expected WaitReady to wait at least the poll timeout")
	}
}
