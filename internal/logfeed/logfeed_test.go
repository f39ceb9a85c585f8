package logfeed

import (
	"testing"
	"time"

	"kofnote/internal/records"
	"kofnote/internal/workspace"
)

func TestEmitWritesReadableLogEntry(t *testing.T) {
	home := t.TempDir()
	if err := workspace.EnsureStructure(home); err != nil {
		t.Fatal(err)
	}

	fixed := time.Date(2026, 7, 29, 10, 30, 0, 0, time.UTC)
	feed := &Feed{Home: home, Now: func() time.Time { return fixed }}

	if err := feed.DebateStarted("debate_20260729_103000_00001", "Choose a strategy", 5); err != nil {
		t.Fatalf("DebateStarted failed: %v", err)
	}

	store := records.Open(home, nil)
	logs, err := store.LoadLogs()
	if err != nil {
		t.Fatalf("LoadLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.TaskIntent != EventDebateStarted {
		t.Errorf("expected intent %q, got %q", EventDebateStarted, entry.TaskIntent)
	}
	if entry.Status != "started" {
		t.Errorf("expected status 'started', got %q", entry.Status)
	}
	if entry.Timestamp != fixed.Format(time.RFC3339) {
		t.Errorf("expected timestamp %s, got %s", fixed.Format(time.RFC3339), entry.Timestamp)
	}
	if entry.Title == "" {
		t.Error("expected non-empty title from data payload")
	}
}

func TestEmitMultipleEventsDoNotCollide(t *testing.T) {
	home := t.TempDir()
	if err := workspace.EnsureStructure(home); err != nil {
		t.Fatal(err)
	}
	feed := New(home)

	for i := 0; i < 3; i++ {
		if err := feed.SyncCompleted("records/decisions/x.json", "push"); err != nil {
			t.Fatalf("SyncCompleted failed: %v", err)
		}
	}

	store := records.Open(home, nil)
	logs, err := store.LoadLogs()
	if err != nil {
		t.Fatalf("LoadLogs failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 distinct log entries, got %d", len(logs))
	}
}
