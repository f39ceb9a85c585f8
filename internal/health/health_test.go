package health

import (
	"testing"

	"kofnote/internal/records"
	"kofnote/internal/settings"
)

func TestGetFingerprintDeterministic(t *testing.T) {
	recs := []records.Record{
		{Title: "A", CreatedAt: "2026-01-02T00:00:00Z", Type: "decision"},
		{Title: "B", CreatedAt: "2026-01-01T00:00:00Z", Type: "worklog"},
	}
	logs := []records.LogEntry{{TaskIntent: "intent", Timestamp: "2026-01-02T00:00:00Z"}}

	a := GetFingerprint("/home/ws", recs, logs)
	b := GetFingerprint("/home/ws", recs, logs)
	if a.Token != b.Token {
		t.Fatalf("expected deterministic token, got %s vs %s", a.Token, b.Token)
	}
	if len(a.Token) != 16 {
		t.Errorf("expected 16 hex digits, got %q (%d)", a.Token, len(a.Token))
	}
	if a.RecordsCount != 2 || a.LogsCount != 1 {
		t.Errorf("unexpected counts: %+v", a)
	}
	if a.LatestRecordAt != "2026-01-02T00:00:00Z" {
		t.Errorf("expected latest record at from first entry, got %s", a.LatestRecordAt)
	}
}

func TestGetFingerprintChangesWithContent(t *testing.T) {
	recs1 := []records.Record{{Title: "A", CreatedAt: "2026-01-02T00:00:00Z", Type: "decision"}}
	recs2 := []records.Record{{Title: "A-edited", CreatedAt: "2026-01-02T00:00:00Z", Type: "decision"}}

	a := GetFingerprint("/home/ws", recs1, nil)
	b := GetFingerprint("/home/ws", recs2, nil)
	if a.Token == b.Token {
		t.Error("expected different tokens for different record summaries")
	}
}

func TestGetHealthNoIndex(t *testing.T) {
	home := t.TempDir()
	diag := GetHealth(home, nil, nil, nil, settings.Default())
	if diag.IndexExists {
		t.Error("expected IndexExists=false when no search.db present")
	}
	if diag.IndexedRecords != 0 {
		t.Errorf("expected 0 indexed records, got %d", diag.IndexedRecords)
	}
	if diag.CentralHome != home {
		t.Errorf("expected CentralHome %s, got %s", home, diag.CentralHome)
	}
}
