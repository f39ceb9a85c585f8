package records

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kofnote/internal/workspace"
)

type fakeIndexer struct {
	upserts []string
	deletes []string
}

func (f *fakeIndexer) UpsertRecord(r Record) error {
	f.upserts = append(f.upserts, r.JSONPath)
	return nil
}

func (f *fakeIndexer) DeleteRecord(jsonPath string) error {
	f.deletes = append(f.deletes, jsonPath)
	return nil
}

func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	if err := workspace.EnsureStructure(home); err != nil {
		t.Fatal(err)
	}
	return home
}

func TestUpsertCreatesPair(t *testing.T) {
	home := newHome(t)
	idx := &fakeIndexer{}
	store := Open(home, idx)

	r, err := store.Upsert(Record{Type: "decision", Title: "Adopt Go", SourceText: "why go", FinalBody: "yes"}, "")
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	if _, err := os.Stat(r.JSONPath); err != nil {
		t.Errorf("expected json file at %s: %v", r.JSONPath, err)
	}
	if _, err := os.Stat(r.MDPath); err != nil {
		t.Errorf("expected md file at %s: %v", r.MDPath, err)
	}
	if filepath.Dir(r.JSONPath) != workspace.RecordsDir(home, "decision") {
		t.Errorf("expected record under decisions dir, got %s", r.JSONPath)
	}
	if len(idx.upserts) != 1 {
		t.Errorf("expected one index upsert, got %d", len(idx.upserts))
	}

	raw, err := os.ReadFile(r.JSONPath)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["sync_status"] != "SUCCESS" {
		t.Errorf("expected default sync status SUCCESS, got %v", parsed["sync_status"])
	}
}

func TestUpsertReusesPriorStem(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	first, err := store.Upsert(Record{Type: "idea", Title: "Initial", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}

	second, err := store.Upsert(Record{
		Type:       "idea",
		Title:      "Initial",
		CreatedAt:  first.CreatedAt,
		SourceText: "a",
		FinalBody:  "edited body",
	}, first.JSONPath)
	if err != nil {
		t.Fatal(err)
	}

	if second.JSONPath != first.JSONPath {
		t.Errorf("expected stem reuse: %s != %s", second.JSONPath, first.JSONPath)
	}
	data, _ := os.ReadFile(second.MDPath)
	if !strings.Contains(string(data), "edited body") {
		t.Errorf("expected markdown to reflect edit, got: %s", data)
	}
}

func TestUpsertMovesOnStemChange(t *testing.T) {
	home := newHome(t)
	idx := &fakeIndexer{}
	store := Open(home, idx)

	first, err := store.Upsert(Record{Type: "idea", Title: "Original Title", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}

	// The stem is reused while the prior JSON exists; once it is gone, a
	// changed title yields a new stem and the stale markdown is cleaned up.
	if err := os.Remove(first.JSONPath); err != nil {
		t.Fatal(err)
	}

	second, err := store.Upsert(Record{
		Type:       "idea",
		Title:      "Totally Different Title",
		CreatedAt:  first.CreatedAt,
		SourceText: "a",
		FinalBody:  "b",
	}, first.JSONPath)
	if err != nil {
		t.Fatal(err)
	}

	if second.JSONPath == first.JSONPath {
		t.Fatal("expected a new stem for a changed title once the prior json is gone")
	}
	if _, err := os.Stat(first.JSONPath); !os.IsNotExist(err) {
		t.Errorf("expected prior json to be removed")
	}
	if _, err := os.Stat(first.MDPath); !os.IsNotExist(err) {
		t.Errorf("expected prior md to be removed")
	}
	if len(idx.deletes) != 1 || idx.deletes[0] != first.JSONPath {
		t.Errorf("expected index delete for prior path, got %v", idx.deletes)
	}
}

func TestUpsertDefaultsEmptyTitleToUntitled(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	r, err := store.Upsert(Record{Type: "note", SourceText: "x", FinalBody: "y"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "Untitled" {
		t.Errorf("expected default title Untitled, got %q", r.Title)
	}
}

func TestUpsertCanonicalizesUnknownType(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	r, err := store.Upsert(Record{Type: "bogus", Title: "X", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Type != "note" {
		t.Errorf("expected canonicalization to note, got %q", r.Type)
	}
	if filepath.Dir(r.JSONPath) != workspace.RecordsDir(home, "note") {
		t.Errorf("expected record filed under other/, got %s", r.JSONPath)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	older, err := store.Upsert(Record{Type: "note", Title: "Older", CreatedAt: "2026-01-01T00:00:00Z", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}
	newer, err := store.Upsert(Record{Type: "note", Title: "Newer", CreatedAt: "2026-06-01T00:00:00Z", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].JSONPath != newer.JSONPath || list[1].JSONPath != older.JSONPath {
		t.Errorf("expected newest-first ordering, got %v", list)
	}
}

func TestListSkipsUnparseableFiles(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	bad := filepath.Join(workspace.RecordsDir(home, "note"), "broken.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected unparseable file to be skipped, got %d records", len(list))
	}
}

func TestDeleteRemovesPairAndIndex(t *testing.T) {
	home := newHome(t)
	idx := &fakeIndexer{}
	store := Open(home, idx)

	r, err := store.Upsert(Record{Type: "note", Title: "Gone soon", SourceText: "a", FinalBody: "b"}, "")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(r.JSONPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(r.JSONPath); !os.IsNotExist(err) {
		t.Error("expected json file removed")
	}
	if _, err := os.Stat(r.MDPath); !os.IsNotExist(err) {
		t.Error("expected md file removed")
	}
	if len(idx.deletes) != 1 {
		t.Errorf("expected one index delete, got %d", len(idx.deletes))
	}
}

func TestLoadLogsSkipsNonJSON(t *testing.T) {
	home := newHome(t)
	store := Open(home, nil)

	logsDir := workspace.LogsDir(home)
	entry := map[string]any{
		"meta": map[string]any{"timestamp": "2026-01-01T00:00:00Z", "event_id": "evt-1"},
		"task": map[string]any{"intent": "note.create", "status": "ok"},
		"data": map[string]any{"title": "hello"},
	}
	raw, _ := json.Marshal(entry)
	if err := os.WriteFile(filepath.Join(logsDir, "evt-1.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logsDir, "readme.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	logs, err := store.LoadLogs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].EventID != "evt-1" || logs[0].Title != "hello" {
		t.Errorf("unexpected log entry: %+v", logs[0])
	}
}
