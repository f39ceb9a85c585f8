package searchindex

import (
	"path/filepath"
	"testing"

	"kofnote/internal/records"
	"kofnote/internal/workspace"
)

func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	if err := workspace.EnsureStructure(home); err != nil {
		t.Fatal(err)
	}
	return home
}

func TestUpsertRecordNoOpWithoutIndexFile(t *testing.T) {
	home := newHome(t)
	idx := New(home)

	r := records.Record{Type: "note", Title: "x", CreatedAt: "2026-01-01T00:00:00Z", JSONPath: filepath.Join(home, "records", "other", "x.json")}
	if err := idx.UpsertRecord(r); err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}
	if idx.exists() {
		t.Error("expected upsert to remain a no-op and not create the db file")
	}
}

func TestRebuildAndSearchFTS(t *testing.T) {
	home := newHome(t)
	idx := New(home)

	recs := []records.Record{
		{Type: "decision", Title: "Adopt Go", FinalBody: "We will adopt Go for services.", SourceText: "discussion", Tags: []string{"infra"}, CreatedAt: "2026-01-01T00:00:00Z", JSONPath: "/a.json", MDPath: "/a.md", SyncStatus: "SUCCESS"},
		{Type: "idea", Title: "Use Rust", FinalBody: "Consider Rust for the kernel module.", SourceText: "discussion", CreatedAt: "2026-02-01T00:00:00Z", JSONPath: "/b.json", MDPath: "/b.md", SyncStatus: "SUCCESS"},
	}

	count, err := idx.Rebuild(recs)
	if err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 indexed, got %d", count)
	}

	result, err := idx.Search(SearchParams{Query: "Go", Limit: 10})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if !result.Indexed {
		t.Error("expected Indexed=true for a successful FTS query")
	}
	if result.Total != 1 || len(result.Records) != 1 {
		t.Fatalf("expected 1 match, got total=%d records=%d", result.Total, len(result.Records))
	}
	if result.Records[0].Title != "Adopt Go" {
		t.Errorf("expected Adopt Go, got %s", result.Records[0].Title)
	}
}

func TestSearchEmptyQueryUsesFilesystem(t *testing.T) {
	home := newHome(t)
	store := records.Open(home, nil)
	if _, err := store.Upsert(records.Record{Type: "note", Title: "FS Only", SourceText: "a", FinalBody: "b"}, ""); err != nil {
		t.Fatal(err)
	}

	idx := New(home)
	result, err := idx.Search(SearchParams{Query: "", Limit: 10})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if result.Indexed {
		t.Error("expected Indexed=false for the empty-query filesystem path")
	}
	if result.Total != 1 {
		t.Errorf("expected 1 record from filesystem scan, got %d", result.Total)
	}
}

func TestSearchFiltersByTypeAndDate(t *testing.T) {
	home := newHome(t)
	idx := New(home)

	recs := []records.Record{
		{Type: "decision", Title: "Early", FinalBody: "match term", SourceText: "s", CreatedAt: "2026-01-01T00:00:00Z", JSONPath: "/e.json"},
		{Type: "idea", Title: "Late", FinalBody: "match term", SourceText: "s", CreatedAt: "2026-06-01T00:00:00Z", JSONPath: "/l.json"},
	}
	if _, err := idx.Rebuild(recs); err != nil {
		t.Fatal(err)
	}

	result, err := idx.Search(SearchParams{Query: "match", RecordType: "decision", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 || result.Records[0].Title != "Early" {
		t.Errorf("expected type filter to select Early only, got %+v", result.Records)
	}

	result, err = idx.Search(SearchParams{Query: "match", DateFrom: "2026-03-01", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 || result.Records[0].Title != "Late" {
		t.Errorf("expected date_from filter to select Late only, got %+v", result.Records)
	}
}

func TestSearchPaginationClampsLimit(t *testing.T) {
	home := newHome(t)
	idx := New(home)
	if _, err := idx.Rebuild(nil); err != nil {
		t.Fatal(err)
	}

	result, err := idx.Search(SearchParams{Query: "anything", Limit: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 0 {
		t.Errorf("expected no matches against an empty index, got %d", result.Total)
	}
}

func TestDeleteRecordNoOpWithoutIndexFile(t *testing.T) {
	home := newHome(t)
	idx := New(home)
	if err := idx.DeleteRecord("/nonexistent.json"); err != nil {
		t.Fatalf("DeleteRecord() should be a no-op, got error: %v", err)
	}
}

func TestUpsertThenDeleteAfterRebuild(t *testing.T) {
	home := newHome(t)
	idx := New(home)

	r := records.Record{Type: "note", Title: "Temp", FinalBody: "body", SourceText: "s", CreatedAt: "2026-01-01T00:00:00Z", JSONPath: "/t.json", MDPath: "/t.md"}
	if _, err := idx.Rebuild([]records.Record{r}); err != nil {
		t.Fatal(err)
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after rebuild, got %d", count)
	}

	if err := idx.DeleteRecord(r.JSONPath); err != nil {
		t.Fatal(err)
	}
	count, err = idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected 0 rows after delete, got %d", count)
	}
}

func TestDebateCatalogRoundTrip(t *testing.T) {
	home := newHome(t)
	idx := New(home)

	run := DebateRunRow{
		RunID: "debate_20260101_000000_00001", OutputType: "decision", Problem: "p",
		ConsensusScore: 0.8, ConfidenceScore: 0.7, SelectedOption: "A",
		StartedAt: "2026-01-01T00:00:00Z", FinishedAt: "2026-01-01T00:05:00Z",
		ArtifactsRoot: "records/debates/x", FinalPacketPath: "records/debates/x/final-packet.json",
	}
	if err := idx.UpsertDebateRun(run); err != nil {
		t.Fatalf("UpsertDebateRun() failed: %v", err)
	}

	turns := []DebateTurnRow{
		{RunID: run.RunID, RoundNumber: 1, Role: "Proponent", Provider: "local", ModelName: "local-v1", Status: "ok", Claim: "c", Rationale: "r", ChallengesJSON: "[]", RevisionsJSON: "[]", StartedAt: "t0", FinishedAt: "t1"},
	}
	if err := idx.ReplaceDebateTurns(run.RunID, turns); err != nil {
		t.Fatalf("ReplaceDebateTurns() failed: %v", err)
	}

	actions := []DebateActionRow{
		{RunID: run.RunID, ActionID: "A1", Action: "ship it", Owner: "team", Due: "2026-01-05"},
	}
	if err := idx.ReplaceDebateActions(run.RunID, actions); err != nil {
		t.Fatalf("ReplaceDebateActions() failed: %v", err)
	}

	// Replacing again with fewer rows must not leave stale rows behind.
	if err := idx.ReplaceDebateTurns(run.RunID, nil); err != nil {
		t.Fatalf("ReplaceDebateTurns(nil) failed: %v", err)
	}
	turnCount, actionCount, ok := idx.DebateCounts(run.RunID)
	if !ok || turnCount != 0 || actionCount != 1 {
		t.Errorf("expected 0 turns and 1 action after replace, got turns=%d actions=%d ok=%v", turnCount, actionCount, ok)
	}
}
