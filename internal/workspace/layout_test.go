package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveHomeBootstraps(t *testing.T) {
	dir := t.TempDir()
	resolved, err := ResolveHome(dir)
	if err != nil {
		t.Fatalf("ResolveHome() failed: %v", err)
	}
	if resolved.CentralHome != dir {
		t.Errorf("expected home %s, got %s", dir, resolved.CentralHome)
	}
	if resolved.Corrected {
		t.Error("expected Corrected=false for a fresh directory")
	}

	for _, sub := range []string{
		filepath.Join("records", "decisions"),
		filepath.Join("records", "debates"),
		filepath.Join(".agentic", "logs"),
		filepath.Join("prompts", "templates"),
	} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", sub)
		}
	}
}

func TestResolveHomeClimbsFromTypeDir(t *testing.T) {
	dir := t.TempDir()
	decisions := filepath.Join(dir, "records", "decisions")
	if err := os.MkdirAll(decisions, 0o755); err != nil {
		t.Fatal(err)
	}

	resolved, err := ResolveHome(decisions)
	if err != nil {
		t.Fatalf("ResolveHome() failed: %v", err)
	}
	if resolved.CentralHome != dir {
		t.Errorf("expected climb to %s, got %s", dir, resolved.CentralHome)
	}
	if !resolved.Corrected {
		t.Error("expected Corrected=true when climbing away from a type dir")
	}
}

func TestResolveHomeWalksAncestorsForMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".agentic"), 0o755); err != nil {
		t.Fatal(err)
	}
	markerPath := filepath.Join(root, ".agentic", CentralLogMarker)
	if err := os.WriteFile(markerPath, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "some", "nested", "dir")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	resolved, err := ResolveHome(nested)
	if err != nil {
		t.Fatalf("ResolveHome() failed: %v", err)
	}
	if resolved.CentralHome != root {
		t.Errorf("expected walk up to marker root %s, got %s", root, resolved.CentralHome)
	}
}

func TestCanonicalType(t *testing.T) {
	if got := CanonicalType("decision"); got != "decision" {
		t.Errorf("expected decision, got %s", got)
	}
	if got := CanonicalType("bogus"); got != "note" {
		t.Errorf("expected note fallback, got %s", got)
	}
}

func TestDirForType(t *testing.T) {
	if got := DirForType("backlog"); got != "backlogs" {
		t.Errorf("expected backlogs, got %s", got)
	}
	if got := DirForType("unknown"); got != "other" {
		t.Errorf("expected other fallback, got %s", got)
	}
}
