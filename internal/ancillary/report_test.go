package ancillary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kofnote/internal/records"
)

func TestBuildReportContainsSections(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	stats := ComputeDashboardStats(nil, nil, now)
	recent := []records.Record{{Type: "idea", Title: "Ship it", CreatedAt: "2026-07-29T09:00:00Z"}}

	content := BuildReport("Weekly Report", "/home/ws", stats, recent, 7, now)

	for _, want := range []string{"# Weekly Report", "## KPI", "## Type Distribution", "## Top Tags", "## Recent Records (last 7 days)", "Ship it"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected report to contain %q", want)
		}
	}
}

func TestWriteReportCreatesFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	path, err := WriteReport(dir, "# hello\n", now)
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "assets", "reports") {
		t.Errorf("expected report under assets/reports, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# hello\n" {
		t.Errorf("unexpected report contents: %v %q", err, data)
	}
}
