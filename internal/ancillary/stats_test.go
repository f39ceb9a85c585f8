package ancillary

import (
	"testing"
	"time"

	"kofnote/internal/records"
)

func TestComputeDashboardStats(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	recs := []records.Record{
		{Type: "decision", Title: "A", CreatedAt: "2026-07-29T10:00:00Z", Tags: []string{"alpha", "beta"}, SyncStatus: "SUCCESS"},
		{Type: "decision", Title: "B", CreatedAt: "2026-07-28T10:00:00Z", Tags: []string{"alpha"}, SyncStatus: "FAILED"},
		{Type: "worklog", Title: "C", CreatedAt: "2026-07-01T10:00:00Z", Tags: nil, SyncStatus: "PENDING"},
	}
	logs := []records.LogEntry{{Timestamp: "2026-07-29T11:00:00Z"}}

	stats := ComputeDashboardStats(recs, logs, now)

	if stats.TotalRecords != 3 || stats.TotalLogs != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.TypeCounts["decision"] != 2 || stats.TypeCounts["worklog"] != 1 {
		t.Errorf("unexpected type counts: %+v", stats.TypeCounts)
	}
	if stats.PendingSyncCount != 2 {
		t.Errorf("expected 2 pending-sync records, got %d", stats.PendingSyncCount)
	}
	if len(stats.TopTags) != 2 || stats.TopTags[0].Tag != "alpha" || stats.TopTags[0].Count != 2 {
		t.Errorf("expected alpha first with count 2, got %+v", stats.TopTags)
	}
	if len(stats.RecentDailyCounts) != 7 {
		t.Fatalf("expected 7-day window, got %d", len(stats.RecentDailyCounts))
	}
	last := stats.RecentDailyCounts[len(stats.RecentDailyCounts)-1]
	if last.Date != "2026-07-29" || last.Count != 2 {
		t.Errorf("expected today to tally record+log, got %+v", last)
	}
}

func TestComputeDashboardStatsEmpty(t *testing.T) {
	stats := ComputeDashboardStats(nil, nil, time.Now())
	if stats.TotalRecords != 0 || len(stats.TopTags) != 0 {
		t.Errorf("expected zero-value stats, got %+v", stats)
	}
	if len(stats.RecentDailyCounts) != 7 {
		t.Errorf("expected 7-day window even when empty, got %d", len(stats.RecentDailyCounts))
	}
}
