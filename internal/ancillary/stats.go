// Package ancillary implements the out-of-core reductions named in
// spec.md §1/§2 (dashboard stats, markdown report, AI analysis): pure
// functions over already-loaded records and log entries, carrying no
// business logic of their own beyond tallying and rendering.
package ancillary

import (
	"sort"
	"strings"
	"time"

	"kofnote/internal/records"
)

// TagCount is one tag's occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// DailyCount is the record+log count for one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardStats is the full reduction over a workspace's records/logs,
// grounded on original_source's compute_dashboard_stats.
type DashboardStats struct {
	TotalRecords      int            `json:"total_records"`
	TotalLogs         int            `json:"total_logs"`
	TypeCounts        map[string]int `json:"type_counts"`
	TopTags           []TagCount     `json:"top_tags"`
	RecentDailyCounts []DailyCount   `json:"recent_daily_counts"`
	PendingSyncCount  int            `json:"pending_sync_count"`
}

// pendingSyncStatuses are sync_status values counted as "not settled".
var pendingSyncStatuses = map[string]bool{
	"PENDING":  true,
	"FAILED":   true,
	"CONFLICT": true,
}

// topTagsLimit bounds how many tags ComputeDashboardStats reports.
const topTagsLimit = 12

// recentDailyWindow is the number of trailing days (inclusive of today)
// RecentDailyCounts covers.
const recentDailyWindow = 7

// ComputeDashboardStats tallies per-type counts, the top dozen tags by
// frequency (ties broken alphabetically), a pending-sync count, and a
// 7-day daily activity series over both records and logs.
func ComputeDashboardStats(recs []records.Record, logs []records.LogEntry, now time.Time) DashboardStats {
	typeCounts := map[string]int{}
	tagCounts := map[string]int{}
	pending := 0

	for _, r := range recs {
		typeCounts[r.Type]++
		for _, tag := range r.Tags {
			clean := strings.TrimSpace(tag)
			if clean != "" {
				tagCounts[clean]++
			}
		}
		if pendingSyncStatuses[r.SyncStatus] {
			pending++
		}
	}

	topTags := make([]TagCount, 0, len(tagCounts))
	for tag, count := range tagCounts {
		topTags = append(topTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(topTags, func(i, j int) bool {
		if topTags[i].Count != topTags[j].Count {
			return topTags[i].Count > topTags[j].Count
		}
		return topTags[i].Tag < topTags[j].Tag
	})
	if len(topTags) > topTagsLimit {
		topTags = topTags[:topTagsLimit]
	}

	today := now.UTC().Truncate(24 * time.Hour)
	orderedDays := make([]string, 0, recentDailyWindow)
	dailyMap := map[string]int{}
	for offset := recentDailyWindow - 1; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset).Format("2006-01-02")
		dailyMap[day] = 0
		orderedDays = append(orderedDays, day)
	}

	for _, r := range recs {
		if day := extractDay(r.CreatedAt); day != "" {
			if _, ok := dailyMap[day]; ok {
				dailyMap[day]++
			}
		}
	}
	for _, l := range logs {
		if day := extractDay(l.Timestamp); day != "" {
			if _, ok := dailyMap[day]; ok {
				dailyMap[day]++
			}
		}
	}

	recentDaily := make([]DailyCount, 0, len(orderedDays))
	for _, day := range orderedDays {
		recentDaily = append(recentDaily, DailyCount{Date: day, Count: dailyMap[day]})
	}

	return DashboardStats{
		TotalRecords:      len(recs),
		TotalLogs:         len(logs),
		TypeCounts:        typeCounts,
		TopTags:           topTags,
		RecentDailyCounts: recentDaily,
		PendingSyncCount:  pending,
	}
}

// extractDay returns the first ten characters (YYYY-MM-DD) of an RFC3339-ish
// timestamp, or "" if too short.
func extractDay(timestamp string) string {
	if len(timestamp) < 10 {
		return ""
	}
	return timestamp[:10]
}
