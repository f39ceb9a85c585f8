package ancillary

import (
	"fmt"
	"strings"
	"time"

	"kofnote/internal/records"
)

// LocalAnalysis renders a deterministic markdown summary over a workspace's
// records/logs plus an optional user prompt focus, grounded on
// original_source's run_local_analysis. The hosted-model variant
// (run_openai_analysis in the original) is the "AI-analysis summarization
// command" spec.md §1 explicitly treats as an external collaborator; this
// local, provider-free reduction is the only variant implemented here.
func LocalAnalysis(prompt string, recs []records.Record, logs []records.LogEntry, now time.Time) string {
	stats := ComputeDashboardStats(recs, logs, now)

	dominantType := "-"
	best := -1
	for t, count := range stats.TypeCounts {
		if count > best || (count == best && t < dominantType) {
			dominantType, best = t, count
		}
	}

	var b strings.Builder
	b.WriteString("# KOF Local Analysis\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- Total records: %d\n", stats.TotalRecords))
	b.WriteString(fmt.Sprintf("- Total logs: %d\n", stats.TotalLogs))
	b.WriteString(fmt.Sprintf("- Pending sync records: %d\n", stats.PendingSyncCount))
	b.WriteString(fmt.Sprintf("- Dominant type: %s\n\n", dominantType))

	b.WriteString("## Top Tags\n\n")
	if len(stats.TopTags) == 0 {
		b.WriteString("- (no tags yet)\n")
	} else {
		limit := 8
		if len(stats.TopTags) < limit {
			limit = len(stats.TopTags)
		}
		for _, tc := range stats.TopTags[:limit] {
			b.WriteString(fmt.Sprintf("- %s (%d)\n", tc.Tag, tc.Count))
		}
	}
	b.WriteString("\n")

	b.WriteString("## Recent Focus\n\n")
	limit := 6
	if len(recs) < limit {
		limit = len(recs)
	}
	for _, r := range recs[:limit] {
		b.WriteString(fmt.Sprintf("- [%s] (%s) %s\n", r.CreatedAt, r.Type, r.Title))
	}
	b.WriteString("\n")

	b.WriteString("## Risks\n\n")
	if stats.PendingSyncCount > 0 {
		b.WriteString("- Pending sync records may diverge from the remote until re-synced.\n")
	} else {
		b.WriteString("- No immediate sync risk detected.\n")
	}
	b.WriteString("- If many backlogs have no date/tag, prioritization quality may drop.\n\n")

	b.WriteString("## Next 7 Days Action Plan\n\n")
	b.WriteString("1. Consolidate top recurring tags into 2-3 execution themes.\n")
	b.WriteString("2. Convert high-value backlog items to scheduled worklogs.\n")
	b.WriteString("3. Run weekly review and archive stale notes.\n")

	if strings.TrimSpace(prompt) != "" {
		b.WriteString("\n## User Prompt Focus\n\n")
		b.WriteString(strings.TrimSpace(prompt))
		b.WriteString("\n")
	}

	return b.String()
}
