package ancillary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kofnote/internal/records"
)

// BuildReport renders a markdown status report from already-computed stats
// plus those of `recent` created within the trailing `days` window (today
// included; days <= 0 keeps every record passed in), in the
// teacher's string-builder rendering idiom (internal/export/markdown.go's
// ExportDebate), generalized from a debate transcript to a workspace
// snapshot.
func BuildReport(title, centralHome string, stats DashboardStats, recent []records.Record, days int, now time.Time) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n", now.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Central Home: %s\n\n", centralHome))

	b.WriteString("## KPI\n\n")
	b.WriteString(fmt.Sprintf("- Total records: %d\n", stats.TotalRecords))
	b.WriteString(fmt.Sprintf("- Total logs: %d\n", stats.TotalLogs))
	b.WriteString(fmt.Sprintf("- Pending sync: %d\n\n", stats.PendingSyncCount))

	b.WriteString("## Type Distribution\n\n")
	types := make([]string, 0, len(stats.TypeCounts))
	for t := range stats.TypeCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		b.WriteString(fmt.Sprintf("- %s: %d\n", t, stats.TypeCounts[t]))
	}
	b.WriteString("\n")

	b.WriteString("## Top Tags\n\n")
	if len(stats.TopTags) == 0 {
		b.WriteString("- (none)\n")
	} else {
		for _, tc := range stats.TopTags {
			b.WriteString(fmt.Sprintf("- %s (%d)\n", tc.Tag, tc.Count))
		}
	}
	b.WriteString("\n")

	cutoff := ""
	if days > 0 {
		cutoff = now.UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	}
	var inWindow []records.Record
	for _, r := range recent {
		if cutoff == "" || extractDay(r.CreatedAt) >= cutoff {
			inWindow = append(inWindow, r)
		}
	}

	b.WriteString(fmt.Sprintf("## Recent Records (last %d days)\n\n", days))
	if len(inWindow) == 0 {
		b.WriteString("- (none)\n")
	} else {
		for _, r := range inWindow {
			b.WriteString(fmt.Sprintf("- [%s] (%s) %s\n", r.CreatedAt, r.Type, r.Title))
		}
	}

	return b.String()
}

// WriteReport writes a rendered report under baseDir/assets/reports, per
// spec.md §6.1's "assets/reports/*.md" layout, returning the path written.
func WriteReport(baseDir, content string, now time.Time) (string, error) {
	dir := filepath.Join(baseDir, "assets", "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	filename := fmt.Sprintf("%s_kof-report.md", now.UTC().Format("20060102_150405"))
	path := filepath.Join(dir, filename)
	if err := records.WriteAtomic(path, []byte(content)); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
