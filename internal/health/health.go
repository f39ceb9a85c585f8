// Package health implements the Health/Fingerprint component: a
// deterministic digest of a Central Home's contents and an operator-facing
// diagnostics snapshot, per spec.md §4.6.
package health

import (
	"fmt"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"

	"kofnote/internal/records"
	"kofnote/internal/searchindex"
	"kofnote/internal/settings"
	"kofnote/internal/workspace"
)

// Fingerprint is the result of get_fingerprint: a stable token derived from
// the home path, the latest record/log timestamps, the record/log counts,
// and a summary of the first twelve records and logs.
type Fingerprint struct {
	Token          string `json:"token"`
	RecordsCount   int    `json:"records_count"`
	LogsCount      int    `json:"logs_count"`
	LatestRecordAt string `json:"latest_record_at"`
	LatestLogAt    string `json:"latest_log_at"`
}

// summaryLimit bounds how many records/logs feed the fingerprint hash, per
// spec.md §4.6 ("the first twelve records/logs' summary fields").
const summaryLimit = 12

// GetFingerprint returns a stable 16-hex-digit token derived from the home
// path, latest record/log timestamps, record/log counts, and the first
// twelve records'/logs' summary fields. Records are assumed sorted newest
// first (records.Store.List's contract), so "first twelve" means newest
// twelve.
func GetFingerprint(home string, recs []records.Record, logs []records.LogEntry) Fingerprint {
	latestRecordAt := ""
	if len(recs) > 0 {
		latestRecordAt = recs[0].CreatedAt
	}
	latestLogAt := ""
	if len(logs) > 0 {
		latestLogAt = logs[0].Timestamp
	}

	h := fnv.New64a()
	writeString(h, home)
	writeString(h, latestRecordAt)
	writeString(h, latestLogAt)
	writeInt(h, len(recs))
	writeInt(h, len(logs))

	for i, r := range recs {
		if i >= summaryLimit {
			break
		}
		writeString(h, r.Title)
		writeString(h, r.CreatedAt)
		writeString(h, r.Type)
	}
	for i, l := range logs {
		if i >= summaryLimit {
			break
		}
		writeString(h, l.TaskIntent)
		writeString(h, l.Timestamp)
	}

	return Fingerprint{
		Token:          fmt.Sprintf("%016x", h.Sum64()),
		RecordsCount:   len(recs),
		LogsCount:      len(logs),
		LatestRecordAt: latestRecordAt,
		LatestLogAt:    latestLogAt,
	}
}

func writeString(h hash.Hash64, s string) {
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(s))
}

func writeInt(h hash.Hash64, n int) {
	writeString(h, fmt.Sprintf("%d", n))
}

// Diagnostics is the result of get_health: counts, index presence, and
// credential-presence flags.
//
// The original source checks OS-keychain entries for each credentialed
// provider (spec.md §1 treats keychain storage as an external collaborator
// this system does not implement); here presence is read from the same
// environment variables the Provider Façade itself resolves hosted API
// keys from, which is the in-process equivalent signal available to this
// system.
type Diagnostics struct {
	CentralHome    string `json:"central_home"`
	RecordsCount   int    `json:"records_count"`
	LogsCount      int    `json:"logs_count"`
	IndexPath      string `json:"index_path"`
	IndexExists    bool   `json:"index_exists"`
	IndexedRecords int    `json:"indexed_records"`
	LatestRecordAt string `json:"latest_record_at"`
	LatestLogAt    string `json:"latest_log_at"`
	HasOpenAIKey   bool   `json:"has_openai_api_key"`
	HasGeminiKey   bool   `json:"has_gemini_api_key"`
	HasClaudeKey   bool   `json:"has_claude_api_key"`
	ProfileCount   int    `json:"profile_count"`
}

// GetHealth assembles a diagnostics snapshot for home. index may be nil
// (treated as absent/zero-indexed).
func GetHealth(home string, recs []records.Record, logs []records.LogEntry, index *searchindex.Index, cfg settings.Settings) Diagnostics {
	indexPath := filepath.Join(workspace.AgenticDir(home), "search.db")
	indexExists := false
	indexedRecords := 0
	if _, err := os.Stat(indexPath); err == nil {
		indexExists = true
	}
	if indexExists && index != nil {
		if n, err := index.Count(); err == nil {
			indexedRecords = n
		}
	}

	latestRecordAt := ""
	if len(recs) > 0 {
		latestRecordAt = recs[0].CreatedAt
	}
	latestLogAt := ""
	if len(logs) > 0 {
		latestLogAt = logs[0].Timestamp
	}

	return Diagnostics{
		CentralHome:    home,
		RecordsCount:   len(recs),
		LogsCount:      len(logs),
		IndexPath:      indexPath,
		IndexExists:    indexExists,
		IndexedRecords: indexedRecords,
		LatestRecordAt: latestRecordAt,
		LatestLogAt:    latestLogAt,
		HasOpenAIKey:   os.Getenv("OPENAI_API_KEY") != "",
		HasGeminiKey:   os.Getenv("GEMINI_API_KEY") != "",
		HasClaudeKey:   os.Getenv("ANTHROPIC_API_KEY") != "",
		ProfileCount:   len(cfg.Profiles),
	}
}
