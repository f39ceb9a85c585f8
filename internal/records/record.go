// Package records implements the dual-file Record Store: every record is
// persisted as a structured JSON file and a rendered markdown twin sharing
// the same filename stem under records/{type-dir}/.
package records

import (
	"strings"
	"time"
	"unicode"
)

// Record is the structured shape persisted to the JSON half of a record
// pair, mirrored into the markdown rendering and the search index.
type Record struct {
	Type               string   `json:"type"`
	Title              string   `json:"title"`
	CreatedAt          string   `json:"created_at"`
	RemotePageID       string   `json:"remote_page_id,omitempty"`
	RemoteURL          string   `json:"remote_url,omitempty"`
	SourceText         string   `json:"source_text"`
	FinalBody          string   `json:"final_body"`
	Tags               []string `json:"tags"`
	Date               string   `json:"date,omitempty"`
	SyncStatus         string   `json:"sync_status"`
	SyncError          string   `json:"sync_error,omitempty"`
	LastSyncedAt       string   `json:"last_synced_at,omitempty"`
	LastRemoteEditTime string   `json:"last_remote_edit_time,omitempty"`
	LastSyncedHash     string   `json:"last_synced_hash,omitempty"`

	// JSONPath and MDPath are populated on load/write, not serialized.
	JSONPath string `json:"-"`
	MDPath   string `json:"-"`
}

// LogEntry is one append-only event read back from .agentic/logs/*.json.
type LogEntry struct {
	Timestamp  string
	EventID    string
	TaskIntent string
	Status     string
	Title      string
	Data       any
	Raw        any
	JSONPath   string
}

// recordTypeEmoji mirrors the fixed record_type -> glyph mapping used when
// rendering the markdown header.
var recordTypeEmoji = map[string]string{
	"decision": "⚖️",
	"worklog":  "\U0001F4DD",
	"idea":     "\U0001F4A1",
	"backlog":  "\U0001F4CB",
}

const defaultEmoji = "\U0001F4C4"

// maxSlugLength is the truncation point for a generated filename slug.
const maxSlugLength = 48

// Slugify lowercases title, keeps alphanumerics plus '-' and '_', collapses
// runs of separators, trims leading/trailing hyphens, truncates to
// maxSlugLength code points, and falls back to "untitled" when empty.
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}

	collapsed := collapseRuns(b.String())
	trimmed := strings.Trim(collapsed, "-")

	runes := []rune(trimmed)
	if len(runes) > maxSlugLength {
		runes = runes[:maxSlugLength]
	}
	trimmed = strings.Trim(string(runes), "-")

	if trimmed == "" {
		return "untitled"
	}
	return trimmed
}

func collapseRuns(s string) string {
	var b strings.Builder
	var prev rune
	first := true
	for _, r := range s {
		if !first && isSeparator(r) && isSeparator(prev) {
			continue
		}
		b.WriteRune(r)
		prev = r
		first = false
	}
	return b.String()
}

func isSeparator(r rune) bool {
	return r == '-' || r == '_'
}

// Filename builds the "{yyyymmdd_hhmmss}_{type}_{slug}" stem (without
// extension) from a creation time, canonical type, and title.
func Filename(createdAt time.Time, recordType, title string) string {
	stamp := createdAt.UTC().Format("20060102_150405")
	return stamp + "_" + recordType + "_" + Slugify(title)
}

// RenderMarkdown produces the human-readable twin of a record: a header
// line with a type-specific emoji, metadata lines, the final body between
// horizontal rules, and a quoted "Original Input" section.
func RenderMarkdown(r Record) string {
	emoji, ok := recordTypeEmoji[r.Type]
	if !ok {
		emoji = defaultEmoji
	}

	var lines []string
	lines = append(lines,
		"# "+emoji+" "+r.Title,
		"",
		"**Type:** "+strings.ToUpper(r.Type),
		"**Created:** "+r.CreatedAt,
	)

	if r.Date != "" {
		lines = append(lines, "**Date:** "+r.Date)
	}
	if len(r.Tags) > 0 {
		lines = append(lines, "**Tags:** "+strings.Join(r.Tags, ", "))
	}
	if r.RemoteURL != "" {
		lines = append(lines, "**Notion:** "+r.RemoteURL)
	}

	lines = append(lines,
		"",
		"---",
		"",
		r.FinalBody,
		"",
		"---",
		"",
		"## Original Input",
		"",
		"> "+r.SourceText,
	)

	return strings.Join(lines, "\n")
}
