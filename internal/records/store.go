package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kofnote/internal/workspace"
)

// Indexer is the subset of the search index's behavior the Record Store
// needs in order to mirror writes/deletes. A nil Indexer is valid: mirroring
// is skipped, matching the "if it exists" clause of the upsert contract.
type Indexer interface {
	UpsertRecord(r Record) error
	DeleteRecord(jsonPath string) error
}

// Store is the Record Store: it persists record pairs under a Central Home
// and mirrors writes into an optional Indexer.
type Store struct {
	Home    string
	Indexer Indexer
}

// Open returns a Store rooted at an already-resolved Central Home.
func Open(home string, indexer Indexer) *Store {
	return &Store{Home: home, Indexer: indexer}
}

// WriteAtomic materializes data to path.tmp then renames over path,
// creating parent directories on demand.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// List returns every record under home/records/{type-dir}, newest
// created_at first. Files that fail to read or parse are skipped.
func (s *Store) List() ([]Record, error) {
	var out []Record
	root := filepath.Join(s.Home, "records")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return out, nil
	}

	for _, entry := range workspace.RecordTypeDirs {
		dir := filepath.Join(root, entry.Dir)
		infos, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, info := range infos {
			if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, info.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var r Record
			if err := json.Unmarshal(data, &r); err != nil {
				continue
			}
			if r.Type == "" {
				r.Type = entry.Type
			}
			r.Type = workspace.CanonicalType(r.Type)
			if r.Title == "" {
				r.Title = "Untitled"
			}
			if r.CreatedAt == "" {
				if stat, err := os.Stat(path); err == nil {
					r.CreatedAt = stat.ModTime().UTC().Format(time.RFC3339)
				}
			}
			if r.SyncStatus == "" {
				r.SyncStatus = "SUCCESS"
			}
			r.JSONPath = path
			r.MDPath = strings.TrimSuffix(path, ".json") + ".md"
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// LoadLogs returns every append-only log entry under
// home/.agentic/logs/*.json, newest timestamp first. Entries that fail to
// parse are skipped.
func (s *Store) LoadLogs() ([]LogEntry, error) {
	var out []LogEntry
	dir := workspace.LogsDir(s.Home)
	infos, err := os.ReadDir(dir)
	if err != nil {
		return out, nil
	}

	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, info.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}

		meta, _ := raw["meta"].(map[string]any)
		task, _ := raw["task"].(map[string]any)
		dataField := raw["data"]

		entry := LogEntry{Raw: raw, Data: dataField, JSONPath: path}
		if meta != nil {
			entry.Timestamp, _ = meta["timestamp"].(string)
			entry.EventID, _ = meta["event_id"].(string)
		}
		if entry.Timestamp == "" {
			if stat, err := os.Stat(path); err == nil {
				entry.Timestamp = stat.ModTime().UTC().Format(time.RFC3339)
			}
		}
		if task != nil {
			entry.TaskIntent, _ = task["intent"].(string)
			entry.Status, _ = task["status"].(string)
		}
		if dataMap, ok := dataField.(map[string]any); ok {
			entry.Title, _ = dataMap["title"].(string)
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

// Upsert creates or updates a record pair. When priorPath names an existing
// JSON file, its filename stem is reused; otherwise (or if the stem no
// longer exists on disk) a new stem is generated from the current title and
// creation time. If the resolved target differs from priorPath, the prior
// pair and its index row are removed after the new pair is written.
func (s *Store) Upsert(payload Record, priorPath string) (Record, error) {
	r := payload
	if r.Title == "" {
		r.Title = "Untitled"
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if r.SyncStatus == "" {
		r.SyncStatus = "SUCCESS"
	}
	r.Type = workspace.CanonicalType(r.Type)

	dir := workspace.RecordsDir(s.Home, r.Type)
	createdAt, err := parseCreatedAt(r.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	stem := ""
	if priorPath != "" {
		if _, err := os.Stat(priorPath); err == nil {
			stem = strings.TrimSuffix(filepath.Base(priorPath), ".json")
		}
	}
	if stem == "" {
		stem = uniqueStem(dir, Filename(createdAt, r.Type, r.Title))
	}

	jsonPath := filepath.Join(dir, stem+".json")
	mdPath := filepath.Join(dir, stem+".md")

	persisted, err := json.MarshalIndent(toPersisted(r), "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("marshal record: %w", err)
	}
	if err := WriteAtomic(jsonPath, persisted); err != nil {
		return Record{}, fmt.Errorf("write record json: %w", err)
	}
	if err := WriteAtomic(mdPath, []byte(RenderMarkdown(r))); err != nil {
		return Record{}, fmt.Errorf("write record markdown: %w", err)
	}

	r.JSONPath = jsonPath
	r.MDPath = mdPath

	if s.Indexer != nil {
		_ = s.Indexer.UpsertRecord(r)
	}

	if priorPath != "" && priorPath != jsonPath {
		priorMD := strings.TrimSuffix(priorPath, ".json") + ".md"
		os.Remove(priorPath)
		os.Remove(priorMD)
		if s.Indexer != nil {
			_ = s.Indexer.DeleteRecord(priorPath)
		}
	}

	return r, nil
}

// Delete removes both halves of a record pair and its index row. Each of
// the three removals is best-effort and independent of the others.
func (s *Store) Delete(jsonPath string) error {
	mdPath := strings.TrimSuffix(jsonPath, ".json") + ".md"
	os.Remove(jsonPath)
	os.Remove(mdPath)
	if s.Indexer != nil {
		_ = s.Indexer.DeleteRecord(jsonPath)
	}
	return nil
}

// uniqueStem returns stem, or stem_1, stem_2, ... whichever has no existing
// JSON file in dir, so two records created in the same second (or pulled
// from a remote batch) never collide.
func uniqueStem(dir, stem string) string {
	candidate := stem
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, candidate+".json")); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", stem, i)
	}
}

func parseCreatedAt(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", value)
}

// persisted is the exact on-disk JSON shape: it omits JSONPath/MDPath
// (runtime-only fields already excluded via json:"-") and always carries
// tags as an array rather than null.
type persisted struct {
	Type               string   `json:"type"`
	Title              string   `json:"title"`
	CreatedAt          string   `json:"created_at"`
	RemotePageID       string   `json:"remote_page_id"`
	RemoteURL          string   `json:"remote_url"`
	SourceText         string   `json:"source_text"`
	FinalBody          string   `json:"final_body"`
	Tags               []string `json:"tags"`
	Date               string   `json:"date"`
	SyncStatus         string   `json:"sync_status"`
	SyncError          string   `json:"sync_error"`
	LastSyncedAt       string   `json:"last_synced_at"`
	LastRemoteEditTime string   `json:"last_remote_edit_time"`
	LastSyncedHash     string   `json:"last_synced_hash"`
}

func toPersisted(r Record) persisted {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return persisted{
		Type:               r.Type,
		Title:              r.Title,
		CreatedAt:          r.CreatedAt,
		RemotePageID:       r.RemotePageID,
		RemoteURL:          r.RemoteURL,
		SourceText:         r.SourceText,
		FinalBody:          r.FinalBody,
		Tags:               tags,
		Date:               r.Date,
		SyncStatus:         r.SyncStatus,
		SyncError:          r.SyncError,
		LastSyncedAt:       r.LastSyncedAt,
		LastRemoteEditTime: r.LastRemoteEditTime,
		LastSyncedHash:     r.LastSyncedHash,
	}
}
