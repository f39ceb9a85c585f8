package searchindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kofnote/internal/records"
	"kofnote/internal/workspace"
)

const dbFileName = "search.db"

// Index is the Search Catalog rooted at a Central Home.
type Index struct {
	Home string
}

// New returns an Index handle; it performs no I/O until a method is called.
func New(home string) *Index {
	return &Index{Home: home}
}

func (x *Index) path() string {
	return filepath.Join(workspace.AgenticDir(x.Home), dbFileName)
}

func (x *Index) exists() bool {
	_, err := os.Stat(x.path())
	return err == nil
}

func (x *Index) open() (*sql.DB, error) {
	path := x.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Rebuild wipes and repopulates the FTS table from the given records inside
// a single transaction, then writes updatedAt/recordCount meta rows.
// Returns the number of records indexed.
func (x *Index) Rebuild(recs []records.Record) (int, error) {
	db, err := x.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`DELETE FROM records_fts`); err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO records_fts (
		structured_path, rendered_path, record_type, title, final_body,
		source_text, tags, created_at, date, sync_status,
		remote_page_id, remote_url, sync_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	for _, r := range recs {
		if _, err := stmt.Exec(
			r.JSONPath, r.MDPath, r.Type, r.Title, r.FinalBody,
			r.SourceText, strings.Join(r.Tags, ","), r.CreatedAt, r.Date, r.SyncStatus,
			r.RemotePageID, r.RemoteURL, r.SyncError,
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, err
		}
	}
	stmt.Close()

	if err := upsertMeta(tx, "updatedAt", time.Now().UTC().Format(time.RFC3339)); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := upsertMeta(tx, "recordCount", strconv.Itoa(len(recs))); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func upsertMeta(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO records_index_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// UpsertRecord implements records.Indexer: a no-op if the database file does
// not exist yet, otherwise a delete-then-insert keyed by structured_path.
func (x *Index) UpsertRecord(r records.Record) error {
	if !x.exists() {
		return nil
	}
	db, err := x.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`DELETE FROM records_fts WHERE structured_path = ?`, r.JSONPath); err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO records_fts (
		structured_path, rendered_path, record_type, title, final_body,
		source_text, tags, created_at, date, sync_status,
		remote_page_id, remote_url, sync_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JSONPath, r.MDPath, r.Type, r.Title, r.FinalBody,
		r.SourceText, strings.Join(r.Tags, ","), r.CreatedAt, r.Date, r.SyncStatus,
		r.RemotePageID, r.RemoteURL, r.SyncError,
	)
	return err
}

// DeleteRecord implements records.Indexer: a no-op if the database file does
// not exist yet.
func (x *Index) DeleteRecord(jsonPath string) error {
	if !x.exists() {
		return nil
	}
	db, err := x.open()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`DELETE FROM records_fts WHERE structured_path = ?`, jsonPath)
	return err
}

// Count returns the number of rows currently in the FTS table.
func (x *Index) Count() (int, error) {
	db, err := x.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM records_fts`).Scan(&count)
	return count, err
}

// SearchParams carries the optional filters and pagination for Search.
type SearchParams struct {
	Query      string
	RecordType string
	DateFrom   string
	DateTo     string
	Limit      int
	Offset     int
}

// SearchResult reports which path served a query (Indexed=true for FTS,
// false for the filesystem/in-memory paths) alongside the matched records,
// the total count before pagination, snippet text keyed by structured_path,
// and elapsed wall time.
type SearchResult struct {
	Records  []records.Record
	Total    int
	Snippets map[string]string
	Indexed  bool
	TookMs   int64
}

// Search implements the empty-query filesystem path, the FTS path, and the
// in-memory substring fallback on FTS failure, per clamped limit/offset.
func (x *Index) Search(p SearchParams) (SearchResult, error) {
	start := time.Now()
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	if strings.TrimSpace(p.Query) == "" {
		result, err := x.searchFilesystem(p)
		result.Indexed = false
		result.TookMs = time.Since(start).Milliseconds()
		return result, err
	}

	result, err := x.searchFTS(p)
	if err == nil {
		result.Indexed = true
		result.TookMs = time.Since(start).Milliseconds()
		return result, nil
	}

	result, err = x.searchMemory(p)
	result.Indexed = false
	result.TookMs = time.Since(start).Milliseconds()
	return result, err
}

func (x *Index) searchFilesystem(p SearchParams) (SearchResult, error) {
	store := records.Open(x.Home, nil)
	all, err := store.List()
	if err != nil {
		return SearchResult{}, err
	}
	filtered := filterRecords(all, p)
	total := len(filtered)
	return SearchResult{Records: paginate(filtered, p.Limit, p.Offset), Total: total, Snippets: map[string]string{}}, nil
}

func (x *Index) searchMemory(p SearchParams) (SearchResult, error) {
	store := records.Open(x.Home, nil)
	all, err := store.List()
	if err != nil {
		return SearchResult{}, err
	}
	query := strings.ToLower(p.Query)
	var matched []records.Record
	for _, r := range all {
		haystack := strings.ToLower(r.Title + " " + r.FinalBody + " " + r.SourceText + " " + strings.Join(r.Tags, ","))
		if strings.Contains(haystack, query) {
			matched = append(matched, r)
		}
	}
	matched = filterRecords(matched, p)
	total := len(matched)
	return SearchResult{Records: paginate(matched, p.Limit, p.Offset), Total: total, Snippets: map[string]string{}}, nil
}

func filterRecords(in []records.Record, p SearchParams) []records.Record {
	out := in[:0:0]
	for _, r := range in {
		if p.RecordType != "" && r.Type != p.RecordType {
			continue
		}
		if p.DateFrom != "" && dateSubstr(r.CreatedAt) < p.DateFrom {
			continue
		}
		if p.DateTo != "" && dateSubstr(r.CreatedAt) > p.DateTo {
			continue
		}
		out = append(out, r)
	}
	return out
}

func dateSubstr(createdAt string) string {
	if len(createdAt) < 10 {
		return createdAt
	}
	return createdAt[:10]
}

func paginate(in []records.Record, limit, offset int) []records.Record {
	if offset >= len(in) {
		return []records.Record{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func (x *Index) searchFTS(p SearchParams) (SearchResult, error) {
	db, err := x.open()
	if err != nil {
		return SearchResult{}, err
	}
	defer db.Close()

	where := []string{"records_fts MATCH ?"}
	args := []any{p.Query}

	if p.RecordType != "" {
		where = append(where, "record_type = ?")
		args = append(args, p.RecordType)
	}
	if p.DateFrom != "" {
		where = append(where, "substr(created_at, 1, 10) >= ?")
		args = append(args, p.DateFrom)
	}
	if p.DateTo != "" {
		where = append(where, "substr(created_at, 1, 10) <= ?")
		args = append(args, p.DateTo)
	}
	whereSQL := "WHERE " + strings.Join(where, " AND ")

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM records_fts %s", whereSQL)
	if err := db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return SearchResult{}, err
	}

	selectSQL := fmt.Sprintf(`SELECT
		structured_path, rendered_path, record_type, title, final_body,
		source_text, tags, created_at, date, sync_status,
		remote_page_id, remote_url, sync_error,
		snippet(records_fts, 2, '<mark>', '</mark>', '...', 32) AS snippet
		FROM records_fts
		%s
		ORDER BY bm25(records_fts), created_at DESC
		LIMIT ? OFFSET ?`, whereSQL)

	rows, err := db.Query(selectSQL, append(append([]any{}, args...), p.Limit, p.Offset)...)
	if err != nil {
		return SearchResult{}, err
	}
	defer rows.Close()

	var matched []records.Record
	snippets := map[string]string{}
	for rows.Next() {
		var r records.Record
		var tagsRaw, snippetText string
		if err := rows.Scan(
			&r.JSONPath, &r.MDPath, &r.Type, &r.Title, &r.FinalBody,
			&r.SourceText, &tagsRaw, &r.CreatedAt, &r.Date, &r.SyncStatus,
			&r.RemotePageID, &r.RemoteURL, &r.SyncError, &snippetText,
		); err != nil {
			return SearchResult{}, err
		}
		r.Tags = parseTags(tagsRaw)
		if strings.TrimSpace(snippetText) != "" {
			snippets[r.JSONPath] = snippetText
		}
		matched = append(matched, r)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, err
	}

	return SearchResult{Records: matched, Total: total, Snippets: snippets}, nil
}

func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
