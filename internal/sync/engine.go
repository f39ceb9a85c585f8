package sync

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"kofnote/internal/records"
)

// pullFetchConcurrency bounds how many remote pages (each requiring its own
// block-children pagination) are translated to RemoteRecord concurrently
// during a batch pull.
const pullFetchConcurrency = 8

// Engine is the Bidirectional Sync Engine bound to a Central Home's Record
// Store. Now is injectable so tests can fix the synced-at timestamp.
type Engine struct {
	Store *records.Store
	Now   clock
}

// NewEngine wires an Engine against a resolved Record Store using the real
// clock.
func NewEngine(store *records.Store) *Engine {
	return &Engine{Store: store, Now: defaultClock}
}

func (e *Engine) now() clock {
	if e.Now != nil {
		return e.Now
	}
	return defaultClock
}

func (e *Engine) loadByPath(jsonPath string) (records.Record, error) {
	all, err := e.Store.List()
	if err != nil {
		return records.Record{}, err
	}
	for _, r := range all {
		if r.JSONPath == jsonPath {
			return r, nil
		}
	}
	return records.Record{}, fmt.Errorf("no record found at %s", jsonPath)
}

func (e *Engine) persist(r records.Record) (records.Record, error) {
	return e.Store.Upsert(r, r.JSONPath)
}

func resultFrom(r records.Record, action string, conflict bool) Result {
	return Result{
		JSONPath:   r.JSONPath,
		PageID:     r.RemotePageID,
		PageURL:    r.RemoteURL,
		SyncStatus: r.SyncStatus,
		Error:      r.SyncError,
		Action:     action,
		Conflict:   conflict,
	}
}

const conflictMessage = "Conflict detected: local and remote both changed since last sync."

// pushToRemote performs the actual upsert-by-page-id HTTP sequence
// (PATCH-then-fall-through-to-POST) and stamps the record synced or
// failed, persisting either outcome.
func (e *Engine) pushToRemote(ctx context.Context, client *Client, databaseID string, r records.Record, action string) (Result, error) {
	updated, err := e.upsertRemote(ctx, client, databaseID, r)
	if err != nil {
		r.SyncStatus = "FAILED"
		r.SyncError = err.Error()
		persisted, perr := e.persist(r)
		if perr != nil {
			return Result{}, perr
		}
		return resultFrom(persisted, "push_failed", false), nil
	}

	r.RemotePageID = updated.PageID
	r.RemoteURL = updated.PageURL
	r = markSynced(r, updated.LastEditedTime, e.now())
	persisted, err := e.persist(r)
	if err != nil {
		return Result{}, err
	}
	return resultFrom(persisted, action, false), nil
}

type upsertInfo struct {
	PageID         string
	PageURL        string
	LastEditedTime string
}

// upsertRemote fetches the database schema, builds the schema-driven
// property map, and PATCHes an existing page or POSTs a new one, treating
// a 404/object_not_found PATCH response as a signal to create instead.
func (e *Engine) upsertRemote(ctx context.Context, client *Client, databaseID string, r records.Record) (upsertInfo, error) {
	database, err := client.FetchDatabase(ctx, databaseID)
	if err != nil {
		return upsertInfo{}, err
	}
	schema, _ := database["properties"].(map[string]any)
	if schema == nil {
		return upsertInfo{}, fmt.Errorf("remote database properties not found")
	}
	titleProperty, ok := findTitlePropertyName(schema)
	if !ok {
		return upsertInfo{}, fmt.Errorf("could not find title property in target remote database")
	}
	properties := buildProperties(schema, titleProperty, r)

	var page map[string]any
	if pageID := strings.TrimSpace(r.RemotePageID); pageID != "" {
		patched, err := client.UpdatePageProperties(ctx, pageID, properties)
		if err != nil {
			return upsertInfo{}, err
		}
		page = patched
	}
	if page == nil {
		created, err := client.CreatePage(ctx, databaseID, properties, buildChildren(r))
		if err != nil {
			return upsertInfo{}, err
		}
		page = created
	}

	pageID, _ := page["id"].(string)
	if pageID == "" {
		return upsertInfo{}, fmt.Errorf("remote response missing page id")
	}
	pageURL, _ := page["url"].(string)
	lastEdited, _ := page["last_edited_time"].(string)
	return upsertInfo{PageID: pageID, PageURL: pageURL, LastEditedTime: lastEdited}, nil
}

func (e *Engine) fetchRemote(ctx context.Context, client *Client, pageID string, includeContent bool) (RemoteRecord, error) {
	page, err := client.FetchPage(ctx, pageID)
	if err != nil {
		return RemoteRecord{}, err
	}
	return remoteRecordFromPage(page, func() ([]map[string]any, error) {
		return client.FetchBlockChildren(ctx, pageID)
	}, includeContent)
}

// Push performs the one-way single-record push described in spec.md §4.5:
// if the record already carries a remote page id, it pre-fetches remote
// metadata and applies the conflict policy before pushing; otherwise it
// always pushes.
func (e *Engine) Push(ctx context.Context, client *Client, jsonPath, databaseID string, policy Policy) (Result, error) {
	r, err := e.loadByPath(jsonPath)
	if err != nil {
		return Result{}, err
	}

	pageID := strings.TrimSpace(r.RemotePageID)
	if pageID != "" {
		if remote, err := e.fetchRemote(ctx, client, pageID, false); err == nil {
			localChanged := localHasChangedSinceSync(r)
			remoteChanged := remoteHasChanged(r, remote)
			if localChanged && remoteChanged {
				switch policy {
				case PolicyManual:
					r.SyncStatus = "CONFLICT"
					r.SyncError = conflictMessage
					persisted, perr := e.persist(r)
					if perr != nil {
						return Result{}, perr
					}
					return resultFrom(persisted, "conflict_manual", true), nil
				case PolicyRemoteWins:
					full, err := e.fetchRemote(ctx, client, pageID, true)
					if err != nil {
						return Result{}, err
					}
					next := applyRemoteToLocal(r, full)
					next = markSynced(next, full.LastEditedTime, e.now())
					persisted, err := e.persist(next)
					if err != nil {
						return Result{}, err
					}
					return resultFrom(persisted, "pulled_remote_conflict_remote_wins", false), nil
				}
			}
		}
	}

	return e.pushToRemote(ctx, client, databaseID, r, "pushed_local")
}

// Bidirectional performs the single-record decision matrix from spec.md
// §4.5: fetch remote with content, compute both watermarks, and resolve
// per the fixed six-branch matrix.
func (e *Engine) Bidirectional(ctx context.Context, client *Client, jsonPath, databaseID string, policy Policy) (Result, error) {
	r, err := e.loadByPath(jsonPath)
	if err != nil {
		return Result{}, err
	}

	pageID := strings.TrimSpace(r.RemotePageID)
	if pageID == "" {
		return e.pushToRemote(ctx, client, databaseID, r, "pushed_local")
	}

	remote, err := e.fetchRemote(ctx, client, pageID, true)
	if err != nil {
		return e.pushToRemote(ctx, client, databaseID, r, "pushed_local")
	}

	localChanged := localHasChangedSinceSync(r)
	remoteChanged := remoteHasChanged(r, remote)

	switch {
	case localChanged && remoteChanged:
		switch policy {
		case PolicyManual:
			r.SyncStatus = "CONFLICT"
			r.SyncError = conflictMessage
			persisted, perr := e.persist(r)
			if perr != nil {
				return Result{}, perr
			}
			return resultFrom(persisted, "conflict_manual", true), nil
		case PolicyRemoteWins:
			next := applyRemoteToLocal(r, remote)
			next = markSynced(next, remote.LastEditedTime, e.now())
			persisted, err := e.persist(next)
			if err != nil {
				return Result{}, err
			}
			return resultFrom(persisted, "pulled_remote_conflict_remote_wins", false), nil
		default: // local_wins
			return e.pushToRemote(ctx, client, databaseID, r, "pushed_local_conflict_local_wins")
		}
	case localChanged:
		return e.pushToRemote(ctx, client, databaseID, r, "pushed_local")
	case remoteChanged:
		next := applyRemoteToLocal(r, remote)
		next = markSynced(next, remote.LastEditedTime, e.now())
		persisted, err := e.persist(next)
		if err != nil {
			return Result{}, err
		}
		return resultFrom(persisted, "pulled_remote", false), nil
	default:
		next := markSynced(r, remote.LastEditedTime, e.now())
		persisted, err := e.persist(next)
		if err != nil {
			return Result{}, err
		}
		return resultFrom(persisted, "noop", false), nil
	}
}

// PullAll lists every remote page, reconciles each against its local
// counterpart (matched by page id) via the batch decision matrix, and
// creates a new local record for every remote page with no match.
func (e *Engine) PullAll(ctx context.Context, client *Client, databaseID string, policy Policy) (BatchResult, error) {
	pages, err := client.QueryDatabasePages(ctx, databaseID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("query remote pages: %w", err)
	}

	locals, err := e.Store.List()
	if err != nil {
		return BatchResult{}, err
	}
	byPageID := make(map[string]records.Record, len(locals))
	for _, r := range locals {
		if id := strings.TrimSpace(r.RemotePageID); id != "" {
			byPageID[id] = r
		}
	}

	// Translate every remote page into a RemoteRecord concurrently, bounded
	// to pullFetchConcurrency in-flight fetches — each page needs its own
	// paginated block-children call, so this is the fan-out the batch pull
	// actually benefits from parallelizing.
	type fetched struct {
		remote RemoteRecord
		pageID string
		err    error
	}
	fetchedPages := make([]fetched, len(pages))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(pullFetchConcurrency)
	for i, page := range pages {
		i, page := i, page
		group.Go(func() error {
			pageID, _ := page["id"].(string)
			remote, err := remoteRecordFromPage(page, func() ([]map[string]any, error) {
				return client.FetchBlockChildren(gctx, pageID)
			}, true)
			fetchedPages[i] = fetched{remote: remote, pageID: pageID, err: err}
			return nil
		})
	}
	_ = group.Wait()

	var batch BatchResult
	for _, f := range fetchedPages {
		if f.err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, Result{
				PageID:     f.pageID,
				SyncStatus: "FAILED",
				Error:      f.err.Error(),
				Action:     "pull_failed",
			})
			continue
		}
		remote := f.remote

		existing, found := byPageID[remote.PageID]
		var result Result
		if found {
			result, err = e.reconcilePulled(ctx, client, databaseID, existing, remote, policy)
		} else {
			result, err = e.createFromRemote(remote)
		}
		if err != nil {
			batch.Failed++
			batch.Results = append(batch.Results, Result{
				PageID:     remote.PageID,
				SyncStatus: "FAILED",
				Error:      err.Error(),
				Action:     "pull_failed",
			})
			continue
		}

		batch.Results = append(batch.Results, result)
		switch {
		case result.Conflict:
			batch.Conflicts++
			batch.Failed++
		case result.SyncStatus == "SUCCESS":
			batch.Success++
		default:
			batch.Failed++
		}
	}
	batch.Total = len(batch.Results)
	return batch, nil
}

// reconcilePulled applies the batch decision matrix for one remote page
// already linked to a local record, including the manual-strategy
// local-only-change PENDING branch spec.md §4.5 adds on top of the
// single-record matrix.
func (e *Engine) reconcilePulled(ctx context.Context, client *Client, databaseID string, existing records.Record, remote RemoteRecord, policy Policy) (Result, error) {
	localChanged := localHasChangedSinceSync(existing)
	remoteChanged := remoteHasChanged(existing, remote)

	switch {
	case localChanged && remoteChanged:
		switch policy {
		case PolicyManual:
			existing.SyncStatus = "CONFLICT"
			existing.SyncError = "Conflict detected while pulling from remote (manual strategy)."
			persisted, err := e.persist(existing)
			if err != nil {
				return Result{}, err
			}
			return resultFrom(persisted, "conflict_manual", true), nil
		case PolicyLocalWins:
			return e.pushToRemote(ctx, client, databaseID, existing, "pushed_local_conflict_local_wins")
		default: // remote_wins
			next := applyRemoteToLocal(existing, remote)
			next = markSynced(next, remote.LastEditedTime, e.now())
			persisted, err := e.persist(next)
			if err != nil {
				return Result{}, err
			}
			return resultFrom(persisted, "pulled_remote_conflict_remote_wins", false), nil
		}
	case remoteChanged:
		next := applyRemoteToLocal(existing, remote)
		next = markSynced(next, remote.LastEditedTime, e.now())
		persisted, err := e.persist(next)
		if err != nil {
			return Result{}, err
		}
		return resultFrom(persisted, "pulled_remote", false), nil
	case localChanged:
		switch policy {
		case PolicyLocalWins:
			return e.pushToRemote(ctx, client, databaseID, existing, "pushed_local_local_only_change")
		case PolicyRemoteWins:
			next := applyRemoteToLocal(existing, remote)
			next = markSynced(next, remote.LastEditedTime, e.now())
			persisted, err := e.persist(next)
			if err != nil {
				return Result{}, err
			}
			return resultFrom(persisted, "pulled_remote_local_only_change", false), nil
		default: // manual
			existing.SyncStatus = "PENDING"
			existing.SyncError = "Local-only changes detected. Pull skipped."
			persisted, err := e.persist(existing)
			if err != nil {
				return Result{}, err
			}
			return resultFrom(persisted, "local_only_pending", false), nil
		}
	default:
		next := markSynced(existing, remote.LastEditedTime, e.now())
		persisted, err := e.persist(next)
		if err != nil {
			return Result{}, err
		}
		return resultFrom(persisted, "noop", false), nil
	}
}

// createFromRemote materializes a brand-new local record for a remote page
// with no local counterpart, via the Record Store's collision-avoiding
// Upsert.
func (e *Engine) createFromRemote(remote RemoteRecord) (Result, error) {
	next := recordFromRemote(remote)
	next = markSynced(next, remote.LastEditedTime, e.now())
	persisted, err := e.Store.Upsert(next, "")
	if err != nil {
		return Result{}, err
	}
	return resultFrom(persisted, "created_local_from_remote", false), nil
}
