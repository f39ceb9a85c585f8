package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"kofnote/internal/records"
)

// computeSyncHash hashes the fields that define a record's sync-relevant
// content: record_type, title, created_at, source_text, final_body, date,
// and tags. Any change to these fields moves a record out of sync with its
// last-known-synced state.
func computeSyncHash(r records.Record) string {
	var b strings.Builder
	b.WriteString(r.Type)
	b.WriteByte('\x00')
	b.WriteString(r.Title)
	b.WriteByte('\x00')
	b.WriteString(r.CreatedAt)
	b.WriteByte('\x00')
	b.WriteString(r.SourceText)
	b.WriteByte('\x00')
	b.WriteString(r.FinalBody)
	b.WriteByte('\x00')
	b.WriteString(r.Date)
	for _, tag := range r.Tags {
		b.WriteByte('\x00')
		b.WriteString(tag)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// localHasChangedSinceSync reports whether the record's content hash no
// longer matches the hash captured at the last successful sync.
func localHasChangedSinceSync(r records.Record) bool {
	base := strings.TrimSpace(r.LastSyncedHash)
	if base == "" {
		return true
	}
	return computeSyncHash(r) != base
}

// remoteHasChanged reports whether the remote's last_edited_time differs
// from the value recorded at the last successful sync. An empty remote
// timestamp never counts as a change.
func remoteHasChanged(r records.Record, remote RemoteRecord) bool {
	current := strings.TrimSpace(remote.LastEditedTime)
	if current == "" {
		return false
	}
	return strings.TrimSpace(r.LastRemoteEditTime) != current
}

// markSynced stamps a record as successfully synced: fresh status, cleared
// error, a refreshed synced-at timestamp, the remote's edit watermark (when
// present), and a recomputed content hash.
func markSynced(r records.Record, remoteLastEditedTime string, now clock) records.Record {
	r.SyncStatus = "SUCCESS"
	r.SyncError = ""
	r.LastSyncedAt = now().UTC().Format("2006-01-02T15:04:05Z07:00")
	if strings.TrimSpace(remoteLastEditedTime) != "" {
		r.LastRemoteEditTime = remoteLastEditedTime
	}
	r.LastSyncedHash = computeSyncHash(r)
	return r
}

// applyRemoteToLocal overlays a remote record's content onto a local
// record, preserving the local record's file path and refreshing its
// page-id linkage (and URL, when the remote has one) from the remote.
func applyRemoteToLocal(local records.Record, remote RemoteRecord) records.Record {
	next := local
	next.Type = remote.RecordType
	next.Title = remote.Title
	if strings.TrimSpace(remote.CreatedAt) != "" {
		next.CreatedAt = remote.CreatedAt
	}
	next.Date = remote.Date
	next.Tags = remote.Tags
	next.FinalBody = remote.FinalBody
	next.SourceText = remote.SourceText
	next.RemotePageID = remote.PageID
	if remote.PageURL != "" {
		next.RemoteURL = remote.PageURL
	}
	return next
}

// recordFromRemote builds a brand-new local record from a remote page that
// has no local counterpart yet.
func recordFromRemote(remote RemoteRecord) records.Record {
	return records.Record{
		Type:         remote.RecordType,
		Title:        remote.Title,
		CreatedAt:    remote.CreatedAt,
		RemotePageID: remote.PageID,
		RemoteURL:    remote.PageURL,
		SourceText:   remote.SourceText,
		FinalBody:    remote.FinalBody,
		Tags:         remote.Tags,
		Date:         remote.Date,
	}
}
