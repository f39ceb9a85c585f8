// Package logfeed appends structured Log Entry events under a Central
// Home's .agentic/logs/ directory, per spec.md §3/§6.1.
//
// It is adapted from the teacher's internal/hermes fire-and-forget event
// client: the same Emit-shaped API and event-type taxonomy, but instead of
// POSTing to a local daemon it writes one JSON file per event directly to
// disk, because this system has no networked server surface (spec.md §1
// Non-goals).
package logfeed

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kofnote/internal/records"
	"kofnote/internal/workspace"
)

// Event types mirrored from the teacher's hermes taxonomy, generalized from
// roundtable's debate lifecycle to this system's.
const (
	EventDebateStarted     = "debate_started"
	EventConsensusReached  = "consensus_reached"
	EventExecutionComplete = "execution_complete"
	EventSyncCompleted     = "sync_completed"
)

// Feed appends Log Entry events for one Central Home.
type Feed struct {
	Home string
	// Now is injectable so tests can fix the timestamp; defaults to
	// time.Now when nil.
	Now func() time.Time
}

// New returns a Feed rooted at an already-resolved Central Home.
func New(home string) *Feed {
	return &Feed{Home: home}
}

func (f *Feed) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// entry is the on-disk Log Entry shape records.Store.LoadLogs reads back:
// a "meta" block (timestamp, event_id), a "task" block (intent, status),
// and a free-form "data" payload.
type entry struct {
	Meta struct {
		Timestamp string `json:"timestamp"`
		EventID   string `json:"event_id"`
	} `json:"meta"`
	Task struct {
		Intent string `json:"intent"`
		Status string `json:"status"`
	} `json:"task"`
	Data map[string]any `json:"data,omitempty"`
}

// Emit appends one Log Entry event to home/.agentic/logs/, naming the file
// after the event's timestamp and id so two events never collide. data
// should carry at least a "title" key when the caller wants it surfaced by
// LoadLogs, but any JSON-serializable fields are accepted.
func (f *Feed) Emit(taskIntent, status string, data map[string]any) error {
	now := f.now().UTC()
	e := entry{Data: data}
	e.Meta.Timestamp = now.Format(time.RFC3339)
	e.Meta.EventID = uuid.NewString()
	e.Task.Intent = taskIntent
	e.Task.Status = status

	body, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", now.Format("20060102T150405.000000000"), e.Meta.EventID)
	path := filepath.Join(workspace.LogsDir(f.Home), filename)
	return records.WriteAtomic(path, body)
}

// DebateStarted emits a debate_started event.
func (f *Feed) DebateStarted(runID, problem string, participantCount int) error {
	return f.Emit(EventDebateStarted, "started", map[string]any{
		"title":             "Debate started: " + problem,
		"run_id":            runID,
		"participant_count": participantCount,
	})
}

// ConsensusReached emits a consensus_reached event.
func (f *Feed) ConsensusReached(runID string, consensusScore float64) error {
	return f.Emit(EventConsensusReached, "ok", map[string]any{
		"title":           "Consensus reached for " + runID,
		"run_id":          runID,
		"consensus_score": consensusScore,
	})
}

// ExecutionComplete emits an execution_complete event.
func (f *Feed) ExecutionComplete(runID string, degraded bool) error {
	status := "ok"
	if degraded {
		status = "degraded"
	}
	return f.Emit(EventExecutionComplete, status, map[string]any{
		"title":  "Debate finished: " + runID,
		"run_id": runID,
	})
}

// SyncCompleted emits a sync_completed event.
func (f *Feed) SyncCompleted(jsonPath, action string) error {
	return f.Emit(EventSyncCompleted, "ok", map[string]any{
		"title":  "Sync completed: " + jsonPath,
		"action": action,
	})
}
