package searchindex

// DebateRunRow is one row of the debate_runs table: one per completed
// debate run, keyed by run_id.
type DebateRunRow struct {
	RunID             string
	OutputType        string
	Problem           string
	ConsensusScore    float64
	ConfidenceScore   float64
	SelectedOption    string
	Degraded          bool
	StartedAt         string
	FinishedAt        string
	ArtifactsRoot     string
	FinalPacketPath   string
	WritebackJSONPath string
}

// DebateTurnRow is one row of the debate_turns table: one per role/round.
type DebateTurnRow struct {
	RunID          string
	RoundNumber    int
	Role           string
	Provider       string
	ModelName      string
	Status         string
	Claim          string
	Rationale      string
	ChallengesJSON string
	RevisionsJSON  string
	ErrorCode      string
	ErrorMessage   string
	DurationMs     int64
	StartedAt      string
	FinishedAt     string
}

// DebateActionRow is one row of the debate_actions table, composite-keyed
// by (run_id, action_id).
type DebateActionRow struct {
	RunID    string
	ActionID string
	Action   string
	Owner    string
	Due      string
	Status   string
}

// UpsertDebateRun inserts or replaces the debate_runs row for a run.
func (x *Index) UpsertDebateRun(row DebateRunRow) error {
	db, err := x.open()
	if err != nil {
		return err
	}
	defer db.Close()

	degraded := 0
	if row.Degraded {
		degraded = 1
	}

	_, err = db.Exec(`INSERT INTO debate_runs (
		run_id, output_type, problem, consensus_score, confidence_score,
		selected_option, degraded, started_at, finished_at, artifacts_root,
		final_packet_path, writeback_json_path
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		output_type = excluded.output_type,
		problem = excluded.problem,
		consensus_score = excluded.consensus_score,
		confidence_score = excluded.confidence_score,
		selected_option = excluded.selected_option,
		degraded = excluded.degraded,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		artifacts_root = excluded.artifacts_root,
		final_packet_path = excluded.final_packet_path,
		writeback_json_path = excluded.writeback_json_path`,
		row.RunID, row.OutputType, row.Problem, row.ConsensusScore, row.ConfidenceScore,
		row.SelectedOption, degraded, row.StartedAt, row.FinishedAt, row.ArtifactsRoot,
		row.FinalPacketPath, nullableString(row.WritebackJSONPath),
	)
	return err
}

// ReplaceDebateTurns deletes and reinserts every debate_turns row for a run.
func (x *Index) ReplaceDebateTurns(runID string, turns []DebateTurnRow) error {
	db, err := x.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM debate_turns WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO debate_turns (
		run_id, round_number, role, provider, model_name, status, claim,
		rationale, challenges_json, revisions_json, error_code, error_message,
		duration_ms, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, t := range turns {
		if _, err := stmt.Exec(
			t.RunID, t.RoundNumber, t.Role, t.Provider, t.ModelName, t.Status, t.Claim,
			t.Rationale, t.ChallengesJSON, t.RevisionsJSON, nullableString(t.ErrorCode), nullableString(t.ErrorMessage),
			t.DurationMs, t.StartedAt, t.FinishedAt,
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	return tx.Commit()
}

// ReplaceDebateActions deletes and reinserts every debate_actions row for a
// run.
func (x *Index) ReplaceDebateActions(runID string, actions []DebateActionRow) error {
	db, err := x.open()
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM debate_actions WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO debate_actions (
		run_id, action_id, action, owner, due, status
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, a := range actions {
		status := a.Status
		if status == "" {
			status = "OPEN"
		}
		if _, err := stmt.Exec(a.RunID, a.ActionID, a.Action, a.Owner, a.Due, status); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	return tx.Commit()
}

// DebateCounts returns the number of debate_turns and debate_actions rows
// for a run, used by replay's consistency check. ok is false only on a
// database error; a missing catalog file is created empty by open, so it
// reports zero counts with ok true.
func (x *Index) DebateCounts(runID string) (turns int, actions int, ok bool) {
	db, err := x.open()
	if err != nil {
		return 0, 0, false
	}
	defer db.Close()

	if err := db.QueryRow(`SELECT COUNT(*) FROM debate_turns WHERE run_id = ?`, runID).Scan(&turns); err != nil {
		return 0, 0, false
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM debate_actions WHERE run_id = ?`, runID).Scan(&actions); err != nil {
		return 0, 0, false
	}
	return turns, actions, true
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
