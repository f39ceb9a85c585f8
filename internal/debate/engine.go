package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"kofnote/internal/logfeed"
	"kofnote/internal/providers"
	"kofnote/internal/records"
	"kofnote/internal/searchindex"
	"kofnote/internal/settings"
	"kofnote/internal/workspace"
)

// Engine is the Debate Engine bound to one Central Home. Complete and Now
// are injectable so tests can stub the provider façade and the clock.
type Engine struct {
	Home     string
	Store    *records.Store
	Index    *searchindex.Index
	Registry settings.ProviderRegistry
	Complete CompleteFunc
	Now      func() time.Time
	ParseDue func(phrase string, now time.Time) (time.Time, bool)
	// Feed is optional; when set, lifecycle events are appended to the
	// Central Home's log feed the way the teacher's hermes client reported
	// DebateStarted/ConsensusReached/ExecutionComplete from the TUI.
	Feed *logfeed.Feed
}

// NewEngine wires an Engine against a resolved Central Home using the real
// provider façade and the real clock.
func NewEngine(home string, store *records.Store, index *searchindex.Index, registry settings.ProviderRegistry) *Engine {
	return &Engine{
		Home:     home,
		Store:    store,
		Index:    index,
		Registry: registry,
		Complete: providers.CompleteText,
		Now:      func() time.Time { return time.Now() },
		ParseDue: ParseDueOverride,
		Feed:     logfeed.New(home),
	}
}

func (e *Engine) emitStarted(runID string, req NormalizedRequest) {
	if e.Feed == nil {
		return
	}
	_ = e.Feed.DebateStarted(runID, req.Problem, len(req.Participants))
}

func (e *Engine) emitConsensus(runID string, consensus Consensus) {
	if e.Feed == nil {
		return
	}
	_ = e.Feed.ConsensusReached(runID, consensus.ConsensusScore)
}

func (e *Engine) emitComplete(runID string, degraded bool) {
	if e.Feed == nil {
		return
	}
	_ = e.Feed.ExecutionComplete(runID, degraded)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func generateRunID(now time.Time) string {
	stamp := now.UTC().Format("20060102_150405")
	ms := now.UnixMilli() % 100000
	return fmt.Sprintf("debate_%s_%05d", stamp, ms)
}

// Run validates and normalizes the request, then executes the full
// Intake->Writeback state machine on a background goroutine joined by this
// call, per spec.md §4.4.1/§5's async façade contract. The single-flight
// lock is held for the full run and released on every exit path, including
// a panic inside the worker.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	normalized, warnings, err := Normalize(req, e.Registry)
	if err != nil {
		return Response{}, err
	}

	runID := generateRunID(e.now())
	if err := globalLock.acquire(runID); err != nil {
		return Response{}, err
	}

	type outcome struct {
		resp Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: fmt.Errorf("debate run %s panicked: %v", runID, r)}
			}
			globalLock.release(runID)
			done <- out
		}()
		out.resp, out.err = e.execute(ctx, runID, normalized, warnings)
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// artifactPaths centralizes the fixed artifact tree layout for one run.
type artifactPaths struct {
	root        string
	request     string
	roundsDir   string
	consensus   string
	packetJSON  string
	packetMD    string
	failure     string
}

func newArtifactPaths(home, runID string) artifactPaths {
	root := filepath.Join(workspace.DebatesDir(home), runID)
	return artifactPaths{
		root:       root,
		request:    filepath.Join(root, "request.json"),
		roundsDir:  filepath.Join(root, "rounds"),
		consensus:  filepath.Join(root, "consensus.json"),
		packetJSON: filepath.Join(root, "final-packet.json"),
		packetMD:   filepath.Join(root, "final-packet.md"),
		failure:    filepath.Join(root, "failure.json"),
	}
}

func (ap artifactPaths) roundFile(r Round) string {
	return filepath.Join(ap.roundsDir, roundArtifactName(r)+".json")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return records.WriteAtomic(path, data)
}

// consensusArtifact is the on-disk shape of consensus.json: every synthesis
// result computed ahead of Packetize, bundled for replay.
type consensusArtifact struct {
	Consensus   Consensus `json:"consensus"`
	Decision    Decision  `json:"decision"`
	Risks       []Risk    `json:"risks"`
	NextActions []Action  `json:"next_actions"`
}

func (e *Engine) execute(ctx context.Context, runID string, req NormalizedRequest, warnings []string) (Response, error) {
	ap := newArtifactPaths(e.Home, runID)
	startedAt := e.now().UTC().Format(time.RFC3339)

	state := StateNone
	advance := func(next State) error {
		allowed, ok := allowedTransitions[state]
		if !ok || allowed != next {
			return newErr(ErrState, "illegal transition %s -> %s", state, next)
		}
		state = next
		return nil
	}

	resp := Response{RunID: runID, ArtifactsRoot: ap.root, ErrorCodes: append([]string(nil), warnings...)}

	if err := advance(StateIntake); err != nil {
		return resp, err
	}
	if err := writeJSON(ap.request, req); err != nil {
		return resp, err
	}
	e.emitStarted(runID, req)

	var rounds []RoundArtifact
	var degraded bool

	roundStates := []struct {
		round Round
		state State
	}{
		{Round1, StateRound1},
		{Round2, StateRound2},
		{Round3, StateRound3},
	}

	for _, rs := range roundStates {
		if err := advance(rs.state); err != nil {
			return resp, err
		}
		artifact := RoundArtifact{Round: rs.round}
		for _, p := range req.Participants {
			turn := runTurn(ctx, e.Complete, p, rs.round, req, rounds)
			if turn.Status != "ok" {
				degraded = true
				resp.ErrorCodes = append(resp.ErrorCodes, turn.ErrorCode)
			}
			artifact.Turns = append(artifact.Turns, turn)
		}
		rounds = append(rounds, artifact)
		if err := writeJSON(ap.roundFile(rs.round), artifact); err != nil {
			return resp, err
		}
	}

	okCount := 0
	for _, t := range allTurns(rounds) {
		if t.Status == "ok" {
			okCount++
		}
	}
	if okCount == 0 {
		_ = writeJSON(ap.failure, map[string]any{
			"run_id":         runID,
			"error_codes":    resp.ErrorCodes,
			"artifacts_root": ap.root,
		})
		resp.State = state
		resp.Degraded = true
		e.emitComplete(runID, true)
		return resp, newErr(ErrAllTurnsFailed, "every turn failed in run %s, see %s", runID, ap.root)
	}

	if err := advance(StateConsensus); err != nil {
		return resp, err
	}
	consensus := buildConsensus(rounds, resp.ErrorCodes)
	e.emitConsensus(runID, consensus)

	if err := advance(StateJudge); err != nil {
		return resp, err
	}
	decision := buildDecision(rounds, req.OutputType)
	risks := buildRisks(rounds)
	actions := buildActions(req.OutputType, decision, risks, e.now(), req.DueOverrides, e.ParseDue)

	if err := writeJSON(ap.consensus, consensusArtifact{Consensus: consensus, Decision: decision, Risks: risks, NextActions: actions}); err != nil {
		return resp, err
	}

	if err := advance(StatePacketize); err != nil {
		return resp, err
	}
	finishedAt := e.now().UTC().Format(time.RFC3339)

	var roundRefs []string
	for _, rs := range roundStates {
		roundRefs = append(roundRefs, ap.roundFile(rs.round))
	}

	packet := FinalPacket{
		RunID:        runID,
		Mode:         PacketMode,
		Problem:      req.Problem,
		OutputType:   req.OutputType,
		Participants: req.Participants,
		Consensus:    consensus,
		Decision:     decision,
		Risks:        risks,
		NextActions:  actions,
		Trace: Trace{
			RoundRefs:    roundRefs,
			EvidenceRefs: []string{"consensus:" + ap.consensus},
		},
		Timestamps: Timestamps{StartedAt: startedAt, FinishedAt: finishedAt},
	}
	if err := ValidatePacket(packet); err != nil {
		return resp, err
	}
	if err := writeJSON(ap.packetJSON, packet); err != nil {
		return resp, err
	}
	if err := records.WriteAtomic(ap.packetMD, []byte(RenderPacketMarkdown(packet))); err != nil {
		return resp, err
	}

	if err := advance(StateWriteback); err != nil {
		return resp, err
	}
	writebackRecord, err := e.writeback(req, packet)
	if err != nil {
		return resp, err
	}

	// Second-phase commit: amend the packet's evidence with the writeback
	// path and rewrite both artifacts, idempotently.
	packet.Trace.EvidenceRefs = append(packet.Trace.EvidenceRefs, "writeback:"+writebackRecord.JSONPath)
	packet.Timestamps.FinishedAt = e.now().UTC().Format(time.RFC3339)
	if err := ValidatePacket(packet); err != nil {
		return resp, err
	}
	if err := writeJSON(ap.packetJSON, packet); err != nil {
		return resp, err
	}
	if err := records.WriteAtomic(ap.packetMD, []byte(RenderPacketMarkdown(packet))); err != nil {
		return resp, err
	}

	if e.Index != nil {
		e.indexRun(runID, ap, packet, rounds, actions, degraded, writebackRecord.JSONPath)
	}

	resp.State = state
	resp.Degraded = degraded
	resp.FinalPacket = &packet
	resp.WritebackJSONPath = writebackRecord.JSONPath
	resp.ErrorCodes = dedupNonEmpty(resp.ErrorCodes)
	e.emitComplete(runID, degraded)
	return resp, nil
}

// writeback persists the decision as an ordinary record, per spec.md
// §4.4.6.
func (e *Engine) writeback(req NormalizedRequest, packet FinalPacket) (records.Record, error) {
	recordType := "worklog"
	if req.OutputType == OutputDecision {
		recordType = "decision"
	}
	if req.WritebackRecordType == "decision" || req.WritebackRecordType == "worklog" {
		recordType = req.WritebackRecordType
	}

	title := "Debate: " + summarizeLine(req.Problem, 80)
	tags := []string{"debate", PacketMode, string(req.OutputType), "run:" + packet.RunID}

	payload := records.Record{
		Type:       recordType,
		Title:      title,
		SourceText: req.Problem,
		FinalBody:  RenderPacketMarkdown(packet),
		Tags:       tags,
	}
	return e.Store.Upsert(payload, "")
}

func (e *Engine) indexRun(runID string, ap artifactPaths, packet FinalPacket, rounds []RoundArtifact, actions []Action, degraded bool, writebackPath string) {
	_ = e.Index.UpsertDebateRun(searchindex.DebateRunRow{
		RunID:             runID,
		OutputType:        string(packet.OutputType),
		Problem:           packet.Problem,
		ConsensusScore:    packet.Consensus.ConsensusScore,
		ConfidenceScore:   packet.Consensus.ConfidenceScore,
		SelectedOption:    packet.Decision.SelectedOption,
		Degraded:          degraded,
		StartedAt:         packet.Timestamps.StartedAt,
		FinishedAt:        packet.Timestamps.FinishedAt,
		ArtifactsRoot:     ap.root,
		FinalPacketPath:   ap.packetJSON,
		WritebackJSONPath: writebackPath,
	})

	var turnRows []searchindex.DebateTurnRow
	for _, artifact := range rounds {
		for _, t := range artifact.Turns {
			challengesJSON, _ := json.Marshal(t.Challenges)
			revisionsJSON, _ := json.Marshal(t.Revisions)
			turnRows = append(turnRows, searchindex.DebateTurnRow{
				RunID:          runID,
				RoundNumber:    roundNumber(t.Round),
				Role:           string(t.Role),
				Provider:       t.Provider,
				ModelName:      t.Model,
				Status:         t.Status,
				Claim:          t.Claim,
				Rationale:      t.Rationale,
				ChallengesJSON: string(challengesJSON),
				RevisionsJSON:  string(revisionsJSON),
				ErrorCode:      t.ErrorCode,
				ErrorMessage:   t.ErrorMessage,
				DurationMs:     t.DurationMs,
				StartedAt:      t.StartedAt,
				FinishedAt:     t.FinishedAt,
			})
		}
	}
	_ = e.Index.ReplaceDebateTurns(runID, turnRows)

	actionRows := make([]searchindex.DebateActionRow, 0, len(actions))
	for _, a := range actions {
		actionRows = append(actionRows, searchindex.DebateActionRow{
			RunID:    runID,
			ActionID: a.ID,
			Action:   a.Action,
			Owner:    a.Owner,
			Due:      a.Due,
			Status:   "OPEN",
		})
	}
	_ = e.Index.ReplaceDebateActions(runID, actionRows)
}
